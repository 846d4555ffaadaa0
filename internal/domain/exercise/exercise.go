// Package exercise implements the round engines that score resolved hits.
//
// Each exercise kind is an Engine variant. A Driver owns one engine, resolves
// shots against the arena and serializes shots with scheduled callbacks.
package exercise

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/okian/shootsim/internal/domain/course"
	"github.com/okian/shootsim/internal/domain/hit"
	"github.com/okian/shootsim/internal/domain/layout"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/schedule"
	"github.com/okian/shootsim/internal/domain/target"
)

// Kind names an exercise variant.
type Kind string

const (
	KindScore       Kind = "score"
	KindElimination Kind = "elimination"
)

// ParseKind accepts the variant names and their display aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "score", "shoot-for-score", "shoot_for_score":
		return KindScore, nil
	case "elimination", "shoot-out", "shootout", "shoot_out":
		return KindElimination, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExercise, s)
}

// Engine is a round strategy.
type Engine interface {
	Kind() Kind
	Init(ctx context.Context) error
	// ShotListener handles one shot. h is nil on a miss.
	ShotListener(ctx context.Context, shot model.Shot, h *hit.Hit) error
	Reset(ctx context.Context) error
	Stats() Stats
	// Close cancels pending callbacks. The engine must not be used afterwards.
	Close()
}

// Stats is a point-in-time view of an engine.
type Stats struct {
	Exercise     Kind    `json:"exercise"`
	Hits         int     `json:"hits"`
	RedScore     int     `json:"red_score"`
	GreenScore   int     `json:"green_score"`
	SpreadInches float64 `json:"spread_inches"`
	ResetPending bool    `json:"reset_pending,omitempty"`
	Score        int     `json:"score"`
	Round        int     `json:"round"`
	Course       string  `json:"course,omitempty"`
	Remaining    int     `json:"remaining_targets"`
	DontShoot    int     `json:"dont_shoot_targets"`
	State        string  `json:"state,omitempty"`
}

// Arena is the scene an exercise draws into. Mutations are asynchronous;
// Targets and Capture observe every mutation issued before them.
type Arena interface {
	Width() float64
	Height() float64
	AddTarget(ctx context.Context, t *target.Target)
	RemoveTarget(ctx context.Context, id target.ID)
	SetVisible(ctx context.Context, id target.ID, visible bool)
	Targets(ctx context.Context) []*target.Target
	SetBackground(ctx context.Context, path string)
	ShowText(ctx context.Context, text string)
	DrawShot(ctx context.Context, shot model.Shot)
	ClearShots(ctx context.Context)
	Capture(ctx context.Context) (image.Image, error)
}

// Speaker voices feedback asynchronously.
type Speaker interface {
	Say(ctx context.Context, utterance string)
}

// SnapshotStore persists feed images and returns a reference to the saved
// object.
type SnapshotStore interface {
	Save(ctx context.Context, name string, img image.Image) (string, error)
}

// SessionRecorder keeps finished session results.
type SessionRecorder interface {
	Record(ctx context.Context, r model.SessionResult) error
}

// Deps are the collaborators an engine works with. Snapshots and Sessions
// are optional.
type Deps struct {
	Arena     Arena
	Speaker   Speaker
	Targets   layout.Factory
	Scheduler schedule.Scheduler
	Snapshots SnapshotStore
	Sessions  SessionRecorder
	Courses   []course.Course
	Now       func() time.Time
}

// TargetPlacement puts a definition at a fixed scene position.
type TargetPlacement struct {
	Ref  string
	X, Y float64
}

// Settings configures both variants; each reads the fields it needs.
type Settings struct {
	// score accumulation
	MaxHits       int
	AutoReset     bool
	AutoSave      bool
	TargetWidthCM float64
	TrainingScale float64
	AnnounceDelay time.Duration
	ResetDelay    time.Duration
	Placements    []TargetPlacement

	// SaveTimeout bounds each background snapshot and session write.
	SaveTimeout time.Duration

	// elimination
	MaxTargets      int
	RequiredHits    int
	InjectDontShoot bool
	TargetRefs      []string
	Rand            func() *rand.Rand
}

// DefaultSettings mirrors the operator defaults of both exercises.
func DefaultSettings() Settings {
	return Settings{
		MaxHits:       5,
		AutoReset:     false,
		AutoSave:      true,
		TargetWidthCM: 18,
		TrainingScale: 5,
		AnnounceDelay: time.Second,
		ResetDelay:    6 * time.Second,
		SaveTimeout:   defaultSaveTimeout,
		MaxTargets:    3,
		RequiredHits:  2,
		TargetRefs:    course.DefaultTargets(),
	}
}

// New builds the engine for kind.
func New(kind Kind, deps Deps, s Settings) (Engine, error) {
	if deps.Arena == nil || deps.Speaker == nil {
		return nil, fmt.Errorf("%w: arena and speaker are required", ErrInvalidSettings)
	}
	if deps.Scheduler == nil {
		deps.Scheduler = schedule.NewReal()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	switch kind {
	case KindScore:
		return newScoreAccumulation(deps, s)
	case KindElimination:
		return newEliminationWithPenalty(deps, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, kind)
}

// SnapshotName builds the file name of an auto-saved feed image.
func SnapshotName(at time.Time, score int, spread float64) string {
	return fmt.Sprintf("%s-%d-%.2f.png", at.Format("20060102150405"), score, spread)
}
