// Package config defines service configuration structures and loading hooks.
//
// Keys are flat: the YAML file and SHOOTSIM_* environment variables share
// the same snake_case names.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/shootsim/internal/domain/exercise"
)

// Exercise kinds accepted by the exercise key.
const (
	ExerciseScore       = string(exercise.KindScore)
	ExerciseElimination = string(exercise.KindElimination)
)

// DefaultPlacement centers one IPSC target in the default 640x480 arena so
// the score exercise has something to hit out of the box.
var DefaultPlacement = Placement{Ref: "targets/IPSC.target", X: 275, Y: 165}

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDir    = "dir"
	BackendMinio  = "minio"
)

// Placement puts a target definition at a fixed scene position.
type Placement struct {
	Ref string  `koanf:"ref"`
	X   float64 `koanf:"x"`
	Y   float64 `koanf:"y"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches log output to JSON.
	LogJSON bool `koanf:"log_json"`
	// MetricsEnabled turns the Prometheus recorders on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Exercise selects the running exercise: score or elimination. The
	// aliases shoot-for-score and shoot-out are accepted too.
	Exercise string `koanf:"exercise"`

	// ShotQueueSize bounds the in-memory shot queue.
	ShotQueueSize int `koanf:"queue_size"`
	// DedupeSize sets how many shot ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ArenaWidth and ArenaHeight size the headless scene.
	ArenaWidth  float64 `koanf:"arena_width"`
	ArenaHeight float64 `koanf:"arena_height"`
	// SceneBacklog bounds pending scene tasks.
	SceneBacklog int `koanf:"scene_backlog"`
	// MaxShotMarkers caps the shot markers kept on the scene.
	MaxShotMarkers int `koanf:"max_shot_markers"`

	// TargetsDir overlays target definitions on the built-in ones.
	TargetsDir string `koanf:"targets_dir"`
	// BackgroundsDir resolves course backgrounds for captures.
	BackgroundsDir string `koanf:"backgrounds_dir"`
	// CoursesFile loads courses from YAML instead of the built-in list.
	CoursesFile string `koanf:"courses_file"`

	// Score exercise settings.
	MaxHits       int           `koanf:"max_hits"`
	AutoReset     bool          `koanf:"auto_reset"`
	AutoSave      bool          `koanf:"auto_save"`
	TargetWidthCM float64       `koanf:"target_width_cm"`
	TrainingScale float64       `koanf:"training_scale"`
	AnnounceDelay time.Duration `koanf:"announce_delay"`
	ResetDelay    time.Duration `koanf:"reset_delay"`
	// Placements default to DefaultPlacement. A file that sets the key
	// replaces the list.
	Placements []Placement `koanf:"placements"`

	// Elimination exercise settings.
	MaxTargets      int      `koanf:"max_targets"`
	RequiredHits    int      `koanf:"required_hits"`
	InjectDontShoot bool     `koanf:"inject_dont_shoot"`
	TargetRefs      []string `koanf:"target_refs"`
	// RandSeed makes layouts reproducible when non-zero.
	RandSeed uint64 `koanf:"rand_seed"`

	// ClipsDir enables spoken feedback from <word>.wav clips. Empty silences
	// speech.
	ClipsDir string `koanf:"clips_dir"`
	// SpeechSilenced starts speech in log-only mode. It can be toggled at
	// runtime through PUT /speech.
	SpeechSilenced bool `koanf:"speech_silenced"`

	// Snapshot storage.
	SnapshotBackend string `koanf:"snapshot_backend"`
	SnapshotDir     string `koanf:"snapshot_dir"`
	MinioEndpoint   string `koanf:"minio_endpoint"`
	MinioAccessKey  string `koanf:"minio_access_key"`
	MinioSecretKey  string `koanf:"minio_secret_key"`
	MinioBucket     string `koanf:"minio_bucket"`
	MinioSecure     bool   `koanf:"minio_secure"`

	// Session log.
	SessionBackend  string `koanf:"session_backend"`
	SessionDBPath   string `koanf:"session_db_path"`
	SessionCapacity int    `koanf:"session_capacity"`
	// MaxSessionsLimit caps GET /sessions?limit.
	MaxSessionsLimit int `koanf:"max_sessions_limit"`

	// Kafka shot source. Disabled when no brokers are set.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`
	KafkaGroup   string   `koanf:"kafka_group"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		MetricsEnabled:   true,
		Addr:             ":9080",
		Exercise:         ExerciseScore,
		ShotQueueSize:    1024,
		DedupeSize:       50_000,
		ArenaWidth:       640,
		ArenaHeight:      480,
		SceneBacklog:     1024,
		MaxShotMarkers:   256,
		MaxHits:          5,
		AutoReset:        false,
		AutoSave:         true,
		TargetWidthCM:    18,
		TrainingScale:    5,
		AnnounceDelay:    time.Second,
		ResetDelay:       6 * time.Second,
		Placements:       []Placement{DefaultPlacement},
		MaxTargets:       3,
		RequiredHits:     2,
		InjectDontShoot:  false,
		SnapshotBackend:  BackendDir,
		SnapshotDir:      "shootlog",
		SessionBackend:   BackendMemory,
		SessionDBPath:    "shootsim.db",
		MaxSessionsLimit: 100,
		KafkaTopic:       "shots",
		KafkaGroup:       "shootsim",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ShotQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ArenaWidth <= 0 || c.ArenaHeight <= 0:
		return fmt.Errorf("%w: arena size must be positive", ErrInvalidConfig)
	case c.MaxHits <= 0:
		return fmt.Errorf("%w: max_hits must be positive", ErrInvalidConfig)
	case c.MaxTargets <= 0:
		return fmt.Errorf("%w: max_targets must be positive", ErrInvalidConfig)
	case c.RequiredHits <= 0:
		return fmt.Errorf("%w: required_hits must be positive", ErrInvalidConfig)
	case c.TargetWidthCM <= 0 || c.TrainingScale <= 0:
		return fmt.Errorf("%w: target_width_cm and training_scale must be positive", ErrInvalidConfig)
	case c.AnnounceDelay < 0 || c.ResetDelay < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	case c.SnapshotBackend != BackendDir && c.SnapshotBackend != BackendMinio:
		return fmt.Errorf("%w: unknown snapshot_backend %q", ErrInvalidConfig, c.SnapshotBackend)
	case c.SnapshotBackend == BackendMinio && (c.MinioEndpoint == "" || c.MinioBucket == ""):
		return fmt.Errorf("%w: minio_endpoint and minio_bucket are required", ErrInvalidConfig)
	case c.SessionBackend != BackendMemory && c.SessionBackend != BackendSQLite:
		return fmt.Errorf("%w: unknown session_backend %q", ErrInvalidConfig, c.SessionBackend)
	case c.SessionBackend == BackendSQLite && strings.TrimSpace(c.SessionDBPath) == "":
		return fmt.Errorf("%w: session_db_path is required for sqlite", ErrInvalidConfig)
	case c.MaxSessionsLimit <= 0:
		return fmt.Errorf("%w: max_sessions_limit must be positive", ErrInvalidConfig)
	case len(c.KafkaBrokers) > 0 && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required with kafka_brokers", ErrInvalidConfig)
	}
	if _, err := exercise.ParseKind(c.Exercise); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for i, p := range c.Placements {
		if strings.TrimSpace(p.Ref) == "" {
			return fmt.Errorf("%w: placements[%d] has no ref", ErrInvalidConfig, i)
		}
	}
	return nil
}
