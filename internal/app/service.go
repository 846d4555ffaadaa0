// Package service wires the shot intake, the running exercise and its
// adapters, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/shootsim/internal/adapters/mq/kafka"
	"github.com/okian/shootsim/internal/adapters/mq/queue"
	"github.com/okian/shootsim/internal/adapters/mq/worker"
	"github.com/okian/shootsim/internal/adapters/repository"
	"github.com/okian/shootsim/internal/adapters/scene"
	"github.com/okian/shootsim/internal/adapters/snapshot"
	"github.com/okian/shootsim/internal/adapters/speech"
	"github.com/okian/shootsim/internal/adapters/targetio"
	"github.com/okian/shootsim/internal/config"
	"github.com/okian/shootsim/internal/domain/course"
	"github.com/okian/shootsim/internal/domain/dedupe"
	"github.com/okian/shootsim/internal/domain/exercise"
	"github.com/okian/shootsim/internal/domain/layout"
	"github.com/okian/shootsim/internal/domain/model"
	"github.com/okian/shootsim/internal/domain/schedule"
	"github.com/okian/shootsim/pkg/logger"
	"github.com/okian/shootsim/pkg/metrics"
)

const (
	shotsQueueName = "shots"
	drainTimeout   = 5 * time.Second
)

// ErrNotStarted is returned by operations that need a running service.
var ErrNotStarted = errors.New("service not started")

// Stats is the service view served on /stats.
type Stats struct {
	exercise.Stats
	Started        bool       `json:"started"`
	QueueLength    int        `json:"queue_length"`
	QueueCapacity  int        `json:"queue_capacity"`
	DedupeSize     int64      `json:"dedupe_size"`
	Sessions       int        `json:"sessions"`
	SpeechSilenced bool       `json:"speech_silenced"`
	Scene          scene.View `json:"scene"`
}

// Service owns the exercise and everything that feeds it.
type Service struct {
	mu sync.RWMutex

	cfg          *config.Config
	logger       logger.Logger
	scheduler    schedule.Scheduler
	now          func() time.Time
	speechOut    io.Writer
	speechPlayer speech.Player

	// Core components
	arena    *scene.Scene
	speaker  *speech.Speaker
	sessions repository.Store
	driver   *exercise.Driver
	deduper  dedupe.Deduper
	shots    *queue.InMemoryQueue[model.Shot]
	worker   *worker.InMemoryWorker
	source   *kafka.Source

	// State
	started      bool
	stopping     bool
	cancelSource context.CancelFunc
	sourceDone   chan struct{}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScheduler replaces the wall-clock scheduler used for delayed
// announcements and resets.
func WithScheduler(sch schedule.Scheduler) Option {
	return func(s *Service) {
		if sch != nil {
			s.scheduler = sch
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSpeechOutput sets where silenced utterances are echoed.
func WithSpeechOutput(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.speechOut = w
		}
	}
}

// WithSpeechPlayer replaces the audio device.
func WithSpeechPlayer(p speech.Player) Option {
	return func(s *Service) {
		if p != nil {
			s.speechPlayer = p
		}
	}
}

// New constructs a new Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:       config.New(),
		scheduler: schedule.NewReal(),
		now:       time.Now,
		speechOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the adapters, starts the exercise and begins draining the
// shot queue.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	cfg := s.cfg

	kind, err := exercise.ParseKind(cfg.Exercise)
	if err != nil {
		return err
	}
	courses, err := course.LoadFile(cfg.CoursesFile)
	if err != nil {
		return err
	}
	snapshots, err := s.snapshotStore()
	if err != nil {
		return err
	}
	sessions, err := s.sessionStore()
	if err != nil {
		return err
	}

	sceneOpts := []scene.Option{
		scene.WithSize(cfg.ArenaWidth, cfg.ArenaHeight),
		scene.WithBacklog(cfg.SceneBacklog),
		scene.WithMaxShots(cfg.MaxShotMarkers),
		scene.WithClock(s.now),
	}
	if cfg.BackgroundsDir != "" {
		sceneOpts = append(sceneOpts, scene.WithBackgrounds(os.DirFS(cfg.BackgroundsDir)))
	}
	arena := scene.New(sceneOpts...)

	speechOpts := []speech.Option{
		speech.WithClipsDir(cfg.ClipsDir),
		speech.WithOutput(s.speechOut),
		speech.WithSilenced(cfg.SpeechSilenced),
		speech.WithListener(func(u string) { arena.Publish(scene.MessageSpeech, u) }),
	}
	if s.speechPlayer != nil {
		speechOpts = append(speechOpts, speech.WithPlayer(s.speechPlayer))
	}
	speaker := speech.New(speechOpts...)

	driver, err := exercise.NewDriver(kind, exercise.Deps{
		Arena:     arena,
		Speaker:   speaker,
		Targets:   targetio.NewCatalog(targetio.DirWithBuiltin(cfg.TargetsDir)),
		Scheduler: s.scheduler,
		Snapshots: snapshots,
		Sessions:  sessions,
		Courses:   courses,
		Now:       s.now,
	}, s.settings())
	if err == nil {
		err = driver.Start(ctx)
	}
	if err != nil {
		if driver != nil {
			driver.Close()
		}
		_ = speaker.Close()
		_ = arena.Close()
		_ = sessions.Close()
		return fmt.Errorf("start exercise: %w", err)
	}

	s.arena = arena
	s.speaker = speaker
	s.sessions = sessions
	s.driver = driver
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	s.shots = queue.NewInMemoryQueue[model.Shot](
		queue.WithCapacity(cfg.ShotQueueSize),
		queue.WithName(shotsQueueName),
	)
	s.worker = worker.NewInMemoryWorker(s.shots, driver, worker.WithName("exercise"))
	go s.worker.Run(context.Background())

	if len(cfg.KafkaBrokers) > 0 {
		src, err := kafka.NewSource(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroup,
		}, s)
		if err != nil {
			s.logger.Error(ctx, "kafka source disabled", logger.Error(err))
		} else {
			s.runSource(src)
		}
	}

	s.started = true
	s.logger.Info(ctx, "shootsim service started",
		logger.String("exercise", string(kind)),
		logger.Int("queueSize", cfg.ShotQueueSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
		logger.Bool("speech", !speaker.Silenced()),
		logger.Bool("kafka", s.source != nil),
	)
	return nil
}

func (s *Service) settings() exercise.Settings {
	cfg := s.cfg
	st := exercise.DefaultSettings()
	st.MaxHits = cfg.MaxHits
	st.AutoReset = cfg.AutoReset
	st.AutoSave = cfg.AutoSave
	st.TargetWidthCM = cfg.TargetWidthCM
	st.TrainingScale = cfg.TrainingScale
	st.AnnounceDelay = cfg.AnnounceDelay
	st.ResetDelay = cfg.ResetDelay
	for _, p := range cfg.Placements {
		st.Placements = append(st.Placements, exercise.TargetPlacement{Ref: p.Ref, X: p.X, Y: p.Y})
	}
	st.MaxTargets = cfg.MaxTargets
	st.RequiredHits = cfg.RequiredHits
	st.InjectDontShoot = cfg.InjectDontShoot
	if len(cfg.TargetRefs) > 0 {
		st.TargetRefs = cfg.TargetRefs
	}
	if cfg.RandSeed != 0 {
		st.Rand = layout.SeededRand(cfg.RandSeed, cfg.RandSeed)
	}
	return st
}

func (s *Service) snapshotStore() (exercise.SnapshotStore, error) {
	cfg := s.cfg
	if cfg.SnapshotBackend == config.BackendMinio {
		return snapshot.NewBucketStore(snapshot.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Secure:    cfg.MinioSecure,
		})
	}
	return snapshot.NewDirStore(cfg.SnapshotDir), nil
}

func (s *Service) sessionStore() (repository.Store, error) {
	cfg := s.cfg
	if cfg.SessionBackend == config.BackendSQLite {
		return repository.OpenSQLite(cfg.SessionDBPath)
	}
	return repository.NewMemoryStore(repository.WithCapacity(cfg.SessionCapacity)), nil
}

// runSource feeds src into Submit until Stop cancels it. Callers hold s.mu.
func (s *Service) runSource(src *kafka.Source) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.source, s.cancelSource, s.sourceDone = src, cancel, done
	go func() {
		defer close(done)
		_ = src.Run(ctx)
	}()
}

// Stop drains queued shots and shuts every component down. The Kafka source
// submits through the service, so it is stopped before s.mu is held.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	src, cancelSource, sourceDone := s.source, s.cancelSource, s.sourceDone
	s.source, s.cancelSource, s.sourceDone = nil, nil, nil
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping shootsim service...")

	if src != nil {
		cancelSource()
		<-sourceDone
		if err := src.Close(); err != nil {
			s.logger.Warn(ctx, "kafka reader close failed", logger.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Closing the queue lets the worker drain what was accepted.
	_ = s.shots.Close()
	select {
	case <-s.worker.Done():
	case <-time.After(drainTimeout):
		shutdownCtx, cancel := context.WithTimeout(ctx, drainTimeout)
		if err := s.worker.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "worker shutdown timed out", logger.Error(err))
		}
		cancel()
	}

	s.driver.Close()
	_ = s.speaker.Close()
	_ = s.arena.Close()
	if err := s.sessions.Close(); err != nil {
		s.logger.Warn(ctx, "session store close failed", logger.Error(err))
	}

	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "shootsim service stopped")
}

// Submit deduplicates and enqueues a shot. A shot without an id gets a
// random one. It returns queue.ErrFull on backpressure, in which case the id
// is forgotten so the shot can be retried.
func (s *Service) Submit(ctx context.Context, shot model.Shot) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	if shot.ID == "" {
		shot.ID = uuid.NewString()
	}
	metrics.RecordShotReceived(shot.Color.String())

	if s.deduper.SeenAndRecord(ctx, shot.ID) {
		metrics.RecordShotDuplicate()
		s.logger.Debug(ctx, "duplicate shot detected, skipping", logger.String("shot_id", shot.ID))
		return true, nil
	}
	if !s.shots.Enqueue(ctx, shot) {
		s.deduper.Unrecord(ctx, shot.ID)
		metrics.RecordShotRejected("backpressure")
		return false, queue.ErrFull
	}
	metrics.UpdateQueueSize(shotsQueueName, s.shots.Len())
	return false, nil
}

// Reset restarts the running exercise.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.driver.Reset(ctx)
}

// SetSpeechSilenced toggles spoken feedback between audio and log-only
// output. It returns speech.ErrAudioUnavailable when audio cannot be enabled.
func (s *Service) SetSpeechSilenced(silenced bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return s.speaker.SetSilenced(silenced)
}

// Sessions returns the best n finished sessions.
func (s *Service) Sessions(ctx context.Context, n int) ([]repository.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.sessions.TopN(ctx, n)
}

// Capture renders the current scene.
func (s *Service) Capture(ctx context.Context) (image.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.arena.Capture(ctx)
}

// Subscribe streams feed, speech and background changes. The returned func
// ends the subscription.
func (s *Service) Subscribe(buffer int) (<-chan scene.Message, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	ch, cancel := s.arena.Subscribe(buffer)
	return ch, cancel, nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Started: s.started}
	if !s.started {
		return st
	}
	st.Stats = s.driver.Stats()
	st.QueueLength = s.shots.Len()
	st.QueueCapacity = s.shots.Capacity()
	st.DedupeSize = s.deduper.Size()
	st.Sessions = s.sessions.Count(ctx)
	st.SpeechSilenced = s.speaker.Silenced()
	if view, err := s.arena.View(ctx); err == nil {
		st.Scene = view
	} else {
		s.logger.Warn(ctx, "scene view unavailable", logger.Error(err))
	}

	metrics.UpdateQueueSize(shotsQueueName, st.QueueLength)
	return st
}
