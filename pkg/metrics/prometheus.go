// Package metrics provides Prometheus metrics for the shootsim service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the shootsim service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Shot intake
	shotsReceived  *prometheus.CounterVec
	shotsDuplicate prometheus.Counter
	shotsRejected  *prometheus.CounterVec
	shotLatency    prometheus.Histogram

	// Exercise state
	hits              *prometheus.CounterVec
	misses            *prometheus.CounterVec
	score             *prometheus.GaugeVec
	roundIndex        prometheus.Gauge
	rounds            *prometheus.CounterVec
	pointsParseErrors prometheus.Counter
	autoResets        prometheus.Counter

	// Layout
	layoutPlaced       *prometheus.CounterVec
	layoutLoadFailures prometheus.Counter
	layoutScale        *prometheus.HistogramVec

	// Queues and scene presenter
	queueSize         *prometheus.GaugeVec
	queueDropped      *prometheus.CounterVec
	sceneTasks        prometheus.Counter
	sceneTasksDropped prometheus.Counter
	sceneTargets      prometheus.Gauge

	// Feedback and persistence
	utterances     *prometheus.CounterVec
	snapshotErrors prometheus.Counter
	snapshotsSaved prometheus.Counter
	sessionErrors  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "shootsim",
		subsystem:        "range",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(base string) string {
	if m.metricPrefix == "" {
		return base
	}
	return m.metricPrefix + "_" + base
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.shotsReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("shots_received_total"),
		Help: "Shots accepted for dispatch by laser color",
	}, []string{"color"})

	m.shotsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("shots_duplicate_total"),
		Help: "Shots dropped because their id was already dispatched",
	})

	m.shotsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("shots_rejected_total"),
		Help: "Shots rejected before dispatch by reason",
	}, []string{"reason"})

	m.shotLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("shot_dispatch_latency_milliseconds"),
		Help:    "Time spent resolving and scoring one shot",
		Buckets: m.histogramBuckets,
	})

	m.hits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("hits_total"),
		Help: "Shots that resolved to a target region",
	}, []string{"exercise"})

	m.misses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("misses_total"),
		Help: "Shots that resolved to no region",
	}, []string{"exercise"})

	m.score = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("score"),
		Help: "Current running score by shooter",
	}, []string{"exercise", "shooter"})

	m.roundIndex = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("round_index"),
		Help: "Index of the active course in the elimination exercise",
	})

	m.rounds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("rounds_total"),
		Help: "Completed rounds by end reason",
	}, []string{"reason"})

	m.pointsParseErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("points_parse_errors_total"),
		Help: "Region points tags that were not integers",
	})

	m.autoResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("auto_resets_total"),
		Help: "Auto-reset sequences started after reaching max hits",
	})

	m.layoutPlaced = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("layout_targets_placed_total"),
		Help: "Targets placed by the course layout generator",
	}, []string{"role"})

	m.layoutLoadFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("layout_load_failures_total"),
		Help: "Placement slots skipped because a target definition failed to load",
	})

	m.layoutScale = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("layout_scale"),
		Help:    "Scale factors chosen by perceived distance",
		Buckets: []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"distance"})

	m.queueSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_size"),
		Help: "Pending items per in-memory queue",
	}, []string{"queue"})

	m.queueDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("queue_dropped_total"),
		Help: "Items rejected by a queue because it was full or closed",
	}, []string{"queue", "reason"})

	m.sceneTasks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("scene_tasks_total"),
		Help: "Scene tasks executed by the presenter",
	})

	m.sceneTasksDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("scene_tasks_dropped_total"),
		Help: "Scene tasks rejected because the queue was full or closed",
	})

	m.sceneTargets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("scene_targets"),
		Help: "Targets currently in the scene",
	})

	m.utterances = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("speech_utterances_total"),
		Help: "Spoken feedback by output mode",
	}, []string{"mode"})

	m.snapshotErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("snapshot_errors_total"),
		Help: "Feed snapshots that failed to capture or save",
	})

	m.snapshotsSaved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("snapshots_saved_total"),
		Help: "Feed snapshots written to storage",
	})

	m.sessionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("session_record_errors_total"),
		Help: "Session results that failed to persist",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_requests_total"),
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    m.name("http_request_duration_milliseconds"),
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: m.name("http_errors_total"),
		Help: "HTTP errors by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})
}

// RecordShotReceived counts a shot accepted for dispatch.
func RecordShotReceived(color string) {
	if !Enabled() {
		return
	}
	globalManager.shotsReceived.WithLabelValues(color).Inc()
}

// RecordShotDuplicate counts a shot dropped by dedupe.
func RecordShotDuplicate() {
	if !Enabled() {
		return
	}
	globalManager.shotsDuplicate.Inc()
}

// RecordShotRejected counts a shot that never reached the dispatcher.
func RecordShotRejected(reason string) {
	if !Enabled() {
		return
	}
	globalManager.shotsRejected.WithLabelValues(reason).Inc()
}

// RecordShotLatency records dispatch latency in milliseconds.
func RecordShotLatency(latencyMs float64) {
	if !Enabled() {
		return
	}
	globalManager.shotLatency.Observe(latencyMs)
}

// RecordHit counts a resolved hit.
func RecordHit(exercise string) {
	if !Enabled() {
		return
	}
	globalManager.hits.WithLabelValues(exercise).Inc()
}

// RecordMiss counts a shot that resolved to nothing.
func RecordMiss(exercise string) {
	if !Enabled() {
		return
	}
	globalManager.misses.WithLabelValues(exercise).Inc()
}

// UpdateScore sets the running score for a shooter.
func UpdateScore(exercise, shooter string, score int) {
	if !Enabled() {
		return
	}
	globalManager.score.WithLabelValues(exercise, shooter).Set(float64(score))
}

// UpdateRoundIndex sets the active course index.
func UpdateRoundIndex(index int) {
	if !Enabled() {
		return
	}
	globalManager.roundIndex.Set(float64(index))
}

// RecordRoundEnd counts a finished round.
func RecordRoundEnd(reason string) {
	if !Enabled() {
		return
	}
	globalManager.rounds.WithLabelValues(reason).Inc()
}

// RecordPointsParseError counts a malformed points tag.
func RecordPointsParseError() {
	if !Enabled() {
		return
	}
	globalManager.pointsParseErrors.Inc()
}

// RecordAutoReset counts a started auto-reset sequence.
func RecordAutoReset() {
	if !Enabled() {
		return
	}
	globalManager.autoResets.Inc()
}

// RecordLayoutPlaced counts a placed target by role (shoot, dont_shoot).
func RecordLayoutPlaced(role string) {
	if !Enabled() {
		return
	}
	globalManager.layoutPlaced.WithLabelValues(role).Inc()
}

// RecordLayoutLoadFailure counts a skipped placement slot.
func RecordLayoutLoadFailure() {
	if !Enabled() {
		return
	}
	globalManager.layoutLoadFailures.Inc()
}

// RecordLayoutScale observes a chosen scale factor.
func RecordLayoutScale(distance string, scale float64) {
	if !Enabled() {
		return
	}
	globalManager.layoutScale.WithLabelValues(distance).Observe(scale)
}

// UpdateQueueSize sets the pending item count of a named queue.
func UpdateQueueSize(queue string, size int) {
	if !Enabled() {
		return
	}
	globalManager.queueSize.WithLabelValues(queue).Set(float64(size))
}

// RecordQueueDropped counts an item a queue refused (full, closed).
func RecordQueueDropped(queue, reason string) {
	if !Enabled() {
		return
	}
	globalManager.queueDropped.WithLabelValues(queue, reason).Inc()
}

// RecordSceneTask counts an executed scene task.
func RecordSceneTask() {
	if !Enabled() {
		return
	}
	globalManager.sceneTasks.Inc()
}

// RecordSceneTaskDropped counts a scene task that could not be queued.
func RecordSceneTaskDropped() {
	if !Enabled() {
		return
	}
	globalManager.sceneTasksDropped.Inc()
}

// UpdateSceneTargets sets the number of targets in the scene.
func UpdateSceneTargets(count int) {
	if !Enabled() {
		return
	}
	globalManager.sceneTargets.Set(float64(count))
}

// RecordUtterance counts spoken feedback by mode (audio, silenced).
func RecordUtterance(mode string) {
	if !Enabled() {
		return
	}
	globalManager.utterances.WithLabelValues(mode).Inc()
}

// RecordSnapshotError counts a failed snapshot.
func RecordSnapshotError() {
	if !Enabled() {
		return
	}
	globalManager.snapshotErrors.Inc()
}

// RecordSnapshotSaved counts a stored snapshot.
func RecordSnapshotSaved() {
	if !Enabled() {
		return
	}
	globalManager.snapshotsSaved.Inc()
}

// RecordSessionError counts a session result that failed to persist.
func RecordSessionError() {
	if !Enabled() {
		return
	}
	globalManager.sessionErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !Enabled() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !Enabled() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !Enabled() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// Enabled reports whether the global recorders update their metrics.
func Enabled() bool {
	return globalManager.enabled.Load()
}

// SetEnabled turns the global recorders on or off. Values already recorded
// stay in the registry.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// RefreshInterval is how often periodically sampled gauges are refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
