// Command shotgen fires synthetic shots at a running shootsim.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/shootsim/internal/adapters/mq/kafka"
	"github.com/okian/shootsim/internal/shotgen"
	"github.com/okian/shootsim/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumShots    = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultDrain       = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service; empty skips health and drain checks")
		transport = flag.String("transport", shotgen.TransportHTTP, "Submit over http or kafka")
		brokers   = flag.String("brokers", "", "Comma separated Kafka brokers")
		topic     = flag.String("topic", "shots", "Kafka shot topic")
		numShots  = flag.Int("shots", defaultNumShots, "Number of distinct shots to generate")
		dupRatio  = flag.Float64("dup", 0.05, "Share of extra resends of generated ids")
		green     = flag.Float64("green", 0.5, "Share of green laser shots")
		width     = flag.Float64("width", 640, "Arena width")
		height    = flag.Float64("height", 480, "Arena height")
		seed      = flag.Uint64("seed", 0, "Generator seed; 0 uses the clock")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent HTTP submitters")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		drain     = flag.Duration("drain", defaultDrain, "How long to wait for the queue to drain")
		output    = flag.String("output", "", "Optional JSON file for the generated shots")
		jsonLogs  = flag.Bool("json", false, "Log as JSON")
		verbose   = flag.Bool("verbose", false, "Log every rejected shot")
	)
	flag.Parse()

	if err := logger.Init(logger.WithJSON(*jsonLogs)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &shotgen.Config{
		BaseURL:        strings.TrimRight(*baseURL, "/"),
		Transport:      *transport,
		KafkaTopic:     *topic,
		NumShots:       *numShots,
		DuplicateRatio: *dupRatio,
		GreenRatio:     *green,
		Width:          *width,
		Height:         *height,
		Seed:           *seed,
		Workers:        *workers,
		Timeout:        *timeout,
		DrainTimeout:   *drain,
		OutputFile:     *output,
		Verbose:        *verbose,
	}
	if *brokers != "" {
		cfg.KafkaBrokers = strings.Split(*brokers, ",")
	}

	var pub shotgen.Publisher
	if cfg.Transport == shotgen.TransportKafka && len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := p.Close(); err != nil {
				logger.Get().Warn(ctx, "kafka writer close failed", logger.Error(err))
			}
		}()
		pub = p
	}

	stats, err := shotgen.Run(ctx, cfg, pub)
	if err != nil {
		logger.Get().Error(ctx, "shot run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
	if stats.Failed > 0 {
		logger.Get().Warn(ctx, "some shots were not accepted", logger.Int("failed", stats.Failed))
	}
}
