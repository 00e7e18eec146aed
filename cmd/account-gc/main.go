package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/optakt/account-gc/gc"
	"github.com/optakt/account-gc/internal/chainevents"
	"github.com/optakt/account-gc/internal/componentry"
	"github.com/optakt/account-gc/internal/metrics"
	"github.com/optakt/account-gc/internal/scan"
	"github.com/optakt/account-gc/internal/storage"
	"github.com/optakt/account-gc/internal/swap"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var (
		flagLevel    string
		flagData     string
		flagEnabled  bool
		flagInterval uint64
		flagHistory  uint64
		flagMetrics  string
		flagSummary  time.Duration
	)

	pflag.StringVarP(&flagLevel, "log-level", "l", "info", "log output level")
	pflag.StringVarP(&flagData, "data-dir", "d", "data", "account state database directory")
	pflag.BoolVar(&flagEnabled, "gc-enabled", false, "enable the account state garbage collector")
	pflag.Uint64Var(&flagInterval, "gc-interval", 50_000, "number of key blocks between GC activations")
	pflag.Uint64Var(&flagHistory, "gc-history", 500, "number of key blocks behind the top kept reachable")
	pflag.StringVar(&flagMetrics, "metrics-host", ":9090", "host URL for the Prometheus metrics endpoint")
	pflag.DurationVar(&flagSummary, "metrics-summary-interval", 30*time.Second, "interval between zerolog metrics summaries")

	pflag.Parse()

	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(flagLevel)
	if err != nil {
		log.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failure
	}
	log = log.Level(level)

	cfg := gc.Config{
		Enabled:  flagEnabled,
		Interval: flagInterval,
		History:  flagHistory,
	}
	err = cfg.Validate()
	if err != nil {
		log.Error().Err(err).Msg("invalid gc configuration")
		return failure
	}

	db, err := storage.Open(flagData)
	if err != nil {
		log.Error().Err(err).Str("dir", flagData).Msg("could not open storage backend")
		return failure
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	promMetrics, err := metrics.NewPrometheus(registry)
	if err != nil {
		log.Error().Err(err).Msg("could not register prometheus metrics")
		return failure
	}
	summary := metrics.NewSummary()
	allMetrics := metrics.Multi{promMetrics, summary}

	output := metrics.NewOutput(log, flagSummary)
	output.Register(summary)

	swapper := swap.New(db)

	// The chain reader, trie visitor and process supervisor are owned by
	// the surrounding node; this binary only becomes fully operational
	// once the embedding application supplies real ones in place of these.
	scanner := scan.New(nil, nil)

	controller, err := gc.New(log, cfg, scanner, swapper, noopSupervisor{}, allMetrics)
	if err != nil {
		log.Error().Err(err).Msg("could not initialize gc controller")
		return failure
	}

	err = controller.MaybeSwapNodes(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("could not promote staged account state at startup")
		return failure
	}

	events := chainevents.New(log, chainevents.Source{}, controller)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: flagMetrics, Handler: mux}

	engine := componentry.New(log, "account-gc", sig)
	engine.Component("metrics-output", func() error {
		output.Run()
		return nil
	}, output.Stop)
	engine.Component("metrics-server", func() error {
		err := metricsSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	})
	engine.Component("chain-events", func() error {
		return events.Run(context.Background())
	}, func() {})
	engine.Component("gc-controller", func() error {
		return controller.Run(context.Background())
	}, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = controller.Stop(ctx)
	})

	err = engine.Run()
	if err != nil {
		log.Error().Err(err).Msg("account-gc stopped with error")
		return failure
	}

	log.Info().Msg("account-gc shutdown complete")
	return success
}

// noopSupervisor is a placeholder Supervisor for standalone runs of this
// binary; the embedding node process supplies a real one that actually
// terminates the conductor and restarts the process.
type noopSupervisor struct{}

func (noopSupervisor) TerminateConductor(ctx context.Context) error { return nil }
func (noopSupervisor) RestartProcess(ctx context.Context) error     { return nil }
