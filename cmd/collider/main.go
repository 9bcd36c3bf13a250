// cmd/collider/main.go
// Truncated-digest collision search: scans a seeded sample stream across all
// CPUs until two distinct samples share a fingerprint and pass the digest
// filter. Prometheus metrics, optional gRPC health, bbolt event journal.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dattu/truncated_collider/pkg/config"
	"github.com/dattu/truncated_collider/pkg/search"
	"github.com/dattu/truncated_collider/pkg/status"
	"github.com/dattu/truncated_collider/pkg/storage"
)

/* ------------------------------------------------------------------------ */
/* exit codes                                                               */
/* ------------------------------------------------------------------------ */

const (
	exitFound     = 0
	exitError     = 1
	exitExhausted = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("collider", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML config file")
	dump := fs.String("dump", "", "print the event journal at this path and exit")
	config.Flags(fs)
	_ = fs.Parse(args)

	if *dump != "" {
		return dumpJournal(*dump)
	}

	cfg, err := config.Load(*cfgPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitError
	}
	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return exitError
	}
	defer log.Sync()

	params, err := cfg.SearchParams()
	if err != nil {
		log.Error("invalid search parameters", zap.Error(err))
		return exitError
	}

	/* metrics */
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := search.NewMetrics(reg)
	if cfg.Server.MetricsPort != 0 {
		go serveMetrics(log, reg, cfg.Server.MetricsPort)
	}

	/* observers */
	observers := search.Observers{newConsole(os.Stdout)}
	var journal *storage.Journal
	if cfg.Storage.Journal != "" {
		journal, err = storage.OpenJournal(cfg.Storage.Journal, log)
		if err != nil {
			log.Error("journal unavailable", zap.Error(err))
			return exitError
		}
		observers = append(observers, journal)
	}

	/* health */
	var health *status.Server
	if cfg.Server.GRPCPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			log.Error("listen", zap.Int("port", cfg.Server.GRPCPort), zap.Error(err))
			return exitError
		}
		health = status.New(log)
		go func() {
			if err := health.Serve(lis); err != nil {
				log.Warn("health service stopped", zap.Error(err))
			}
		}()
	}

	s, err := search.New(params,
		search.WithLogger(log),
		search.WithObserver(observers),
		search.WithMetrics(metrics))
	if err != nil {
		log.Error("create search", zap.Error(err))
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if health != nil {
		health.Started()
	}
	ev, runErr := s.Run(ctx)
	if health != nil {
		health.Finished()
		health.Stop()
	}

	var closeErr error
	if journal != nil {
		closeErr = multierr.Append(closeErr, journal.Close())
	}
	if runErr == nil && cfg.Storage.Report != "" {
		report := storage.NewReport(*ev, params.CompareBits, params.Seed.String())
		closeErr = multierr.Append(closeErr, storage.WriteReport(cfg.Storage.Report, report))
	}
	for _, err := range multierr.Errors(closeErr) {
		log.Error("shutdown", zap.Error(err))
	}

	switch {
	case runErr == nil:
		return exitFound
	case errors.Is(runErr, search.ErrExhausted):
		log.Warn("position space exhausted without a verified collision", zap.Uint64("count", s.Count()))
		return exitExhausted
	default:
		log.Error("search failed", zap.Error(runErr))
		return exitError
	}
}

/* ------------------------------------------------------------------------ */
/* helpers                                                                  */
/* ------------------------------------------------------------------------ */

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func serveMetrics(log *zap.Logger, reg *prometheus.Registry, port int) {
	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	log.Info("prometheus metrics", zap.String("addr", addr+"/metrics"))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics endpoint stopped", zap.Error(err))
	}
}

func dumpJournal(path string) int {
	recs, err := storage.ReadJournal(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitError
	}
	for _, r := range recs {
		switch r.Kind {
		case "progress":
			fmt.Printf("%6d %s %-12s -> %08d\n", r.Seq, r.Time.Format("2006-01-02T15:04:05"), r.Kind, r.Count)
		default:
			fmt.Printf("%6d %s %-12s %s %d:%s %d:%s\n", r.Seq, r.Time.Format("2006-01-02T15:04:05"), r.Kind,
				r.Fingerprint, r.PrevPosition, r.PrevSample, r.CurrPosition, r.CurrSample)
		}
	}
	return exitFound
}
