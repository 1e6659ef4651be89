// Command stream reads every GeoJSON slice file under a data directory and
// writes newline-delimited GeoJSON features to stdout for tippecanoe: raw
// per-observation features for the high zooms and H3 per-day aggregates for
// the low zooms. Logs go to stderr; stdout carries nothing but records.
//
// Usage:
//
//	stream -data-dir GeoJson -h3-res 4 \
//	  [-start-date 2024-07-01 -end-date 2024-07-08] [-omit-raw] \
//	  [-stats-gdf stats.geojson] \
//	  [-kafka-brokers host:9092 -kafka-topic fire-records] \
//	  [-metrics-addr :9102] > features.ndjson
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/3dfirelab/webFET/internal/adapter/http"
	kafkaadapter "github.com/3dfirelab/webFET/internal/adapter/kafka"
	"github.com/3dfirelab/webFET/internal/config"
	"github.com/3dfirelab/webFET/internal/emit"
	"github.com/3dfirelab/webFET/internal/observability"
	"github.com/3dfirelab/webFET/internal/pipeline"
	"github.com/3dfirelab/webFET/internal/source"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// A closed downstream pipe must surface as a write error the sink can
	// map to a clean stop, not kill the process.
	signal.Ignore(syscall.SIGPIPE)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := source.NewScanner(cfg.DataDir, logger, metrics)
	stats := source.LoadStats(cfg.StatsPath, logger)

	var sink emit.Sink = emit.NewNDJSONSink(os.Stdout)
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		sink = emit.MultiSink{sink, writer}
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(scanner, sink, pipeline.Options{
		Resolution:  cfg.Resolution,
		LowZoomMax:  cfg.LowZoomMax,
		HighZoomMin: cfg.HighZoomMin,
		OmitRaw:     cfg.OmitRaw,
		Window:      cfg.Window,
		Stats:       stats,
	}, logger, metrics)

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)

	if err := sink.Close(); err != nil && !errors.Is(err, emit.ErrSinkClosed) {
		logger.Error("sink close error", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, context.Canceled):
		logger.Info("stream interrupted")
		return 130
	default:
		logger.Error("stream failed", "error", runErr)
		return 1
	}
}
