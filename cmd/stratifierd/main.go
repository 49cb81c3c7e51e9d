package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ckpool-go/stratifier/internal/config"
	"github.com/ckpool-go/stratifier/internal/connector"
	"github.com/ckpool-go/stratifier/internal/poolstats"
)

// shutdownTimeout bounds how long the metrics HTTP server is given to
// drain in-flight scrapes on shutdown.
const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "/etc/stratifier/config.yaml", "path to the stratifier's YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stratifierd: %v\n", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stratifierd: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newServer(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}

	promReg := prometheus.NewRegistry()
	srv.exporter = poolstats.NewExporter(srv.aggregator, promReg)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		httpSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	go func() {
		if err := srv.recvLn.Serve(func(frame connector.InboundFrame) {
			srv.handleInbound(ctx, frame)
		}); err != nil {
			log.Warn("receive listener stopped", zap.Error(err))
		}
	}()

	go srv.runReceive(ctx)
	go srv.runAuth(ctx)
	go srv.runShare(ctx)
	go srv.runTxn(ctx)
	go srv.runSend(ctx)
	go srv.runDatabase(ctx)
	go srv.runStats(ctx)
	go srv.runRefresh(ctx)

	log.Info("stratifierd started", zap.String("mode", string(cfg.Pool.Mode)))

	<-ctx.Done()
	log.Info("stratifierd shutting down")
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			level = zapcore.InfoLevel
		}
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
