package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/export"
	"github.com/joseph-ayodele/pdftoxl/internal/extract"
	"github.com/joseph-ayodele/pdftoxl/internal/llm/resolve"
	"github.com/joseph-ayodele/pdftoxl/internal/observer"
	"github.com/joseph-ayodele/pdftoxl/internal/pipeline"
	"github.com/joseph-ayodele/pdftoxl/internal/repository"
	"github.com/joseph-ayodele/pdftoxl/internal/server"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

const (
	shutdownTimeout = 30 * time.Second
	ledgerProbe     = 30 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := common.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inst := observer.Nop()
	if cfg.Telemetry.Enabled {
		otelInst, shutdown, err := observer.Init(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logger.Error("failed to init telemetry", "error", err)
			return 1
		}
		inst = otelInst
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	client, err := resolve.Client(cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to create LLM client", "error", err)
		return 2
	}

	opts := []pipeline.Option{
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithFileTimeout(cfg.Pipeline.FileTimeout),
		pipeline.WithBatchTimeout(cfg.Pipeline.BatchTimeout),
	}
	var ledger *repository.DB
	if cfg.Database.JobLedger {
		db, jobs, err := repository.OpenLedger(ctx, cfg.Database, logger)
		if err != nil {
			// the ledger never blocks extraction
			logger.Error("job ledger disabled", "error", err)
		} else {
			ledger = db
			defer db.Close(logger)
			opts = append(opts, pipeline.WithLedger(jobs))
		}
	}

	proc := pipeline.New(extract.NewPDFExtractor(logger), observer.WrapLLM(client, inst), logger, inst)
	batch := pipeline.NewBatch(proc, logger, opts...)
	srv := server.New(cfg.Server, batch, export.NewService(logger), templates.Default(), logger)

	var health *server.HealthServer
	if cfg.Server.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCHealthAddr, "error", err)
			return 1
		}
		health = server.NewHealthServer(logger)
		if ledger != nil {
			health.Probe(ctx, "ledger", ledgerProbe, func(ctx context.Context) error {
				return ledger.HealthCheck(ctx, 2*time.Second, logger)
			})
		}
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("gRPC health serve error", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("pdftoxl listening",
			"addr", cfg.Server.HTTPAddr,
			"provider", client.Name(),
			"model", client.Model(),
			"ledger", ledger != nil,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		logger.Error("http serve error", "error", err)
		code = 1
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if health != nil {
		health.Stop()
	}
	return code
}
