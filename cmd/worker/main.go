// Package main runs a reference worker: a job service backend that the
// gateway can route to over gRPC, HTTP, or both.
//
// The worker acknowledges jobs and sessions without executing them and
// reports itself as one AVAILABLE server. Each worker needs a distinct ID;
// without one it picks "worker-" plus a random suffix.
//
// Example usage:
//
//	worker --id Backend-1 --grpc-addr :50051
//	worker --id Backend-2 --grpc-addr "" --http-addr :8081
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/dreamware/jobgateway/internal/config"
	"github.com/dreamware/jobgateway/internal/jobrpc"
	"github.com/dreamware/jobgateway/internal/logger"
	"github.com/dreamware/jobgateway/internal/server"
	"github.com/dreamware/jobgateway/internal/worker"
)

var (
	configFlag = cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a YAML config file",
		EnvVars: []string{"JOBGATEWAY_CONFIG"},
	}
	idFlag = cli.StringFlag{
		Name:  "id",
		Usage: "host name reported in status replies",
	}
	grpcAddrFlag = cli.StringFlag{
		Name:  "grpc-addr",
		Usage: "gRPC listen address, empty disables gRPC",
	}
	httpAddrFlag = cli.StringFlag{
		Name:  "http-addr",
		Usage: "HTTP listen address, empty disables HTTP",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "worker",
		Usage: "serve the job service as a gateway backend",
		Flags: []cli.Flag{
			&configFlag,
			&idFlag,
			&grpcAddrFlag,
			&httpAddrFlag,
			&logLevelFlag,
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log, nil)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if c.IsSet(idFlag.Name) {
		cfg.Worker.ID = c.String(idFlag.Name)
	}
	if c.IsSet(grpcAddrFlag.Name) {
		cfg.Worker.GRPCAddr = c.String(grpcAddrFlag.Name)
	}
	if c.IsSet(httpAddrFlag.Name) {
		cfg.Worker.HTTPAddr = c.String(httpAddrFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}
	if cfg.Worker.ID == "" {
		cfg.Worker.ID = "worker-" + uuid.NewString()[:8]
	}
	if cfg.Worker.GRPCAddr == "" && cfg.Worker.HTTPAddr == "" {
		return nil, fmt.Errorf("worker %s: no listen address, set --grpc-addr or --http-addr", cfg.Worker.ID)
	}
	return cfg, nil
}

// serve runs a worker until ctx is done. ready, if non-nil, receives the
// server once its listeners are bound.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, ready func(*server.Server)) error {
	w := worker.New(cfg.Worker.ID, log)
	srv := server.New(server.Config{
		GRPCAddr: cfg.Worker.GRPCAddr,
		HTTPAddr: cfg.Worker.HTTPAddr,
	}, w, jobrpc.NewHTTPHandler(w), log.With(zap.String("worker_id", w.ID)))
	if err := srv.Listen(); err != nil {
		return err
	}
	if ready != nil {
		ready(srv)
	}
	log.Info("worker starting",
		zap.String("worker_id", w.ID),
		zap.String("grpc_addr", srv.GRPCAddr()),
		zap.String("http_addr", srv.HTTPAddr()))
	return srv.Run(ctx)
}
