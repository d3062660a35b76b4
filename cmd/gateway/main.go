// Package main implements the job gateway, which fronts a fixed pool of
// workers and presents them to clients as a single job service.
//
// The gateway is the only process clients talk to. It:
//   - Forwards SubmitJob and CreateRemoteSession to one selected worker
//   - Broadcasts GetStatus to every worker and merges the replies
//   - Monitors worker health for operators (GET /backends)
//
// Architecture:
//
//	┌───────────────────────────────────────────┐
//	│                 Gateway                   │
//	├───────────────────────────────────────────┤
//	│  gRPC  DistributedJobService, Health      │
//	│  HTTP  /jobs /sessions /status /health    │
//	│        /backends                          │
//	├───────────────────────────────────────────┤
//	│  Registry ─► Backend (gRPC | HTTP) × N    │
//	│  HealthMonitor                            │
//	└───────────────────────────────────────────┘
//
// Configuration comes from an optional YAML file, JOBGATEWAY_* environment
// variables and command-line flags, in increasing order of precedence.
//
// Example usage:
//
//	# Two gRPC workers, hash routing
//	gateway --backend localhost:50051 --backend localhost:50052 --strategy hash
//
//	# Submit a job through the gateway
//	curl -X POST localhost:8080/jobs -d '{"job_id":"job-123"}'
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/jobgateway/internal/backend"
	"github.com/dreamware/jobgateway/internal/config"
	"github.com/dreamware/jobgateway/internal/coordinator"
	"github.com/dreamware/jobgateway/internal/gateway"
	"github.com/dreamware/jobgateway/internal/logger"
	"github.com/dreamware/jobgateway/internal/server"
)

var (
	configFlag = cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a YAML config file",
		EnvVars: []string{"JOBGATEWAY_CONFIG"},
	}
	grpcAddrFlag = cli.StringFlag{
		Name:  "grpc-addr",
		Usage: "gRPC listen address, empty disables gRPC",
	}
	httpAddrFlag = cli.StringFlag{
		Name:  "http-addr",
		Usage: "HTTP listen address, empty disables HTTP",
	}
	backendFlag = cli.StringSliceFlag{
		Name:  "backend",
		Usage: "backend address (repeatable, replaces the configured list); http:// and https:// addresses use HTTP, others gRPC",
	}
	strategyFlag = cli.StringFlag{
		Name:  "strategy",
		Usage: "backend selection for unicast calls: first, round-robin or hash",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "broadcast-timeout",
		Usage: "how long GetStatus waits for backends",
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
		Name:  "gateway",
		Usage: "route jobs and sessions to a pool of workers",
		Flags: []cli.Flag{
			&configFlag,
			&grpcAddrFlag,
			&httpAddrFlag,
			&backendFlag,
			&strategyFlag,
			&timeoutFlag,
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

// loadConfig layers flags that were set explicitly over file and env
// settings.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if c.IsSet(grpcAddrFlag.Name) {
		cfg.Gateway.GRPCAddr = c.String(grpcAddrFlag.Name)
	}
	if c.IsSet(httpAddrFlag.Name) {
		cfg.Gateway.HTTPAddr = c.String(httpAddrFlag.Name)
	}
	if c.IsSet(backendFlag.Name) {
		cfg.Backends = c.StringSlice(backendFlag.Name)
	}
	if c.IsSet(strategyFlag.Name) {
		cfg.Gateway.Strategy = c.String(strategyFlag.Name)
	}
	if c.IsSet(timeoutFlag.Name) {
		cfg.Gateway.BroadcastTimeout = c.Duration(timeoutFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serve runs the gateway until ctx is done. ready, if non-nil, is called
// once the listeners are bound.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, ready func(*server.Server)) error {
	strategy, err := coordinator.StrategyByName(cfg.Gateway.Strategy)
	if err != nil {
		return err
	}
	backends, err := backend.DialAll(cfg.Backends)
	if err != nil {
		return err
	}
	reg := coordinator.NewRegistry(backends, strategy)
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn("closing backends", zap.Error(err))
		}
	}()

	log.Info("gateway starting",
		zap.Strings("backends", reg.Addrs()),
		zap.String("strategy", cfg.Gateway.Strategy),
		zap.Duration("broadcast_timeout", cfg.Gateway.BroadcastTimeout))
	if reg.Empty() {
		log.Warn("no backends configured, unicast calls will fail")
	}

	gw := gateway.New(reg, cfg.Gateway.BroadcastTimeout, log)
	monitor := coordinator.NewHealthMonitor(cfg.Health.Interval, cfg.Health.Timeout, log.Named("health"))
	monitor.SetOnUnhealthy(onUnhealthy(log, reg, cfg.Gateway.Strategy))

	srv := server.New(server.Config{
		GRPCAddr: cfg.Gateway.GRPCAddr,
		HTTPAddr: cfg.Gateway.HTTPAddr,
	}, gw, gateway.NewHTTPHandler(gw, monitor), log)
	if err := srv.Listen(); err != nil {
		return err
	}
	if ready != nil {
		ready(srv)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		monitor.Start(ctx, reg)
		return nil
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})
	err = g.Wait()
	monitor.Stop()
	log.Info("gateway stopped")
	return err
}

// onUnhealthy reports what an unhealthy backend means for traffic. With the
// first strategy the backend at index 0 receives every unicast call, so
// losing it fails all of them.
func onUnhealthy(log *zap.Logger, reg *coordinator.Registry, strategy string) func(addr string) {
	return func(addr string) {
		idx := slices.Index(reg.Addrs(), addr)
		fields := []zap.Field{
			zap.String("backend", addr),
			zap.Int("index", idx),
			zap.String("strategy", strategy),
		}
		if (strategy == "" || strategy == "first") && idx == 0 {
			log.Error("unicast target unhealthy, jobs and sessions will fail until it recovers", fields...)
			return
		}
		log.Warn("backend unhealthy, calls routed to it will fail", fields...)
	}
}
