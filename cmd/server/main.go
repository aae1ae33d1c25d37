package main

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/devlas/sumup-bridge/internal/bridge"
	"github.com/devlas/sumup-bridge/internal/config"
	"github.com/devlas/sumup-bridge/internal/events"
	"github.com/devlas/sumup-bridge/internal/policy"
	"github.com/devlas/sumup-bridge/internal/taptopay"
	_ "github.com/devlas/sumup-bridge/internal/taptopay/simulated" // registers the tap-to-pay capability
	"github.com/devlas/sumup-bridge/internal/telemetry"
	"github.com/devlas/sumup-bridge/internal/terminal/simulated"
)

const tapEventSubject = "sumup.taptopay.events"

func main() {
	cfg := config.Load()

	logger, err := telemetry.NewLogger(cfg.Development)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	shutdownTracing, err := telemetry.InitTracing("sumup-bridge")
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background()) //nolint:errcheck

	metrics := telemetry.NewMetrics()

	enforcer, err := policy.NewEnforcer([]policy.Rule{
		{
			ID:         "deny_checkout_while_pending",
			Expression: "operation == 'checkout' && pending && pending_age_ms < 30000",
			Priority:   1,
			Decision:   policy.Decision{DenyDispatch: true, Reason: "checkout already in flight"},
		},
	})
	if err != nil {
		logger.Fatal("failed to compile dispatch policy", zap.Error(err))
	}

	driver := simulated.NewDriver(cfg.SimulatedDelay, logger.Named("driver"))
	br := bridge.New(driver, enforcer, metrics, logger.Named("bridge"))
	driver.SetSink(br)
	defer br.Close()

	tap := taptopay.NewManager(taptopay.RegisteredFactory(), br.Registry(), metrics, logger.Named("taptopay"))
	defer tap.Teardown() //nolint:errcheck

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		stream, cancel := tap.Subscribe()
		defer cancel()
		forwarder := events.NewForwarder(tapEventSubject, nc, nil, logger.Named("nats"))
		go forwarder.Run(stream)
		logger.Info("forwarding tap-to-pay events to NATS", zap.String("subject", tapEventSubject))
	}

	srv, err := newServer(br, tap, metrics, cfg, logger.Named("http"))
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	logger.Info("starting sumup-bridge server", zap.String("port", cfg.Port))
	if err := srv.router().Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
