// Command lmrt-sim drives the routing coordinator against a simulated NFC
// controller from an interactive shell.
//
// Usage:
//
//	lmrt-sim [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-log-level string     Log level: debug, info, warn, error (overrides config)
//	-trace string         Routing trace file path (overrides config)
//	-metrics-addr string  Serve Prometheus metrics on this address
//
// Examples:
//
//	# Start with built-in defaults
//	lmrt-sim
//
//	# Record a trace for lmrt-log
//	lmrt-sim -trace session.rtlog -log-level debug
//
//	# Expose metrics
//	lmrt-sim -config routing.yaml -metrics-addr :9090
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/cmd/lmrt-sim/interactive"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/internal/ctrlsim"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/commit"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/config"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/log"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/metrics"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

var (
	configFile  = flag.String("config", "", "Configuration file path")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
	tracePath   = flag.String("trace", "", "Routing trace file path")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
)

// Execution environments reported at startup.
var defaultEEs = []capability.EEInfo{
	{ID: 0x81, TechA: route.ProtocolIsoDep, TechB: route.ProtocolIsoDep, TechF: route.ProtocolT3T},
	{ID: 0x82, TechA: route.ProtocolIsoDep, TechF: route.ProtocolT3T},
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *tracePath != "" {
		cfg.Trace = *tracePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sinks := []log.Logger{log.NewSlogAdapter(logger)}
	if cfg.Trace != "" {
		fl, err := log.NewFileLogger(cfg.Trace, log.WithMaxSize(cfg.TraceMaxSize))
		if err != nil {
			return err
		}
		defer fl.Close()
		sinks = append(sinks, fl)
		logger.Info("routing trace enabled", "path", cfg.Trace)
	}
	plog := log.NewMultiLogger(sinks...)

	m := metrics.NewMetrics(cfg.MetricsNamespace)
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	sim := ctrlsim.New()
	defer sim.Close()
	disp := controller.NewDispatcher(sim)
	sim.Bind(disp)

	dir := ctrlsim.NewDirectory(disp)
	if cfg.ModeSetTimeout > 0 {
		dir.SetTimeout(cfg.ModeSetTimeout)
	}

	ccfg, err := cfg.CoordinatorConfig()
	if err != nil {
		return err
	}
	ccfg.Dispatcher = disp
	ccfg.Directory = dir
	ccfg.Logger = logger
	ccfg.ProtocolLogger = plog
	ccfg.Metrics = m

	coord, err := commit.New(ccfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()
	sim.OnNotify(coord.OnCapabilityNotification)

	shell, err := interactive.NewReadline(coord, sim, dir, defaultEEs...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sim.Notify()
	shell.Run(ctx, cancel)
	return nil
}
