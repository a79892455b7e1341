package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/GCS-LG/walking-controllers/internal/config"
	"github.com/GCS-LG/walking-controllers/internal/driver/candriver"
	"github.com/GCS-LG/walking-controllers/internal/fsm"
	"github.com/GCS-LG/walking-controllers/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "config/walking_config.json", "Path to the controller configuration document")
		iface      = flag.String("iface", "can0", "SocketCAN interface name")
		logPath    = flag.String("log", "walking_controller.log", "Log file path")
		logLevel   = flag.String("log-level", "info", "trace|debug|info|warn|error|critical")
	)
	flag.Parse()

	log, err := logging.NewFileLogger(*logPath, logging.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open " + *logPath + ": " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Critical("config load failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	drv, err := candriver.NewDriver(ctx, candriver.Config{
		Interface:     *iface,
		JointNames:    cfg.RobotControl.ActuatedJoints,
		UseFootWrench: cfg.FTSensors.UseFootWrench,
	}, log)
	if err != nil {
		log.Critical("driver startup failed: %v", err)
		os.Exit(1)
	}
	defer drv.Close()

	orch, err := fsm.NewOrchestrator(cfg, drv, &unwiredKinematicsProvider{}, nil, nil, log)
	if err != nil {
		log.Critical("orchestrator startup failed: %v", err)
		os.Exit(1)
	}

	runner := NewRunner(orch, log, cfg.General.SamplingTime)
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("run failed: %v", err)
		os.Exit(1)
	}
}
