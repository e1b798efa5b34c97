package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/leap/engine"
	"github.com/spaghettifunk/leap/engine/config"
	"github.com/spaghettifunk/leap/engine/core"
	"github.com/spaghettifunk/leap/testbed"
)

const defaultConfigPath = "config.json"

func main() {
	if err := run(); err != nil {
		core.LogError("leap: %s", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("LEAP_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	e, err := engine.New(cfg, testbed.NewTestGame().Game)
	if err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		e.Stop()
	}()

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}
	runErr := e.Run()
	if err := e.Shutdown(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
