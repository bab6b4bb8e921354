// Command timerctl hosts timer managers and a store, driven from an
// interactive shell and an optional HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/librescoot/timeout"
	"github.com/librescoot/timeout/internal/config"
	"github.com/librescoot/timeout/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "timerctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "timerctl.yaml", "path to the configuration file")
	headless := flag.Bool("headless", false, "run without the interactive shell")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	var sh *shell
	var console io.Writer = os.Stderr
	if !*headless {
		if sh, err = newShell(); err != nil {
			return err
		}
		console = sh.Stdout()
	}

	logger := logging.New(logging.Options{
		Level:   level,
		Console: console,
		File:    cfg.Log.File,
	})
	defer logger.Close()

	registry := prometheus.NewRegistry()
	metrics := timeout.NewMetrics(registry)

	a, err := newApp(cfg, logger.Logger, timeout.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer a.stopAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		gin.SetMode(cfg.HTTP.GinMode)
		srv := newServer(cfg.HTTP.Listen, newRouter(a, registry))

		go func() {
			err := serve(ctx, srv, logger.Logger)
			if err != nil {
				logger.Error("http server failed", "error", err)
				cancel()
			}
			httpErr <- err
		}()
	} else {
		httpErr <- nil
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	shellDone := make(chan struct{})
	if sh != nil {
		sh.app = a
		sh.level = logger
		go func() {
			defer close(shellDone)
			sh.Run(ctx, cancel)
		}()
	} else {
		close(shellDone)
	}

	<-ctx.Done()
	<-shellDone
	return <-httpErr
}
