package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
// Cancellation aborts the worker group, so every rank returns from its
// pending collective. A second signal exits immediately.
func SetupSignalHandler() context.Context {
	return notifyContext(context.Background(), os.Exit, syscall.SIGINT, syscall.SIGTERM)
}

func notifyContext(parent context.Context, exit func(int), signals ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, signals...)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal, aborting run", "signal", sig.String())
		cancel()

		sig = <-sigCh
		slog.Warn("received second shutdown signal, forcing exit", "signal", sig.String())
		exit(1)
	}()

	return ctx
}
