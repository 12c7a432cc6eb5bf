package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/samber/oops"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/log"
)

type RunFlags struct {
	GracefulShutdownSec     int64
	GracefulShutdownMessage string
	// Env is the override prefix of the process, e.g. TASK_WORKER.
	Env string
	// Paths replaces the default config search paths when set.
	Paths []string
}

// RunFuncWithSignalHandling loads the configuration, initialises the
// process logger and runs f. The context handed to f is cancelled on
// SIGINT or SIGTERM.
// It returns the exitCode
func RunFuncWithSignalHandling(f func(context.Context, *config.Config) error, runFlags RunFlags) int {
	ctx, cancelOnSignal := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancelOnSignal()

	opts := []commoncfg.Option{commoncfg.WithEnvOverride(runFlags.Env)}
	if len(runFlags.Paths) > 0 {
		opts = append(opts, commoncfg.WithPaths(runFlags.Paths...))
	}

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		log.Error(ctx, "Failed to load the configuration", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return 1
	}

	err = InitLogger(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		return 1
	}

	log.Debug(ctx, "Starting the application", slog.String("application", cfg.Application.Name))

	err = f(ctx, cfg)
	if err != nil {
		log.Error(ctx, "Failed to start the application", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return 1
	}

	// graceful shutdown so running goroutines may finish
	if runFlags.GracefulShutdownSec > 0 {
		_, _ = fmt.Fprintln(os.Stderr, fmt.Sprintf(runFlags.GracefulShutdownMessage, runFlags.GracefulShutdownSec))
		time.Sleep(time.Duration(runFlags.GracefulShutdownSec) * time.Second)
	}

	return 0
}

// InitLogger installs the configured slog handler as process default.
func InitLogger(cfg *config.Config) error {
	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to initialise the logger")
	}

	return nil
}
