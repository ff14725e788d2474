package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trigsched/internal/app"
	"trigsched/internal/module"
	logx "trigsched/pkg/logx"
)

const stopTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), configPath(cmd))
		},
	}
}

func runApp(parent context.Context, cfgPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Console logger until the config decides the real sinks.
	boot := logx.NewConsole("info").With(logx.String("comp", "cli"))
	boot.Debug("loading config", logx.String("path", cfgPath))

	a, err := app.NewApp(cfgPath)
	if err != nil {
		boot.Error("startup failed", logx.String("path", cfgPath), logx.Err(err))
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	stop := func(reason module.StopReason) error {
		sctx, scancel := context.WithTimeout(context.Background(), stopTimeout)
		defer scancel()
		return a.Stop(sctx, reason)
	}

	if err := a.Start(ctx); err != nil {
		_ = stop(module.StopFatalError)
		return err
	}

	reason := module.StopAppStop
	select {
	case sig := <-sigCh:
		if sig == syscall.SIGTERM {
			reason = module.StopSIGTERM
		} else {
			reason = module.StopSIGINT
		}
	case <-a.Done():
		if a.Err() != nil {
			reason = module.StopFatalError
		}
	case <-parent.Done():
	}

	runErr := a.Err()
	if err := stop(reason); err != nil && runErr == nil {
		runErr = err
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
