package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/blackwell-systems/mons/internal/output"
	"github.com/blackwell-systems/mons/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-identify installs when their game files change",
		Long: `Watch the directories of all registered installs and re-identify an
install whenever its game executable is written or replaced, for example by
a Steam update or a manual Everest install. The classification cache is
updated after each change, so 'mons info' stays fast.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a detached background process
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  mons watch

  # Run as background daemon
  mons watch --daemon

  # Stop running daemon
  mons watch --stop`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: <data dir>/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: <data dir>/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) (err error) {
	dir, err := getDataDir()
	if err != nil {
		return err
	}
	if watchPIDFile == "" {
		watchPIDFile = filepath.Join(dir, "watch.pid")
	}
	if watchLogFile == "" {
		watchLogFile = filepath.Join(dir, "watch.log")
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}
	if watchDaemon {
		return startWatchDaemon(cmd, dir)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	out := cmd.OutOrStdout()
	w, err := watcher.New(func(ctx context.Context, name string) error {
		inst, err := s.registry.Get(name)
		if err != nil {
			return err
		}
		rec, err := s.classifier.Classify(ctx, inst)
		if err != nil {
			output.Failure(out, "%s: %v", name, err)
			return err
		}
		output.Success(out, "%s: %s", name, rec.VersionString())
		return s.cache.Flush()
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	if err := w.SetInstalls(s.registry.List()); err != nil {
		return err
	}

	if watchDaemonChild {
		return w.RunDaemon(cmd.Context(), watchPIDFile)
	}
	return runWatchForeground(cmd, w)
}

func stopWatchDaemon(cmd *cobra.Command) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	output.Success(cmd.OutOrStdout(), "Daemon stopped")
	return nil
}

func startWatchDaemon(cmd *cobra.Command, dir string) error {
	args := []string{"watch", "--data-dir", dir, "--pid-file", watchPIDFile, "--log-file", watchLogFile}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if verbose {
		args = append(args, "--verbose")
	}

	if err := watcher.StartDaemon(watchPIDFile, watchLogFile, args); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	output.Success(out, "Daemon started")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: mons watch --stop\n")
	return nil
}

func runWatchForeground(cmd *cobra.Command, w *watcher.Watcher) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Watching installs for changes. Press Ctrl+C to stop.")

	<-ctx.Done()

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped")
	return nil
}
