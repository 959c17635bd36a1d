package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"subfuse/internal/daemon"
	"subfuse/internal/discovery"
	"subfuse/internal/pipeline"
)

// newScanCommand walks the configured library directories and enqueues every
// eligible media file that is not queued yet.
func newScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [dir...]",
		Short: "Scan library directories and enqueue new media",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			discoveryCfg := cfg.Discovery
			if len(args) > 0 {
				discoveryCfg.Dirs = args
			}
			if len(discoveryCfg.Dirs) == 0 {
				return fmt.Errorf("no directories to scan; configure discovery.dirs or pass them as arguments")
			}

			found, err := discovery.NewScanner(discoveryCfg, logger).Scan()
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			queued := 0
			for _, path := range found {
				existing, err := store.GetBySourcePath(cmd.Context(), path)
				if err != nil {
					return err
				}
				if existing != nil {
					continue
				}
				if _, err := store.NewItem(cmd.Context(), path); err != nil {
					return err
				}
				queued++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found %d media files, queued %d new\n", len(found), queued)
			return nil
		},
	}
	return cmd
}

// newProcessCommand drains the queue in the foreground: every actionable item
// is advanced one stage at a time until nothing is left to do or a stage
// fails. Media paths given as arguments are enqueued first, so a single file
// can be pushed through the whole pipeline in one invocation.
func newProcessCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [media...]",
		Short: "Process queued items in the foreground until the queue drains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("media file %s: %w", path, err)
				}
				existing, err := store.GetBySourcePath(cmd.Context(), path)
				if err != nil {
					return err
				}
				if existing != nil {
					continue
				}
				if _, err := store.NewItem(cmd.Context(), path); err != nil {
					return err
				}
			}

			manager := pipeline.NewManager(cfg, store, logger)
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			processed := 0
			for {
				worked, err := manager.ProcessNext(runCtx)
				if err != nil {
					return err
				}
				if !worked {
					break
				}
				processed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d stage transitions\n", processed)
			return nil
		},
	}
	return cmd
}

// newDaemonCommand runs the watcher and pipeline until interrupted.
func newDaemonCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch the library and process the queue continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			manager := pipeline.NewManager(cfg, store, logger)
			d, err := daemon.New(cfg, store, logger, manager)
			if err != nil {
				_ = store.Close()
				return err
			}
			defer d.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon running; press Ctrl+C to stop")
			<-runCtx.Done()
			d.Stop()
			return nil
		},
	}
	return cmd
}
