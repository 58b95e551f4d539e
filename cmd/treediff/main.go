// cmd/treediff/main.go
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treediff/internal/config"
	"treediff/internal/diff"
	"treediff/internal/logging"
	"treediff/internal/object"
	"treediff/internal/snapshot"
	"treediff/internal/walker"
)

var logger, _ = zap.NewDevelopment()

var rootCmd = &cobra.Command{
	Use:   "treediff",
	Short: "Treediff compares content-addressed tree snapshots",
	Long: `Treediff captures directory trees into a content-addressed store and
produces ordered, per-path change records between any two snapshots,
including the empty-tree sentinel for "diff against nothing".`,
}

func loadConfig() *config.Config {
	if path := os.Getenv("TREEDIFF_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		if err == nil {
			return cfg
		}
		logger.Warn("falling back to default config", zap.String("path", path), zap.Error(err))
	}
	return config.Default()
}

// openStore locates the enclosing store and opens it along with a snapshot
// manager over it. Store and manager log at the configured level rather
// than the CLI's console logger.
func openStore() (*object.Store, *snapshot.Manager, error) {
	cfg := loadConfig()

	storeLogger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("getting current directory: %w", err)
	}
	root, err := snapshot.FindRoot(cwd, cfg.Store.Dir)
	if err != nil {
		return nil, nil, err
	}

	store, err := object.Open(root, cfg, storeLogger.WithStore(root))
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return store, snapshot.NewManager(store, storeLogger.Logger), nil
}

func init() {
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Initialize a treediff store in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			store, err := object.Open(dir, cfg, logger)
			if err != nil {
				return fmt.Errorf("initializing store: %w", err)
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("closing store: %w", err)
			}

			fmt.Println("Initialized empty treediff store in", dir)
			return nil
		},
	}

	var snapshotLabel string
	var snapshotCmd = &cobra.Command{
		Use:   "snapshot [dir]",
		Short: "Capture a directory tree into the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, manager, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			snap, err := manager.Take(dir, snapshotLabel)
			if err != nil {
				return fmt.Errorf("taking snapshot: %w", err)
			}

			fmt.Println(snap.Root)
			return nil
		},
	}
	snapshotCmd.Flags().StringVar(&snapshotLabel, "label", "", "label for the snapshot")

	var snapshotsCmd = &cobra.Command{
		Use:   "snapshots",
		Short: "List recorded snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, manager, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			snaps, err := manager.List()
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}

			for _, s := range snaps {
				label := s.Label
				if label == "" {
					label = "-"
				}
				fmt.Printf("%s  %.12s  %s  %s\n",
					s.CreatedAt.Format("2006-01-02 15:04:05"), s.Root, label, s.Dir)
			}
			return nil
		},
	}

	var diffJSON bool
	var diffCmd = &cobra.Command{
		Use:   "diff <old-ref> <new-ref>",
		Short: "Compare two tree snapshots",
		Long: `Compare two tree snapshots by snapshot label, snapshot ID, or raw tree
ref. Use "empty" for the empty-tree sentinel.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, manager, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			refA, err := manager.Resolve(args[0])
			if err != nil {
				return fmt.Errorf("resolving %s: %w", args[0], err)
			}
			refB, err := manager.Resolve(args[1])
			if err != nil {
				return fmt.Errorf("resolving %s: %w", args[1], err)
			}

			cfg := loadConfig()
			w := walker.New(store, logger)
			w.Workers = cfg.Walker.Workers

			records, err := w.Walk(cmd.Context(), refA, refB)
			if err != nil {
				return fmt.Errorf("diffing trees: %w", err)
			}

			if diffJSON {
				return json.NewEncoder(os.Stdout).Encode(records)
			}

			added := color.New(color.FgGreen)
			removed := color.New(color.FgRed)
			header := color.New(color.FgCyan, color.Bold)

			for _, r := range records {
				header.Printf("%s %s\n", r.Kind(), r.Path())

				hunks, stats := diff.Parse(r.Diff)
				for _, h := range hunks {
					if h.Header != "" {
						fmt.Println(h.Header)
					}
					for _, line := range h.Lines {
						switch line.Type {
						case diff.Addition:
							added.Println("+" + line.Content)
						case diff.Deletion:
							removed.Println("-" + line.Content)
						default:
							fmt.Println(" " + line.Content)
						}
					}
				}
				fmt.Printf("(+%d -%d)\n\n", stats.Additions, stats.Deletions)
			}
			return nil
		},
	}
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "emit raw change records as JSON")

	var watchCmd = &cobra.Command{
		Use:   "watch [dir]",
		Short: "Auto-snapshot a directory on filesystem changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, manager, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			w, err := snapshot.NewWatcher(manager, logger)
			if err != nil {
				return fmt.Errorf("creating watcher: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Println("Watching", dir, "- Ctrl-C to stop")
			return w.Run(ctx, dir)
		},
	}

	rootCmd.AddCommand(initCmd, snapshotCmd, snapshotsCmd, diffCmd, watchCmd)
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
