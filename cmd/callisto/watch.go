package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
	"mercator-hq/callisto/pkg/policy/manager"
)

var watchFlags struct {
	files []string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload modules on change until interrupted",
	Long: `Load the configured modules and keep them loaded: file changes under
the watched paths trigger a debounced registry reload, and load
failures keep the previous registry active. Useful as a policy
authoring loop next to an editor.

Examples:
  callisto watch --file policies/
  callisto watch --config callisto.yaml`,
	RunE: watchModules,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringArrayVarP(&watchFlags.files, "file", "f", nil, "module file or directory (repeatable, overrides config paths)")
}

func watchModules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	paths, err := resolvePaths(watchFlags.files, cfg)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	m := newManager(cfg, paths, logger)
	if err := m.Load(ctx); err != nil {
		return cli.NewCommandError("watch", err)
	}
	reg := m.Registry()
	fmt.Printf("✓ Loaded %d module(s), registry version %d\n", len(reg.Namespaces()), reg.Version())

	fw, err := manager.NewFileWatcher(paths, cfg.Policy.WatchDebounce, logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer fw.Stop()

	fmt.Printf("Watching %d path(s), press Ctrl+C to stop\n", len(paths))
	if err := fw.Watch(ctx, func() error {
		if err := m.Load(ctx); err != nil {
			return err
		}
		reg := m.Registry()
		fmt.Printf("✓ Reloaded, %d module(s), registry version %d\n", len(reg.Namespaces()), reg.Version())
		return nil
	}); err != nil {
		return cli.NewCommandError("watch", err)
	}

	fmt.Println("✓ Stopped")
	return nil
}
