package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/x31337/extsync/internal/config"
	"github.com/x31337/extsync/internal/plan"
	"github.com/x31337/extsync/internal/registry"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate the registry from the extensions directory",
	Long: `Scan every package directory in the target and write a fresh registry with
one entry per identifier (the highest version wins). The existing registry,
corrupt or not, is backed up first. Fields of existing entries that are not
derived from the package directory, such as marketplace ids, are kept.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().String(config.KeyTarget, "", "Extensions directory (default ~/.vscode/extensions)")
	rebuildCmd.Flags().String(config.KeyRegistry, "", "Registry file (default <target>/extensions.json)")
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	target := config.Get(config.KeyTarget)
	regPath := config.RegistryPath()

	res, err := registry.Rebuild(target)
	if err != nil {
		return fatal(err)
	}

	store, err := registry.Load(regPath)
	if errors.Is(err, registry.ErrRegistryCorrupt) {
		log.Warn("existing registry is corrupt, replacing it", "path", regPath)
		store = registry.New(regPath)
	} else if err != nil {
		return fatal(err)
	}

	for _, e := range res.Entries {
		if prev, ok := store.Find(e.Identifier); ok {
			e.InheritOpaque(prev)
		}
	}
	store.Replace(res.Entries)
	if err := store.Persist(); err != nil {
		return fatal(fmt.Errorf("persisting registry: %w", err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Rebuilt %s with %s entries\n",
		successStyle.Render(iconCheck), regPath, plan.Count(len(res.Entries)))
	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  Skipped %s directories", plan.Count(len(res.Skipped)))))
		for _, name := range res.Skipped {
			log.Debug("skipped directory", "name", name)
		}
	}
	if b := store.BackupPath(); b != "" {
		fmt.Fprintln(out, mutedStyle.Render("  Registry backup: "+b))
	}
	return nil
}
