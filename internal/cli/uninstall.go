package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/x31337/extsync/internal/config"
	"github.com/x31337/extsync/internal/registry"
)

var uninstallPurge bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <identifier>",
	Short: "Remove a package from the registry",
	Long: `Remove every registry entry for a package identifier (publisher.name).
With --purge the package directory is deleted as well, provided it lies
inside the target directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().String(config.KeyTarget, "", "Extensions directory (default ~/.vscode/extensions)")
	uninstallCmd.Flags().String(config.KeyRegistry, "", "Registry file (default <target>/extensions.json)")
	uninstallCmd.Flags().BoolVar(&uninstallPurge, "purge", false, "Also delete the package directory")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	id := args[0]

	store, err := registry.Load(config.RegistryPath())
	if err != nil {
		return fatal(err)
	}

	entry, ok := store.Find(id)
	if !ok {
		return fatal(fmt.Errorf("%s is not installed", id))
	}
	store.RemoveByIdentifier(id)
	if err := store.Persist(); err != nil {
		return fatal(fmt.Errorf("persisting registry: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s from the registry\n", entry.Identifier, entry.Version)

	if !uninstallPurge || entry.LocationPath == "" {
		return nil
	}
	dir, err := purgeTarget(config.Get(config.KeyTarget), entry.LocationPath)
	if err != nil {
		return fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fatal(fmt.Errorf("removing %s: %w", dir, err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", dir)
	return nil
}

// purgeTarget returns the absolute package directory if it is strictly
// inside target.
func purgeTarget(target, location string) (string, error) {
	root, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolving target directory: %w", err)
	}
	dir, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", location, err)
	}
	if !strings.HasPrefix(dir, filepath.Clean(root)+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to delete %s: outside %s", dir, root)
	}
	return dir, nil
}
