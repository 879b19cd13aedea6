package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/x31337/extsync/internal/config"
	"github.com/x31337/extsync/internal/registry"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long:  `List the packages recorded in the registry (extensions.json).`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().String(config.KeyTarget, "", "Extensions directory (default ~/.vscode/extensions)")
	listCmd.Flags().String(config.KeyRegistry, "", "Registry file (default <target>/extensions.json)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

type listEntry struct {
	Identifier string `json:"identifier"`
	Version    string `json:"version"`
	Location   string `json:"location"`
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := registry.Load(config.RegistryPath())
	if err != nil {
		return fatal(err)
	}
	store.SortByIdentifier()

	entries := make([]listEntry, 0, store.Len())
	for _, e := range store.Entries() {
		entries = append(entries, listEntry{
			Identifier: e.Identifier,
			Version:    e.Version,
			Location:   e.RelativeLocation,
		})
	}

	if listJSON {
		return printListJSON(cmd, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No packages installed yet.")
		return nil
	}
	return printListTable(cmd, entries)
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IDENTIFIER\tVERSION\tLOCATION")
	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Identifier, version, e.Location)
	}
	return w.Flush()
}

func printListJSON(cmd *cobra.Command, entries []listEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
