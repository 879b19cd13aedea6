package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/x31337/extsync/internal/archive"
	"github.com/x31337/extsync/internal/config"
	"github.com/x31337/extsync/internal/installer"
	"github.com/x31337/extsync/internal/plan"
	"github.com/x31337/extsync/internal/registry"
	"github.com/x31337/extsync/internal/source"
)

var (
	syncOnly   []string
	syncDryRun bool
	syncYes    bool
	syncFormat string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Install new and updated packages from a source directory",
	Long: `Scan a source directory for .vsix packages, compare them with the registry
and install every package that is missing or newer than the installed version.
Equal or older versions are skipped; downgrades never happen.

Successful installs are recorded in the registry even when other packages
fail. The registry is backed up once before it is first rewritten.

Exit status is 0 when every package succeeded, 1 when one or more packages
failed and 2 when the run could not start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd, syncDryRun)
	},
}

func init() {
	addSourceFlags(syncCmd)
	f := syncCmd.Flags()
	f.Int(config.KeyWorkers, 0, "Number of parallel workers (default: number of CPUs)")
	f.String(config.KeyEngineRange, "", `Engine range written into synthesized manifests (default "*")`)
	f.String(config.KeyPatchEngine, "", "Rewrite engines.vscode of every installed package to this range")
	f.String(config.KeyReportDir, "", "Write a YAML run report into this directory")
	f.BoolVar(&syncDryRun, "dry-run", false, "Print the plan without installing anything")
	f.BoolVarP(&syncYes, "yes", "y", false, "Skip confirmation prompt")
	rootCmd.AddCommand(syncCmd)
}

// addSourceFlags registers the flags shared by sync and plan.
func addSourceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(config.KeySource, "", `Directory containing .vsix packages (default ".")`)
	f.String(config.KeyTarget, "", "Extensions directory (default ~/.vscode/extensions)")
	f.String(config.KeyRegistry, "", "Registry file (default <target>/extensions.json)")
	f.String(config.KeyPattern, "", `Glob selecting package files below the source (default "**/*.vsix")`)
	f.StringSliceVar(&syncOnly, "only", nil, "Only sync these identifiers (repeatable or comma-separated)")
	f.StringVar(&syncFormat, "format", "text", "Output format: text, json or yaml")
}

// prepared is everything a sync needs before it touches the target.
type prepared struct {
	format plan.Format
	store  *registry.Store
	inv    *source.Inventory
	plan   *plan.Plan
}

// prepare loads the registry, scans the source and builds the plan. Every
// error is fatal.
func prepare(cmd *cobra.Command) (*prepared, error) {
	format, err := plan.ParseFormat(syncFormat)
	if err != nil {
		return nil, fatal(err)
	}

	regPath := config.RegistryPath()
	store, err := registry.Load(regPath)
	if err != nil {
		if errors.Is(err, registry.ErrRegistryCorrupt) {
			return nil, fatal(fmt.Errorf("%w (run '%s rebuild' to regenerate it)", err, rootCmd.Name()))
		}
		return nil, fatal(err)
	}
	log.Debug("registry loaded", "path", regPath, "entries", store.Len(), "shape", store.Shape())

	inv, err := source.Scan(cmd.Context(), config.Get(config.KeySource), source.Options{
		Pattern: config.Get(config.KeyPattern),
		Only:    syncOnly,
		Workers: config.GetInt(config.KeyWorkers),
		Logger:  log.Default(),
	})
	if err != nil {
		return nil, fatal(err)
	}
	if inv.Filtered > 0 {
		log.Info("packages excluded by --only", "count", inv.Filtered)
	}

	return &prepared{
		format: format,
		store:  store,
		inv:    inv,
		plan:   plan.Build(inv.Packages, store),
	}, nil
}

func runSync(cmd *cobra.Command, dryRun bool) error {
	prep, err := prepare(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	p := prep.plan

	if err := writePlan(out, p, prep.format); err != nil {
		return fatal(err)
	}
	if dryRun {
		return nil
	}
	if p.Empty() {
		return nil
	}

	if !syncYes {
		prompt := out
		if prep.format != plan.FormatText {
			prompt = cmd.ErrOrStderr()
		}
		if !confirm(cmd.InOrStdin(), prompt, "? Proceed with installation? (Y/n) ") {
			fmt.Fprintln(prompt, "Installation cancelled.")
			return nil
		}
	}

	bar := newProgressBar(cmd.ErrOrStderr(), len(p.Work()))
	res, err := installer.Execute(cmd.Context(), p, prep.store, installer.Options{
		TargetDir: config.Get(config.KeyTarget),
		Workers:   config.GetInt(config.KeyWorkers),
		Archive: archive.Options{
			EngineRange:    config.Get(config.KeyEngineRange),
			EngineOverride: config.Get(config.KeyPatchEngine),
		},
		Logger: log.Default(),
		OnUnit: func(installer.UnitResult) { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err != nil {
		return fatal(err)
	}

	if dir := config.Get(config.KeyReportDir); dir != "" {
		path, err := installer.WriteReport(dir, res)
		if err != nil {
			log.Error("writing run report", "err", err)
		} else {
			log.Info("run report written", "path", path)
		}
	}

	if err := writeResult(out, res, prep.format); err != nil {
		return fatal(err)
	}

	if res.Failed > 0 {
		return &ExitError{
			Code: ExitUnitFailures,
			Err:  fmt.Errorf("%s of %s packages failed", plan.Count(res.Failed), plan.Count(len(res.Units))),
		}
	}
	return nil
}

func writePlan(w io.Writer, p *plan.Plan, format plan.Format) error {
	data, err := p.Marshal(format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func writeResult(w io.Writer, res *installer.Result, format plan.Format) error {
	switch format {
	case plan.FormatJSON:
		data, err := json.MarshalIndent(res.Summary(), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case plan.FormatYAML:
		data, err := yaml.Marshal(res.Summary())
		if err != nil {
			return fmt.Errorf("encoding summary: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	fmt.Fprintln(w)
	for _, u := range res.Units {
		if u.Failed() {
			fmt.Fprintf(w, "  %s %s %s: %v\n", errorStyle.Render(iconCross), u.Identifier, u.Version, u.Err)
			continue
		}
		line := fmt.Sprintf("%s %s", u.Identifier, u.Version)
		if u.Previous != "" {
			line = fmt.Sprintf("%s %s → %s", u.Identifier, u.Previous, u.Version)
		}
		fmt.Fprintf(w, "  %s %s\n", successStyle.Render(iconCheck), line)
	}
	fmt.Fprintln(w)

	summary := res.Summary().String()
	switch {
	case res.Failed > 0:
		fmt.Fprintln(w, errorStyle.Render(iconCross+" "+summary))
	default:
		fmt.Fprintln(w, successStyle.Render(iconCheck+" "+summary))
	}
	if res.Cancelled {
		fmt.Fprintln(w, warnStyle.Render(iconWarn+" Run interrupted; packages not started were counted as failed."))
	}
	if res.BackupPath != "" {
		fmt.Fprintln(w, mutedStyle.Render("  Registry backup: "+res.BackupPath))
	}
	return nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(" Installing"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
	)
}
