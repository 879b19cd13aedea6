package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/x31337/extsync/internal/plan"
)

const reportTimeLayout = "20060102_150405"

// Summary is the machine-readable outcome of a run.
type Summary struct {
	Installed int      `json:"installed" yaml:"installed"`
	Updated   int      `json:"updated" yaml:"updated"`
	Skipped   int      `json:"skipped" yaml:"skipped"`
	Failed    int      `json:"failed" yaml:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty" yaml:"failed_ids,omitempty"`
	Cancelled bool     `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
}

// Summary returns the run's counts and failed identifiers.
func (r *Result) Summary() Summary {
	s := Summary{
		Installed: r.Installed,
		Updated:   r.Updated,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		Cancelled: r.Cancelled,
	}
	for _, u := range r.Failures() {
		s.FailedIDs = append(s.FailedIDs, u.Identifier)
	}
	return s
}

func (s Summary) String() string {
	out := fmt.Sprintf("installed=%s updated=%s skipped=%s failed=%s",
		plan.Count(s.Installed), plan.Count(s.Updated), plan.Count(s.Skipped), plan.Count(s.Failed))
	if len(s.FailedIDs) > 0 {
		out += " (" + strings.Join(s.FailedIDs, ", ") + ")"
	}
	return out
}

type reportUnit struct {
	Identifier string `yaml:"identifier"`
	Version    string `yaml:"version"`
	Previous   string `yaml:"previous,omitempty"`
	Action     string `yaml:"action"`
	Source     string `yaml:"source"`
	Location   string `yaml:"location,omitempty"`
	Worker     int    `yaml:"worker"`
	Duration   string `yaml:"duration,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

type reportSkip struct {
	Identifier string `yaml:"identifier"`
	Version    string `yaml:"version"`
	Installed  string `yaml:"installed"`
}

type runReport struct {
	Run       string       `yaml:"run"`
	Started   time.Time    `yaml:"started"`
	Finished  time.Time    `yaml:"finished"`
	Summary   Summary      `yaml:"summary"`
	Registry  string       `yaml:"registry_backup,omitempty"`
	Succeeded []reportUnit `yaml:"succeeded"`
	Failed    []reportUnit `yaml:"failed"`
	Skipped   []reportSkip `yaml:"skipped"`
}

// WriteReport writes a YAML report of the run to
// "<dir>/sync-report-<YYYYMMDD_HHMMSS>.yaml" and returns its path.
func WriteReport(dir string, r *Result) (string, error) {
	rep := runReport{
		Run:       r.RunID,
		Started:   r.Started,
		Finished:  r.Finished,
		Summary:   r.Summary(),
		Registry:  r.BackupPath,
		Succeeded: []reportUnit{},
		Failed:    []reportUnit{},
		Skipped:   []reportSkip{},
	}
	for _, u := range r.Units {
		ru := reportUnit{
			Identifier: u.Identifier,
			Version:    u.Version,
			Previous:   u.Previous,
			Action:     string(u.Action),
			Source:     u.Path,
			Worker:     u.Worker,
		}
		if u.Duration > 0 {
			ru.Duration = u.Duration.Round(time.Millisecond).String()
		}
		if u.Failed() {
			ru.Error = u.Err.Error()
			rep.Failed = append(rep.Failed, ru)
			continue
		}
		ru.Location = u.Location
		rep.Succeeded = append(rep.Succeeded, ru)
	}
	for _, it := range r.Skips {
		rep.Skipped = append(rep.Skipped, reportSkip{
			Identifier: it.Package.Ref.Identifier,
			Version:    it.Package.Ref.Version,
			Installed:  it.InstalledVersion(),
		})
	}

	data, err := yaml.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	stamp := r.Finished
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := filepath.Join(dir, "sync-report-"+stamp.Format(reportTimeLayout)+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
