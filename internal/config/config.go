package config

import (
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTopK is the number of most frequent values kept per field.
	// 100 per field keeps a three-field guess space at one million tuples,
	// which a single worker enumerates in seconds.
	DefaultTopK = 100

	// DefaultMaxGuessSpace is the largest guess space attacked per scheme.
	// Larger schemes are skipped rather than enumerated.
	DefaultMaxGuessSpace = 1_000_000_000

	// DefaultMinOverlap is the number of shared digests required before a
	// correlation score is computed.
	DefaultMinOverlap = 3

	// DefaultMinCount keeps every observed digest in a correlation histogram.
	DefaultMinCount = 1

	// DefaultWorkers runs the attack on a single goroutine, which gives the
	// same output as any other worker count.
	DefaultWorkers = 1

	// DefaultMode aligns histograms on their shared keys.
	DefaultMode = "strict"

	// AppName is the application name used for XDG directory paths.
	AppName = "mkattack"

	// DatabaseFile is the SQLite results file inside DBDir.
	DatabaseFile = "mkattack.db"
)

// Alignment modes accepted by Mode.
var modes = []string{"strict", "permissive"}

// Metric names accepted by Metrics.
var metrics = []string{"spearman", "jensen_shannon", "cosine"}

// Config holds all options of one mkattack invocation. It is populated from
// CLI flags, with gaps filled from the config file, and passed down
// explicitly.
//
// Design decision: a single flat struct, as the option count stays small
// and every command reads a different subset of it.
type Config struct {
	// ReferencePath is the CSV or Parquet population the guess space and
	// the reference histograms are built from.
	ReferencePath string

	// ObservedPath is the CSV or Parquet table of published match-keys.
	ObservedPath string

	// TopK is the number of most frequent values kept per field.
	TopK int

	// MaxGuessSpace skips schemes whose guess space is larger.
	MaxGuessSpace int

	// MinOverlap is the minimum number of shared digests for a correlation
	// score.
	MinOverlap int

	// MinCount drops unlabeled digests seen fewer times before correlating.
	MinCount int

	// Workers is the number of goroutines used by the attack.
	Workers int

	// Schemes restricts the run to these scheme ids. Empty means all.
	Schemes []string

	// Families restricts the run to these scheme families. Empty means all.
	Families []string

	// Mode is the histogram alignment mode, "strict" or "permissive".
	Mode string

	// Metrics selects the correlation metrics. Spearman is always computed.
	Metrics []string

	// JSONReport writes the report as JSON. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the report as GitHub Flavored Markdown.
	MarkdownReport bool

	// ReportFile is the output path. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the SQLite results database.
	// Defaults to the XDG data directory (~/.local/share/mkattack on Linux).
	DBDir string

	// DBURL is a PostgreSQL connection string. When set it replaces the
	// SQLite store.
	DBURL string

	// SaveToDB persists the run to the results store.
	SaveToDB bool

	// Reveal disables masking of personal values in logs.
	Reveal bool

	// LogJSON switches log output to JSON lines.
	LogJSON bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path of the config file. When empty, .mkattack
	// is searched in the current directory and then the home directory.
	ConfigFilePath string

	// File is the loaded config file, nil when none was found.
	File *File
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		TopK:          DefaultTopK,
		MaxGuessSpace: DefaultMaxGuessSpace,
		MinOverlap:    DefaultMinOverlap,
		MinCount:      DefaultMinCount,
		Workers:       DefaultWorkers,
		Mode:          DefaultMode,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for mkattack.
// On Linux: ~/.local/share/mkattack
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mkattack.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabasePath returns the SQLite file inside DBDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DBDir, DatabaseFile)
}

// ApplyFile fills options the user left at their defaults from the config
// file's defaults section. Flags always win.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f
	d := f.Defaults
	if c.TopK == DefaultTopK && d.TopK > 0 {
		c.TopK = d.TopK
	}
	if c.MaxGuessSpace == DefaultMaxGuessSpace && d.MaxGuessSpace > 0 {
		c.MaxGuessSpace = d.MaxGuessSpace
	}
	if c.MinOverlap == DefaultMinOverlap && d.MinOverlap > 0 {
		c.MinOverlap = d.MinOverlap
	}
	if c.MinCount == DefaultMinCount && d.MinCount > 0 {
		c.MinCount = d.MinCount
	}
	if c.Workers == DefaultWorkers && d.Workers > 0 {
		c.Workers = d.Workers
	}
	if c.Mode == DefaultMode && d.Mode != "" {
		c.Mode = d.Mode
	}
	if len(c.Schemes) == 0 {
		c.Schemes = f.Select
	}
}

// Validate checks the options shared by every command and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return ErrInvalidTopK
	}
	if c.MaxGuessSpace <= 0 {
		return ErrInvalidMaxGuessSpace
	}
	if c.MinOverlap <= 0 {
		return ErrInvalidMinOverlap
	}
	if c.MinCount < 0 {
		return ErrInvalidMinCount
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if !slices.Contains(modes, c.Mode) {
		return ErrInvalidMode
	}
	for _, m := range c.Metrics {
		if !slices.Contains(metrics, m) {
			return ErrInvalidMetric
		}
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateInputs checks that the input tables a stage needs are set.
func (c *Config) ValidateInputs(reference, observed bool) error {
	if reference && c.ReferencePath == "" {
		return ErrNoReference
	}
	if observed && c.ObservedPath == "" {
		return ErrNoObserved
	}
	return nil
}
