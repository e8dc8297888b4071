// Package config resolves runtime configuration: data directories, the
// per-subsystem SQLite paths, OTA directories, and daemon tunables.
// Flag binding follows cmd/overhuman/configure.go's env-var-then-default
// idiom, generalized onto a pflag.FlagSet instead of hand-parsed flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

// Config holds every tunable the runtime needs. It is constructed once at
// startup and passed by value/pointer into AgentRuntime — no package-level
// mutable config state exists. OTAMaxSnapshots, OTAMaxBackups,
// CascadeThreshold, BreakerMaxFailures and BreakerResetTimeout are bound
// to flags but not passed on by internal/runtime: the daemon's failsafe
// and the OTA manager use their own built-in defaults.
type Config struct {
	DataDir string

	AgentsDBPath      string
	MemoryDBPath      string
	ExperiencesDBPath string
	SkillsDBPath      string
	ReflectionsDBPath string
	AuditDBPath       string

	OTADir          string
	OTASnapshotsDir string
	OTABackupsDir   string
	OTAHistoryDir   string
	OTASandboxDir   string
	OTAMaxSnapshots int
	OTAMaxBackups   int

	CascadeThreshold    int
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
	SchedulerPoll       time.Duration

	MinExperienceSamples int

	APIAddr string
}

const envDataDir = "AGENTRT_DATA"

// Default returns a Config rooted at the resolved data directory, the way
// configure.go falls back to "$HOME/.overhuman" when OVERHUMAN_DATA is unset.
func Default() Config {
	return WithDataDir(resolveDataDir())
}

func resolveDataDir() string {
	if dir := os.Getenv(envDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentrt"
	}
	return filepath.Join(home, ".agentrt")
}

// WithDataDir builds a Config rooted at dir, filling in every derived path
// and tunable default.
func WithDataDir(dir string) Config {
	otaDir := filepath.Join(dir, ".ota")
	return Config{
		DataDir: dir,

		AgentsDBPath:      filepath.Join(dir, "agents.db"),
		MemoryDBPath:      filepath.Join(dir, "memory.db"),
		ExperiencesDBPath: filepath.Join(dir, "experiences.db"),
		SkillsDBPath:      filepath.Join(dir, "skills.db"),
		ReflectionsDBPath: filepath.Join(dir, "reflections.db"),
		AuditDBPath:       filepath.Join(dir, "audit.db"),

		OTADir:          otaDir,
		OTASnapshotsDir: filepath.Join(otaDir, "snapshots"),
		OTABackupsDir:   filepath.Join(otaDir, "backups"),
		OTAHistoryDir:   filepath.Join(otaDir, "history"),
		OTASandboxDir:   filepath.Join(otaDir, "sandbox"),
		OTAMaxSnapshots: 5,
		OTAMaxBackups:   10,

		CascadeThreshold:    3,
		BreakerMaxFailures:  5,
		BreakerResetTimeout: 60 * time.Second,
		SchedulerPoll:       10 * time.Second,

		MinExperienceSamples: 3,

		APIAddr: "127.0.0.1:9090",
	}
}

// BindFlags registers every overridable tunable onto fs, following the
// cobra/pflag idiom used by cmd/agentrt's subcommands.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "runtime data directory")
	fs.IntVar(&c.OTAMaxSnapshots, "ota-max-snapshots", c.OTAMaxSnapshots, "maximum OTA state snapshots to retain")
	fs.IntVar(&c.OTAMaxBackups, "ota-max-backups", c.OTAMaxBackups, "maximum OTA binary backups to retain")
	fs.IntVar(&c.CascadeThreshold, "cascade-threshold", c.CascadeThreshold, "open-breaker count that triggers global shutdown")
	fs.IntVar(&c.BreakerMaxFailures, "breaker-max-failures", c.BreakerMaxFailures, "failures before a circuit breaker opens")
	fs.DurationVar(&c.BreakerResetTimeout, "breaker-reset-timeout", c.BreakerResetTimeout, "time an open breaker waits before half-opening")
	fs.DurationVar(&c.SchedulerPoll, "scheduler-poll", c.SchedulerPoll, "how often the daemon scheduler checks for due tasks")
	fs.StringVar(&c.APIAddr, "api-addr", c.APIAddr, "address the metrics/health HTTP server listens on")
}

// EnsureDirs creates every directory this Config references.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.OTASnapshotsDir, c.OTABackupsDir, c.OTAHistoryDir, c.OTASandboxDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
