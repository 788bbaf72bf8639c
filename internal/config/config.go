// Package config defines the resolved configuration shape the sync
// engine is built from, plus a YAML-file-with-env-overrides loader.
// The engine never reads files or the environment itself; by the time
// Load returns, every field has been resolved and validated.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the single validated configuration struct passed by value
// to each subsystem it addresses, mirroring the layout in spec §6.
type Config struct {
	Daemon   DaemonConfig   `yaml:"daemon"`
	Svn      SvnConfig      `yaml:"svn"`
	Remote   RemoteConfig   `yaml:"remote"`
	Identity IdentityConfig `yaml:"identity"`
	Commit   CommitConfig   `yaml:"commit"`
	Options  OptionsConfig  `yaml:"options"`
	Log      LogConfig      `yaml:"log"`
}

type DaemonConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	DataDirectory       string `yaml:"data_directory"`
}

type SvnConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Trunk    string `yaml:"trunk"`
	Branches string `yaml:"branches"`
	Tags     string `yaml:"tags"`
}

type RemoteConfig struct {
	APIBaseURL    string `yaml:"api_base_url"`
	GitBaseURL    string `yaml:"git_base_url"`
	Repo          string `yaml:"repo"` // "owner/name"
	Token         string `yaml:"token"`
	DefaultBranch string `yaml:"default_branch"`
	AutoCreate    bool   `yaml:"auto_create"`
	Private       bool   `yaml:"private"`
}

// IdentityConfig holds the developer identity used for team-mode
// commits plus the multi-user identity-mapping settings.
type IdentityConfig struct {
	DeveloperName        string `yaml:"developer_name"`
	DeveloperEmail       string `yaml:"developer_email"`
	DeveloperSvnUsername string `yaml:"developer_svn_username"`
	MappingFile          string `yaml:"mapping_file"`
	EmailDomain          string `yaml:"email_domain"`
	LDAP                 *LDAP  `yaml:"ldap,omitempty"`
}

type LDAP struct {
	URL      string `yaml:"url"`
	BindDN   string `yaml:"bind_dn"`
	BindPass string `yaml:"bind_pass"`
	BaseDN   string `yaml:"base_dn"`
}

type CommitConfig struct {
	SvnToGitTemplate string `yaml:"svn_to_git_template"`
	GitToSvnTemplate string `yaml:"git_to_svn_template"`
}

type OptionsConfig struct {
	NormalizeLineEndings bool     `yaml:"normalize_line_endings"`
	SyncExecutableBit    bool     `yaml:"sync_executable_bit"`
	MaxFileSize          int64    `yaml:"max_file_size"`
	IgnorePatterns       []string `yaml:"ignore_patterns"`
	SyncExternals        bool     `yaml:"sync_externals"` // currently ignored, per spec
	SyncDirectPushes     bool     `yaml:"sync_direct_pushes"`
	AutoMerge            bool     `yaml:"auto_merge"`
	LfsThreshold         int64    `yaml:"lfs_threshold"`
	LfsPatterns          []string `yaml:"lfs_patterns"`
	InitialImportMode    string   `yaml:"initial_import_mode"` // "snapshot" | "full"
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with every field the daemon can run
// without an operator having to specify explicitly.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			PollIntervalSeconds: 60,
			DataDirectory:       "",
		},
		Remote: RemoteConfig{
			APIBaseURL:    "https://api.github.com",
			DefaultBranch: "main",
		},
		Commit: CommitConfig{
			SvnToGitTemplate: "",
			GitToSvnTemplate: "",
		},
		Options: OptionsConfig{
			NormalizeLineEndings: true,
			SyncExecutableBit:    true,
			MaxFileSize:          0,
			SyncDirectPushes:     false,
			AutoMerge:            true,
			LfsThreshold:         0,
			InitialImportMode:    "snapshot",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment
// lookup function, so tests can supply isolated values. path may be
// empty, in which case the default XDG-based path is used.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getConfigPathWithEnv(getenv)
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	applyEnvOverrides(cfg, getenv)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if v := getenv("GITSVNSYNC_SVN_PASSWORD"); v != "" {
		cfg.Svn.Password = v
	}
	if v := getenv("GITSVNSYNC_REMOTE_TOKEN"); v != "" {
		cfg.Remote.Token = v
	}
	if v := getenv("GITSVNSYNC_LDAP_BIND_PASS"); v != "" && cfg.Identity.LDAP != nil {
		cfg.Identity.LDAP.BindPass = v
	}
}

// Validate enforces the invariants spec §6/§7 require before the
// engine is built, returning a single descriptive error on the first
// violation found.
func Validate(cfg *Config) error {
	switch {
	case cfg.Daemon.PollIntervalSeconds <= 0:
		return fmt.Errorf("config: daemon.poll_interval_seconds must be > 0")
	case cfg.Daemon.DataDirectory == "":
		return fmt.Errorf("config: daemon.data_directory is required")
	case cfg.Svn.URL == "":
		return fmt.Errorf("config: svn.url is required")
	case cfg.Remote.Repo == "":
		return fmt.Errorf("config: remote.repo is required (owner/name)")
	case cfg.Options.SyncDirectPushes:
		return fmt.Errorf("config: options.sync_direct_pushes must be false until supported")
	}
	return nil
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gitsvnsync", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gitsvnsync", "config.yaml")
}
