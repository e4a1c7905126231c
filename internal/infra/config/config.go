package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DoctorConfig controls the startup readiness check.
type DoctorConfig struct {
	Profile string `yaml:"profile"` // "software_only" or "full"
}

// HardwareConfig controls GPIO/serial peripheral probing.
type HardwareConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Transport string `yaml:"transport"` // "none" disables probing
}

// PeripheralsConfig controls board enumeration.
type PeripheralsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SandboxConfig selects the security sandbox backend.
type SandboxConfig struct {
	Backend string `yaml:"backend"` // "auto" selects the best available
}

// EncryptionConfig holds secret-at-rest encryption settings.
// Passphrase is read from NULLCLAW_SECRET_KEY env var.
type EncryptionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RetentionConfig holds audit log retention policy settings.
type RetentionConfig struct {
	MaxAge  string `yaml:"max_age"`  // duration string, e.g. "2160h" (90 days)
	MaxSize string `yaml:"max_size"` // e.g. "100MB"
}

// AuditConfig holds audit logging settings.
type AuditConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Path      string          `yaml:"path"`
	Retention RetentionConfig `yaml:"retention"`
}

// SecurityConfig holds security policy engine settings.
type SecurityConfig struct {
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Audit      AuditConfig      `yaml:"audit"`
	ConsentDir string           `yaml:"consent_dir"`
}

// AutonomyConfig controls the default autonomy level.
type AutonomyConfig struct {
	Level string `yaml:"level"` // "read_only", "supervised", "full"
}

// NodeConfig identifies this node to its federation peers.
type NodeConfig struct {
	ID string `yaml:"id"`
}

// PolicyConfig holds the instance-wide command execution policy.
type PolicyConfig struct {
	AllowedCommands              []string `yaml:"allowed_commands"`
	BlockHighRiskCommands        bool     `yaml:"block_high_risk_commands"`
	RequireApprovalForMediumRisk bool     `yaml:"require_approval_for_medium_risk"`
	MaxPerHour                   int      `yaml:"max_per_hour"` // 0 = unlimited
}

// WorkspacePolicyConfig tightens the instance-wide security policy for one workspace.
// Fields are pointers so "unset" is distinguishable from "explicitly false/zero".
type WorkspacePolicyConfig struct {
	Workspace                   string   `yaml:"workspace"`
	Autonomy                    string   `yaml:"autonomy,omitempty"`
	BlockHighRiskCommands       *bool    `yaml:"block_high_risk_commands,omitempty"`
	RequireApprovalForMediumRisk *bool   `yaml:"require_approval_for_medium_risk,omitempty"`
	MaxPerHour                  *int     `yaml:"max_per_hour,omitempty"`
	ExtraAllowedCommands        []string `yaml:"extra_allowed_commands,omitempty"`
}

// SecretScopeConfig controls default scoping for stored secrets.
type SecretScopeConfig struct {
	DefaultScope string `yaml:"default_scope"` // "global", "session", "workspace", "group"
}

// CircuitBreakerConfig holds circuit breaker settings for the reliability envelope.
type CircuitBreakerConfig struct {
	FailureThreshold  uint32        `yaml:"failure_threshold"`
	RecoveryTimeout   time.Duration `yaml:"recovery_timeout"`
	HalfOpenMaxProbes uint32        `yaml:"half_open_max_probes"`
}

// ReliabilityCacheConfig holds the tool-result idempotent cache settings.
type ReliabilityCacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// ReliabilityConfig holds tool reliability envelope settings.
type ReliabilityConfig struct {
	MaxRetries          int                    `yaml:"max_retries"`
	BackoffBase         time.Duration          `yaml:"backoff_base"`
	BackoffMax          time.Duration          `yaml:"backoff_max"`
	BackoffMultiplierFP int64                  `yaml:"backoff_multiplier_fp"` // fixed-point, 1000 = 1.0x
	CircuitBreaker      CircuitBreakerConfig   `yaml:"circuit_breaker"`
	Cache               ReliabilityCacheConfig `yaml:"cache"`
}

// FederationConfig holds sync peer heartbeat/state-machine settings.
type FederationConfig struct {
	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	DegradedAfterMissed int           `yaml:"degraded_after_missed"`
	OfflineAfterMissed  int           `yaml:"offline_after_missed"`
	SchemaVersion       int           `yaml:"schema_version"`
}

// MemoryConfig holds memory decay/relevance tuning.
type MemoryConfig struct {
	DataDir         string                   `yaml:"data_dir"`
	DefaultHalfLife map[string]time.Duration `yaml:"default_half_life"` // kind -> half-life
	TierMultiplier  map[string]float64       `yaml:"tier_multiplier"`   // tier -> multiplier
	RelevanceAlpha  float64                  `yaml:"relevance_alpha"`
	ConfidenceFloor float64                  `yaml:"confidence_floor"`
}

// TimelineConfig holds observability timeline store/replay settings.
type TimelineConfig struct {
	DataDir           string `yaml:"data_dir"`
	MaxEventBytes     int    `yaml:"max_event_bytes"`
	ReplayBufferBytes int    `yaml:"replay_buffer_bytes"`
}

// SchedulerConfig holds the internal cron-driven periodic job settings.
type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	MemoryPruneCron  string `yaml:"memory_prune_cron"`
	HeartbeatCron    string `yaml:"heartbeat_cron"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// Config is the top-level nullclaw core configuration.
type Config struct {
	Doctor            DoctorConfig            `yaml:"doctor"`
	Hardware          HardwareConfig          `yaml:"hardware"`
	Peripherals       PeripheralsConfig       `yaml:"peripherals"`
	Security          SecurityConfig          `yaml:"security"`
	Autonomy          AutonomyConfig          `yaml:"autonomy"`
	Policy            PolicyConfig            `yaml:"policy"`
	Node              NodeConfig              `yaml:"node"`
	WorkspacePolicies []WorkspacePolicyConfig `yaml:"workspace_policies,omitempty"`
	SecretScope       SecretScopeConfig       `yaml:"secret_scope"`
	Reliability       ReliabilityConfig       `yaml:"reliability"`
	Federation        FederationConfig        `yaml:"federation"`
	Memory            MemoryConfig            `yaml:"memory"`
	Timeline          TimelineConfig          `yaml:"timeline"`
	Scheduler         SchedulerConfig         `yaml:"scheduler"`
	Logger            LoggerConfig            `yaml:"logger"`
	Tracer            TracerConfig            `yaml:"tracer"`
	Includes          []string                `yaml:"includes,omitempty"`
}

// defaultDataDir returns the persistent data directory under $HOME/.nullclaw/data.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".nullclaw", "data")
}

// defaultNodeID falls back to the OS hostname, then "node-unknown".
func defaultNodeID() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "node-unknown"
	}
	return h
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Doctor: DoctorConfig{Profile: "software_only"},
		Hardware: HardwareConfig{
			Enabled:   false,
			Transport: "none",
		},
		Peripherals: PeripheralsConfig{Enabled: false},
		Security: SecurityConfig{
			Sandbox:    SandboxConfig{Backend: "auto"},
			Encryption: EncryptionConfig{Enabled: false},
			Audit: AuditConfig{
				Enabled: true,
				Path:    filepath.Join(dataDir, "audit.jsonl"),
			},
			ConsentDir: dataDir,
		},
		Autonomy: AutonomyConfig{Level: "supervised"},
		Policy: PolicyConfig{
			AllowedCommands: []string{
				"ls", "cat", "echo", "grep", "find", "head", "tail", "wc", "sort", "uniq",
				"git", "go", "npm", "pnpm", "yarn", "cargo", "python", "python3", "node",
				"touch", "mkdir", "mv", "cp", "ln", "diff", "sed", "awk",
			},
			BlockHighRiskCommands:        true,
			RequireApprovalForMediumRisk: false,
			MaxPerHour:                   0,
		},
		Node: NodeConfig{ID: defaultNodeID()},
		SecretScope: SecretScopeConfig{
			DefaultScope: "session",
		},
		Reliability: ReliabilityConfig{
			MaxRetries:          3,
			BackoffBase:         200 * time.Millisecond,
			BackoffMax:          30 * time.Second,
			BackoffMultiplierFP: 2000,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:  5,
				RecoveryTimeout:   30 * time.Second,
				HalfOpenMaxProbes: 1,
			},
			Cache: ReliabilityCacheConfig{
				Enabled:  false,
				Capacity: 256,
				TTL:      5 * time.Minute,
			},
		},
		Federation: FederationConfig{
			HeartbeatInterval:   30 * time.Second,
			DegradedAfterMissed: 2,
			OfflineAfterMissed:  5,
			SchemaVersion:       1,
		},
		Memory: MemoryConfig{
			DataDir: filepath.Join(dataDir, "memory"),
			DefaultHalfLife: map[string]time.Duration{
				"semantic":   720 * time.Hour,
				"episodic":   48 * time.Hour,
				"procedural": 168 * time.Hour,
			},
			TierMultiplier: map[string]float64{
				"standard": 1.0,
				"pinned":   0, // unused: pinned tier never decays regardless of multiplier
			},
			RelevanceAlpha:  0.6,
			ConfidenceFloor: 0.05,
		},
		Timeline: TimelineConfig{
			DataDir:           filepath.Join(dataDir, "timeline"),
			MaxEventBytes:     4096,
			ReplayBufferBytes: 8192,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			MemoryPruneCron: "0 */6 * * *",
			HeartbeatCron:   "* * * * *",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	// First pass: unmarshal to get the includes list.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	hasIncludes := len(cfg.Includes) > 0
	if hasIncludes {
		visited := map[string]bool{absPath: true}
		if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
			return nil, err
		}

		// Second pass: re-unmarshal main config so it takes precedence over includes.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (second pass): %w", err)
		}
		cfg.Includes = nil
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps NULLCLAW_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NULLCLAW_DOCTOR_PROFILE"); v != "" {
		cfg.Doctor.Profile = v
	}
	if v := os.Getenv("NULLCLAW_HARDWARE_ENABLED"); v == "true" {
		cfg.Hardware.Enabled = true
	} else if v == "false" {
		cfg.Hardware.Enabled = false
	}
	if v := os.Getenv("NULLCLAW_HARDWARE_TRANSPORT"); v != "" {
		cfg.Hardware.Transport = v
	}
	if v := os.Getenv("NULLCLAW_PERIPHERALS_ENABLED"); v == "true" {
		cfg.Peripherals.Enabled = true
	} else if v == "false" {
		cfg.Peripherals.Enabled = false
	}
	if v := os.Getenv("NULLCLAW_SECURITY_SANDBOX_BACKEND"); v != "" {
		cfg.Security.Sandbox.Backend = v
	}
	if v := os.Getenv("NULLCLAW_SECURITY_ENCRYPTION_ENABLED"); v == "true" {
		cfg.Security.Encryption.Enabled = true
	}
	if v := os.Getenv("NULLCLAW_SECURITY_AUDIT_ENABLED"); v == "true" {
		cfg.Security.Audit.Enabled = true
	} else if v == "false" {
		cfg.Security.Audit.Enabled = false
	}
	if v := os.Getenv("NULLCLAW_SECURITY_AUDIT_PATH"); v != "" {
		cfg.Security.Audit.Path = v
	}
	if v := os.Getenv("NULLCLAW_SECURITY_CONSENT_DIR"); v != "" {
		cfg.Security.ConsentDir = v
	}
	if v := os.Getenv("NULLCLAW_AUTONOMY_LEVEL"); v != "" {
		cfg.Autonomy.Level = v
	}
	if v := os.Getenv("NULLCLAW_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}
	if v := os.Getenv("NULLCLAW_SECRET_SCOPE_DEFAULT"); v != "" {
		cfg.SecretScope.DefaultScope = v
	}
	if v := os.Getenv("NULLCLAW_RELIABILITY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Reliability.MaxRetries = n
		}
	}
	if v := os.Getenv("NULLCLAW_RELIABILITY_BACKOFF_BASE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Reliability.BackoffBase = d
		}
	}
	if v := os.Getenv("NULLCLAW_RELIABILITY_BACKOFF_MAX"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Reliability.BackoffMax = d
		}
	}
	if v := os.Getenv("NULLCLAW_RELIABILITY_CIRCUIT_FAILURE_THRESHOLD"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.Reliability.CircuitBreaker.FailureThreshold = uint32(n)
		}
	}
	if v := os.Getenv("NULLCLAW_FEDERATION_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Federation.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("NULLCLAW_MEMORY_DATA_DIR"); v != "" {
		cfg.Memory.DataDir = v
	}
	if v := os.Getenv("NULLCLAW_MEMORY_RELEVANCE_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Memory.RelevanceAlpha = f
		}
	}
	if v := os.Getenv("NULLCLAW_TIMELINE_DATA_DIR"); v != "" {
		cfg.Timeline.DataDir = v
	}
	if v := os.Getenv("NULLCLAW_SCHEDULER_ENABLED"); v == "true" {
		cfg.Scheduler.Enabled = true
	} else if v == "false" {
		cfg.Scheduler.Enabled = false
	}
	if v := os.Getenv("NULLCLAW_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("NULLCLAW_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("NULLCLAW_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("NULLCLAW_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// splitAndTrim splits s by sep and trims whitespace from each element.
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable).
	if mode&0o033 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
