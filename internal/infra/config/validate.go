package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

var validDoctorProfiles = map[string]bool{"software_only": true, "full": true}
var validAutonomyLevels = map[string]bool{"read_only": true, "supervised": true, "full": true}
var validSecretScopes = map[string]bool{"global": true, "session": true, "workspace": true, "group": true}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDoctor(cfg, ve)
	validateAutonomy(cfg, ve)
	validateSecretScope(cfg, ve)
	validateWorkspacePolicies(cfg, ve)
	validatePolicy(cfg, ve)
	validateReliability(cfg, ve)
	validateFederation(cfg, ve)
	validateMemory(cfg, ve)
	validateTimeline(cfg, ve)
	validateSecurity(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateDoctor(cfg *Config, ve *ValidationError) {
	if !validDoctorProfiles[cfg.Doctor.Profile] {
		ve.Add("doctor.profile %q is invalid (want: software_only, full)", cfg.Doctor.Profile)
	}
}

func validateAutonomy(cfg *Config, ve *ValidationError) {
	if !validAutonomyLevels[cfg.Autonomy.Level] {
		ve.Add("autonomy.level %q is invalid (want: read_only, supervised, full)", cfg.Autonomy.Level)
	}
}

func validateSecretScope(cfg *Config, ve *ValidationError) {
	if !validSecretScopes[cfg.SecretScope.DefaultScope] {
		ve.Add("secret_scope.default_scope %q is invalid (want: global, session, workspace, group)", cfg.SecretScope.DefaultScope)
	}
}

func validateWorkspacePolicies(cfg *Config, ve *ValidationError) {
	seen := make(map[string]bool)
	for i, w := range cfg.WorkspacePolicies {
		if w.Workspace == "" {
			ve.Add("workspace_policies[%d].workspace must not be empty", i)
			continue
		}
		if seen[w.Workspace] {
			ve.Add("workspace_policies[%d]: duplicate workspace %q", i, w.Workspace)
		}
		seen[w.Workspace] = true
		if w.Autonomy != "" && !validAutonomyLevels[w.Autonomy] {
			ve.Add("workspace_policies[%d].autonomy %q is invalid", i, w.Autonomy)
		}
		if w.MaxPerHour != nil && *w.MaxPerHour < 0 {
			ve.Add("workspace_policies[%d].max_per_hour must be >= 0", i)
		}
	}
}

func validatePolicy(cfg *Config, ve *ValidationError) {
	if cfg.Policy.MaxPerHour < 0 {
		ve.Add("policy.max_per_hour must be >= 0")
	}
}

func validateReliability(cfg *Config, ve *ValidationError) {
	r := cfg.Reliability
	if r.MaxRetries < 0 {
		ve.Add("reliability.max_retries must be >= 0")
	}
	if r.BackoffBase <= 0 {
		ve.Add("reliability.backoff_base must be > 0")
	}
	if r.BackoffMax < r.BackoffBase {
		ve.Add("reliability.backoff_max must be >= backoff_base")
	}
	if r.BackoffMultiplierFP <= 0 {
		ve.Add("reliability.backoff_multiplier_fp must be > 0")
	}
	if r.CircuitBreaker.FailureThreshold == 0 {
		ve.Add("reliability.circuit_breaker.failure_threshold must be > 0")
	}
	if r.CircuitBreaker.RecoveryTimeout <= 0 {
		ve.Add("reliability.circuit_breaker.recovery_timeout must be > 0")
	}
	if r.Cache.Enabled && r.Cache.Capacity <= 0 {
		ve.Add("reliability.cache.capacity must be > 0 when cache is enabled")
	}
}

func validateFederation(cfg *Config, ve *ValidationError) {
	f := cfg.Federation
	if f.HeartbeatInterval <= 0 {
		ve.Add("federation.heartbeat_interval must be > 0")
	}
	if f.DegradedAfterMissed <= 0 {
		ve.Add("federation.degraded_after_missed must be > 0")
	}
	if f.OfflineAfterMissed <= f.DegradedAfterMissed {
		ve.Add("federation.offline_after_missed must be > degraded_after_missed")
	}
	if f.SchemaVersion <= 0 {
		ve.Add("federation.schema_version must be > 0")
	}
}

func validateMemory(cfg *Config, ve *ValidationError) {
	if cfg.Memory.DataDir == "" {
		ve.Add("memory.data_dir must not be empty")
	}
	if cfg.Memory.RelevanceAlpha < 0 || cfg.Memory.RelevanceAlpha > 1 {
		ve.Add("memory.relevance_alpha must be between 0 and 1")
	}
	if cfg.Memory.ConfidenceFloor < 0 || cfg.Memory.ConfidenceFloor > 1 {
		ve.Add("memory.confidence_floor must be between 0 and 1")
	}
	for kind, hl := range cfg.Memory.DefaultHalfLife {
		if hl < 0 {
			ve.Add("memory.default_half_life[%s] must be >= 0", kind)
		}
	}
}

func validateTimeline(cfg *Config, ve *ValidationError) {
	if cfg.Timeline.DataDir == "" {
		ve.Add("timeline.data_dir must not be empty")
	}
	if cfg.Timeline.MaxEventBytes <= 0 {
		ve.Add("timeline.max_event_bytes must be > 0")
	}
	if cfg.Timeline.ReplayBufferBytes <= 0 {
		ve.Add("timeline.replay_buffer_bytes must be > 0")
	}
}

func validateSecurity(cfg *Config, ve *ValidationError) {
	if cfg.Security.Audit.Enabled && cfg.Security.Audit.Path == "" {
		ve.Add("security.audit.path is required when audit is enabled")
	}
}
