package security

import (
	"log/slog"
	"sync"
	"time"

	"nullclaw/internal/domain"
	"nullclaw/internal/infra/config"
)

// rateTracker is a sliding-window per-hour call counter, one per workspace.
// Grounded in the same shape as a simple calls-in-window rate limiter, generalized
// to a configurable per-hour limit rather than a fixed limit/window pair.
type rateTracker struct {
	mu    sync.Mutex
	limit int
	calls []time.Time
	now   func() time.Time
}

func newRateTracker(limit int) *rateTracker {
	return &rateTracker{limit: limit, now: time.Now}
}

func (r *rateTracker) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-time.Hour)
	n := 0
	for _, t := range r.calls {
		if t.After(cutoff) {
			r.calls[n] = t
			n++
		}
	}
	r.calls = r.calls[:n]

	if len(r.calls) >= r.limit {
		return false
	}
	r.calls = append(r.calls, now)
	return true
}

// effectivePolicy is the fully-resolved policy for one workspace (or the
// instance default), after workspace override clamping has been applied.
type effectivePolicy struct {
	autonomy                     domain.AutonomyLevel
	allowlist                    map[string]bool
	blockHighRiskCommands        bool
	requireApprovalForMediumRisk bool
	maxPerHour                   int // 0 = unlimited
}

// Policy is the security policy engine. It decides whether a proposed shell
// command is allowed, classifies its risk, and gates execution by autonomy
// and approval. All checks are deterministic and side-effect-free except for
// the rate tracker and the deny hook.
type Policy struct {
	mu         sync.Mutex
	instance   effectivePolicy
	workspaces map[string]effectivePolicy
	rate       map[string]*rateTracker
	denyHook   domain.DenyHook
	logger     *slog.Logger
}

// NewPolicy builds a Policy from the instance-wide autonomy/policy config and
// any per-workspace overrides. Overrides tighten (never loosen) the instance
// policy, per the workspace-override rules.
func NewPolicy(autonomyCfg config.AutonomyConfig, policyCfg config.PolicyConfig, workspaceCfgs []config.WorkspacePolicyConfig, logger *slog.Logger) *Policy {
	instanceAutonomy, ok := domain.ParseAutonomyLevel(autonomyCfg.Level)
	if !ok {
		instanceAutonomy = domain.AutonomySupervised
	}

	instance := effectivePolicy{
		autonomy:                     instanceAutonomy,
		allowlist:                    setOf(policyCfg.AllowedCommands...),
		blockHighRiskCommands:        policyCfg.BlockHighRiskCommands,
		requireApprovalForMediumRisk: policyCfg.RequireApprovalForMediumRisk,
		maxPerHour:                   policyCfg.MaxPerHour,
	}

	p := &Policy{
		instance:   instance,
		workspaces: make(map[string]effectivePolicy, len(workspaceCfgs)),
		rate:       make(map[string]*rateTracker),
		logger:     logger,
	}

	for _, w := range workspaceCfgs {
		p.workspaces[w.Workspace] = clampWorkspacePolicy(instance, w)
	}

	return p
}

// clampWorkspacePolicy applies a workspace override on top of the instance
// policy. Autonomy is clamped to the ordinal minimum; block/require-approval
// flags are OR'd; the per-hour limit is the minimum of the two (0 meaning
// unlimited loses to any finite limit); the allowlist is extended, never
// replaced.
func clampWorkspacePolicy(instance effectivePolicy, w config.WorkspacePolicyConfig) effectivePolicy {
	eff := effectivePolicy{
		autonomy:                     instance.autonomy,
		allowlist:                    instance.allowlist,
		blockHighRiskCommands:        instance.blockHighRiskCommands,
		requireApprovalForMediumRisk: instance.requireApprovalForMediumRisk,
		maxPerHour:                   instance.maxPerHour,
	}

	if w.Autonomy != "" {
		if lvl, ok := domain.ParseAutonomyLevel(w.Autonomy); ok && lvl < eff.autonomy {
			eff.autonomy = lvl
		}
	}
	if w.BlockHighRiskCommands != nil {
		eff.blockHighRiskCommands = eff.blockHighRiskCommands || *w.BlockHighRiskCommands
	}
	if w.RequireApprovalForMediumRisk != nil {
		eff.requireApprovalForMediumRisk = eff.requireApprovalForMediumRisk || *w.RequireApprovalForMediumRisk
	}
	if w.MaxPerHour != nil {
		eff.maxPerHour = minPerHour(eff.maxPerHour, *w.MaxPerHour)
	}
	if len(w.ExtraAllowedCommands) > 0 {
		merged := make(map[string]bool, len(instance.allowlist)+len(w.ExtraAllowedCommands))
		for k := range instance.allowlist {
			merged[k] = true
		}
		for _, c := range w.ExtraAllowedCommands {
			merged[c] = true
		}
		eff.allowlist = merged
	}

	return eff
}

// minPerHour treats 0 as "unlimited" so any finite limit wins.
func minPerHour(a, b int) int {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// SetDenyHook registers a fire-and-forget observer invoked for every denial.
func (p *Policy) SetDenyHook(hook domain.DenyHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denyHook = hook
}

func (p *Policy) resolve(workspace string) effectivePolicy {
	p.mu.Lock()
	defer p.mu.Unlock()
	if workspace != "" {
		if eff, ok := p.workspaces[workspace]; ok {
			return eff
		}
	}
	return p.instance
}

func (p *Policy) rateTrackerFor(workspace string) *rateTracker {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.rate[workspace]
	if !ok {
		t = newRateTracker(p.resolveLocked(workspace).maxPerHour)
		p.rate[workspace] = t
	}
	return t
}

func (p *Policy) resolveLocked(workspace string) effectivePolicy {
	if workspace != "" {
		if eff, ok := p.workspaces[workspace]; ok {
			return eff
		}
	}
	return p.instance
}

// CheckCommandExecution runs the full execution pipeline for a proposed
// command: structural/allowlist check, risk classification, and
// autonomy/approval gating. approved indicates whether a human has already
// approved this specific invocation (e.g. via an interactive prompt).
func (p *Policy) CheckCommandExecution(command, workspace string, approved bool) domain.PolicyDecision {
	if len(command) > maxAnalysisLen {
		return p.deny(command, workspace, domain.DenialOversizedCommand, "", domain.RiskLow)
	}

	eff := p.resolve(workspace)

	if eff.autonomy == domain.AutonomyReadOnly {
		return p.deny(command, workspace, domain.DenialReadOnlyMode, "", domain.RiskLow)
	}

	if hasBackgroundChaining(command) {
		return p.deny(command, workspace, domain.DenialBackgroundChaining, "&", domain.RiskLow)
	}
	if hasOutputRedirection(command) {
		return p.deny(command, workspace, domain.DenialOutputRedirection, ">", domain.RiskLow)
	}
	if hasSubshellExpansion(command) {
		return p.deny(command, workspace, domain.DenialSubshellExpansion, "", domain.RiskLow)
	}
	if hasProcessSubstitution(command) {
		return p.deny(command, workspace, domain.DenialProcessSubstitution, "", domain.RiskLow)
	}
	if hasWindowsEnvExpansion(command) {
		return p.deny(command, workspace, domain.DenialWindowsEnvExpansion, "", domain.RiskLow)
	}
	if referencesTee(command) {
		return p.deny(command, workspace, domain.DenialTeeBlocked, "tee", domain.RiskLow)
	}

	segments := parseSegments(command)
	if len(segments) == 0 {
		return p.deny(command, workspace, domain.DenialEmptyCommand, "", domain.RiskLow)
	}

	risk := domain.RiskLow
	for _, seg := range segments {
		if !eff.allowlist[seg.basename] {
			return p.deny(command, workspace, domain.DenialCommandNotInAllowlist, seg.basename, domain.RiskLow)
		}
		if bad, rule := hasDangerousArguments(seg.basename, seg.raw); bad {
			return p.deny(command, workspace, domain.DenialDangerousArguments, rule, domain.RiskHigh)
		}
		risk = maxRisk(risk, classifyRisk(seg))
	}

	supervised := eff.autonomy == domain.AutonomySupervised

	if risk == domain.RiskHigh {
		if eff.blockHighRiskCommands {
			return p.deny(command, workspace, domain.DenialHighRiskBlocked, "", risk)
		}
		if supervised && !approved {
			return p.deny(command, workspace, domain.DenialApprovalRequired, "", risk)
		}
	}

	if risk == domain.RiskMedium && supervised && eff.requireApprovalForMediumRisk && !approved {
		return p.deny(command, workspace, domain.DenialApprovalRequired, "", risk)
	}

	if eff.maxPerHour > 0 {
		if !p.rateTrackerFor(workspace).allow() {
			return p.deny(command, workspace, domain.DenialRateLimited, "", risk)
		}
	}

	return domain.PolicyDecision{Allowed: true, Risk: risk}
}

func (p *Policy) deny(command, workspace string, reason domain.DenialReason, matchedRule string, risk domain.RiskLevel) domain.PolicyDecision {
	denial := &domain.PolicyDenial{
		Command:     command,
		Workspace:   workspace,
		Reason:      reason,
		MatchedRule: matchedRule,
		Risk:        risk,
	}

	p.mu.Lock()
	hook := p.denyHook
	p.mu.Unlock()

	if hook != nil {
		go hook(*denial)
	}
	if p.logger != nil {
		p.logger.Warn("command execution denied", "reason", reason, "workspace", workspace, "risk", risk.String())
	}

	return domain.PolicyDecision{Allowed: false, Risk: risk, Denial: denial}
}
