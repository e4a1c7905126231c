package security

import (
	"strings"

	"nullclaw/internal/domain"
)

// highRiskCommands is always classified high risk regardless of arguments.
var highRiskCommands = map[string]bool{
	"rm": true, "mkfs": true, "dd": true, "shutdown": true, "reboot": true,
	"halt": true, "poweroff": true, "sudo": true, "su": true, "chown": true,
	"chmod": true, "useradd": true, "userdel": true, "usermod": true,
	"passwd": true, "mount": true, "umount": true, "iptables": true,
	"ufw": true, "firewall-cmd": true, "curl": true, "wget": true,
	"nc": true, "ncat": true, "netcat": true, "scp": true, "ssh": true,
	"ftp": true, "telnet": true,
}

// highRiskSubstrings are exact substrings that always elevate a segment to
// high risk, independent of the basename classification above.
var highRiskSubstrings = []string{
	"rm -rf /",
	"rm -fr /",
	":(){:|:&};:",
}

// mediumRiskVerbs maps a basename to the set of subcommands that make it
// medium risk. A basename present here but used without one of these
// subcommands (e.g. "git status") falls through to low risk.
var mediumRiskVerbs = map[string]map[string]bool{
	"git": setOf("commit", "push", "reset", "clean", "rebase", "merge",
		"cherry-pick", "revert", "branch", "checkout", "switch", "tag"),
	"npm":   setOf("install", "add", "remove", "uninstall", "update", "publish"),
	"pnpm":  setOf("install", "add", "remove", "uninstall", "update", "publish"),
	"yarn":  setOf("install", "add", "remove", "uninstall", "update", "publish"),
	"cargo": setOf("add", "remove", "install", "clean", "publish"),
}

// mediumRiskBareCommands is medium risk regardless of arguments.
var mediumRiskBareCommands = map[string]bool{
	"touch": true, "mkdir": true, "mv": true, "cp": true, "ln": true,
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// classifyRisk determines the RiskLevel of a single segment.
func classifyRisk(seg segment) domain.RiskLevel {
	for _, sub := range highRiskSubstrings {
		if strings.Contains(seg.raw, sub) {
			return domain.RiskHigh
		}
	}
	if highRiskCommands[seg.basename] {
		return domain.RiskHigh
	}
	if mediumRiskBareCommands[seg.basename] {
		return domain.RiskMedium
	}
	if verbs, ok := mediumRiskVerbs[seg.basename]; ok {
		fields := strings.Fields(seg.raw)
		for _, f := range fields[1:] {
			if verbs[f] {
				return domain.RiskMedium
			}
		}
	}
	return domain.RiskLow
}

// maxRisk returns the more severe of two risk levels.
func maxRisk(a, b domain.RiskLevel) domain.RiskLevel {
	if b > a {
		return b
	}
	return a
}
