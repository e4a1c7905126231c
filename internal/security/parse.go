package security

import (
	"runtime"
	"strings"
)

// maxAnalysisLen is the hard ceiling on command length. Commands longer than
// this are rejected outright, never truncated or partially analyzed -- a
// command that passes this check by padding itself with junk before
// appending a dangerous tail is not a thing this engine allows to happen.
const maxAnalysisLen = 16384

const separatorNull = '\x00'

var segmentSeparators = []string{"&&", "||", "\n", ";", "|"}

// segment is one command in a chain, after separator splitting and
// environment-assignment stripping.
type segment struct {
	raw      string // the segment text after env-assignment stripping
	basename string // basename of the first token
}

// splitSegments replaces chain separators with a null byte and splits on it,
// producing the sequence of individual commands to analyze.
func splitSegments(command string) []string {
	buf := command
	for _, sep := range segmentSeparators {
		buf = strings.ReplaceAll(buf, sep, string(separatorNull))
	}
	parts := strings.Split(buf, string(separatorNull))
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// stripEnvAssignments removes leading "VAR=value" tokens (VAR starting with
// a letter or underscore) from a segment, returning what remains.
func stripEnvAssignments(seg string) string {
	fields := strings.Fields(seg)
	i := 0
	for i < len(fields) && isEnvAssignment(fields[i]) {
		i++
	}
	return strings.Join(fields[i:], " ")
}

func isEnvAssignment(tok string) bool {
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return false
	}
	name := tok[:eq]
	first := name[0]
	if !(first == '_' || (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return false
	}
	for _, c := range name {
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// basenameOf returns the basename of the first whitespace-delimited token
// in a segment (the command name itself, stripped of any path prefix).
func basenameOf(seg string) string {
	fields := strings.Fields(seg)
	if len(fields) == 0 {
		return ""
	}
	return base(fields[0])
}

func base(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// parseSegments tokenizes a command into its constituent segments, each
// stripped of leading environment assignments, with its basename extracted.
func parseSegments(command string) []segment {
	raw := splitSegments(command)
	segments := make([]segment, 0, len(raw))
	for _, r := range raw {
		stripped := stripEnvAssignments(r)
		if stripped == "" {
			continue
		}
		segments = append(segments, segment{raw: stripped, basename: basenameOf(stripped)})
	}
	return segments
}

// hasSubshellExpansion reports whether s contains a backtick, $(, or ${.
func hasSubshellExpansion(s string) bool {
	return strings.ContainsRune(s, '`') || strings.Contains(s, "$(") || strings.Contains(s, "${")
}

// hasProcessSubstitution reports whether s contains <( or >(.
func hasProcessSubstitution(s string) bool {
	return strings.Contains(s, "<(") || strings.Contains(s, ">(")
}

// hasWindowsEnvExpansion reports whether, on Windows, s contains a non-empty %VAR%.
func hasWindowsEnvExpansion(s string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		end := strings.IndexByte(s[i+1:], '%')
		if end <= 0 {
			continue
		}
		return true
	}
	return false
}

// hasBackgroundChaining reports whether s contains a single & operator (not
// part of a && sequence). Callers must check this on the original command,
// before && has been replaced by splitSegments.
func hasBackgroundChaining(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			continue
		}
		prevAmp := i > 0 && s[i-1] == '&'
		nextAmp := i+1 < len(s) && s[i+1] == '&'
		if !prevAmp && !nextAmp {
			return true
		}
	}
	return false
}

// hasOutputRedirection reports whether s contains a > character.
func hasOutputRedirection(s string) bool {
	return strings.ContainsRune(s, '>')
}

// isTeeInvocation reports whether a word is the tee command, bare or path-qualified.
func isTeeInvocation(word string) bool {
	return word == "tee" || strings.HasSuffix(word, "/tee")
}

// referencesTee reports whether any word in s is a tee invocation.
func referencesTee(s string) bool {
	for _, w := range strings.Fields(s) {
		if isTeeInvocation(w) {
			return true
		}
	}
	return false
}

// hasDangerousArguments reports whether seg (given its basename) uses an
// argument combination flagged regardless of risk tier: find -exec/-ok, or
// git config/alias/-c.
func hasDangerousArguments(basename, raw string) (bool, string) {
	fields := strings.Fields(raw)
	switch basename {
	case "find":
		for _, f := range fields[1:] {
			if f == "-exec" || f == "-ok" {
				return true, f
			}
		}
	case "git":
		for _, f := range fields[1:] {
			if f == "config" || f == "alias" || strings.HasPrefix(f, "alias.") || f == "-c" {
				return true, f
			}
		}
	}
	return false, ""
}
