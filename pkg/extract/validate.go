package extract

import "strings"

// ValidateCandidate reports whether a matched token can plausibly be a
// transaction reference at all: 10-25 characters, at least one
// alphanumeric, and not a degenerate repeated-character string (all zeros,
// all ones, all one letter). Applies to every pattern pass and to manually
// entered references alike.
func ValidateCandidate(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 10 || len(s) > 25 {
		return false
	}
	hasAlnum := false
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasAlnum = true
			break
		}
	}
	if !hasAlnum {
		return false
	}
	up := strings.ToUpper(s)
	first := up[0]
	repeated := true
	for i := 1; i < len(up); i++ {
		if up[i] != first {
			repeated = false
			break
		}
	}
	return !repeated
}

// onlyDigits reports whether every byte of s is a decimal digit.
func onlyDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
