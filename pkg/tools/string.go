package tools

import (
	"os"
	"path/filepath"
	"strings"
)

// StringToPath expands a path-like string: a leading "~" expands to the
// user's home directory, a leading "./" expands relative to the current
// working directory, and "$VAR"/"${VAR}" environment references expand via
// os.ExpandEnv. Unknown environment variables pass through as empty string,
// matching os.ExpandEnv's own behaviour.
func StringToPath(raw string) (string, error) {
	expanded := os.ExpandEnv(raw)

	switch {
	case expanded == "~" || strings.HasPrefix(expanded, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(expanded, "~")), nil

	case strings.HasPrefix(expanded, "./"):
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(wd, strings.TrimPrefix(expanded, "./")), nil

	default:
		return expanded, nil
	}
}

// CapitalizeFirst upper-cases the first rune of s, leaving the rest
// untouched.
func CapitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
