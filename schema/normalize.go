package schema

import (
	"strings"
	"unicode"
)

// NormalizeTargetName validates a database name. MongoDB forbids empty names
// and the characters /\. "$ in database names.
func NormalizeTargetName(name string) (TargetName, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrInvalidTarget
	}
	for _, r := range trimmed {
		switch r {
		case '/', '\\', '.', '"', '$', ' ':
			return "", ErrInvalidTarget
		}
		if unicode.IsControl(r) {
			return "", ErrInvalidTarget
		}
	}
	return TargetName(trimmed), nil
}

// NormalizeURI trims a connection string and checks its scheme.
func NormalizeURI(uri string) (string, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return "", ErrInvalidURI
	}
	if !strings.HasPrefix(trimmed, "mongodb://") && !strings.HasPrefix(trimmed, "mongodb+srv://") {
		return "", ErrInvalidURI
	}
	return trimmed, nil
}

// NormalizeSaveName trims a saved connection name.
func NormalizeSaveName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrSaveNameRequired
	}
	return trimmed, nil
}
