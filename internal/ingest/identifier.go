// Package ingest turns uploaded spreadsheets into typed datasets.
//
// The package is storage agnostic: it normalizes header names into SQL-safe
// identifiers, normalizes cell values, infers one column type per header and
// maps rows onto event drafts. Persisting the result is the caller's job.
package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxIdentifierLen is the longest identifier PostgreSQL keeps without truncation.
const MaxIdentifierLen = 63

const (
	digitPrefix      = "col_"
	unnamedColumn    = "unnamed_column"
	blankHeaderStart = "column_"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	invalidIdentChar = regexp.MustCompile(`[^a-z0-9_]`)
	validIdentifier  = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)
)

var (
	ErrDuplicateColumns = errors.New("duplicate column names after normalization")
	ErrInvalidName      = errors.New("invalid identifier")
)

// NormalizeIdentifier maps an arbitrary header or table name onto a SQL-safe
// identifier. Applying it to its own output returns the same value.
func NormalizeIdentifier(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = invalidIdentChar.ReplaceAllString(s, "")
	if s == "" {
		return unnamedColumn
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = digitPrefix + s
	}
	if len(s) > MaxIdentifierLen {
		s = s[:MaxIdentifierLen]
	}
	return s
}

// ValidIdentifier reports whether name already satisfies the identifier rule.
func ValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// NormalizeHeaders normalizes every header and rejects collisions. Blank
// header cells are named after their 1-based position first.
func NormalizeHeaders(headers []string) ([]string, error) {
	normalized := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	var duplicates []string
	for i, header := range headers {
		if strings.TrimSpace(header) == "" {
			header = blankHeaderStart + strconv.Itoa(i+1)
		}
		name := NormalizeIdentifier(header)
		normalized[i] = name
		seen[name]++
		if seen[name] == 2 {
			duplicates = append(duplicates, name)
		}
	}
	if len(duplicates) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateColumns, strings.Join(duplicates, ", "))
	}
	return normalized, nil
}

// TableName normalizes a user supplied table name and checks the result.
func TableName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: table name is required", ErrInvalidName)
	}
	normalized := NormalizeIdentifier(name)
	if !ValidIdentifier(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return normalized, nil
}
