package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation, either by the named constraint or by the generic
// Postgres and SQLite phrasings. SQLite does not echo index names back, so the
// generic match always applies.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
