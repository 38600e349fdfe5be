package test

import (
	"fmt"
	"strings"
	"testing"
)

type reportFunc func(format string, args ...any)

// succeeded judges v as an outcome: true and nil errors are successes,
// false and non-nil errors are failures.
func succeeded(t *testing.T, v any) bool {
	t.Helper()
	if v == nil {
		return true
	}
	switch v := v.(type) {
	case bool:
		return v
	case error:
		return false
	}
	t.Fatalf("test: a %T is neither a bool nor an error", v)
	return false
}

func label(tags []any) string {
	if len(tags) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for _, tag := range tags {
		fmt.Fprint(&sb, tag)
	}
	sb.WriteString("] ")
	return sb.String()
}

func checkSuccess(t *testing.T, report reportFunc, v any, tags []any) bool {
	t.Helper()
	if succeeded(t, v) {
		return true
	}
	report("%swant success, got %v", label(tags), v)
	return false
}

func checkEqual[T comparable](t *testing.T, report reportFunc, got, want T, tags []any) bool {
	t.Helper()
	if got == want {
		return true
	}
	report("%sgot %v, want %v (%T)", label(tags), got, want, got)
	return false
}

func ExpectSuccess(t *testing.T, v any, tags ...any) bool {
	t.Helper()
	return checkSuccess(t, t.Errorf, v, tags)
}

func ExpectFailure(t *testing.T, v any, tags ...any) bool {
	t.Helper()
	if !succeeded(t, v) {
		return true
	}
	t.Errorf("%swant failure, got %v", label(tags), v)
	return false
}

func ExpectEquality[T comparable](t *testing.T, got, want T, tags ...any) bool {
	t.Helper()
	return checkEqual(t, t.Errorf, got, want, tags)
}

func ExpectInequality[T comparable](t *testing.T, got, unwanted T, tags ...any) bool {
	t.Helper()
	if got != unwanted {
		return true
	}
	t.Errorf("%sgot %v, want anything else", label(tags), got)
	return false
}

func DemandSuccess(t *testing.T, v any, tags ...any) {
	t.Helper()
	checkSuccess(t, t.Fatalf, v, tags)
}

func DemandEquality[T comparable](t *testing.T, got, want T, tags ...any) {
	t.Helper()
	checkEqual(t, t.Fatalf, got, want, tags)
}
