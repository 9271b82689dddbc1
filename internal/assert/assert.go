// Package assert provides precondition checks that are compiled in only for
// builds tagged graindebug. Release builds skip them entirely.
package assert

import "fmt"

// That panics with the formatted message when checks are enabled and cond is false.
func That(cond bool, format string, args ...any) {
	if enabled && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}

// Index checks 0 <= i < n.
func Index(i, n int, what string) {
	if enabled && (i < 0 || i >= n) {
		panic(fmt.Sprintf("%s index %d out of range [0,%d)", what, i, n))
	}
}

// Enabled reports whether precondition checks are compiled in.
func Enabled() bool {
	return enabled
}
