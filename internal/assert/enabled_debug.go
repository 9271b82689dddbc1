//go:build graindebug

package assert

const enabled = true
