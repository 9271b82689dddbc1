//go:build !graindebug

package assert

const enabled = false
