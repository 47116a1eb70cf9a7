//go:build !rhidebug

package layout

const debugChecks = false
