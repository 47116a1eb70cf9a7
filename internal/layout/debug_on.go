//go:build rhidebug

package layout

// debugChecks enables range-uniformity assertions in Transition.
const debugChecks = true
