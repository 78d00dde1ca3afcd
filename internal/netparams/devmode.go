//go:build !devseeder

package netparams

// DevMode is the single flag §6 of the spec calls for: "a single flag in the
// code, not a separate code path." Release builds (the default) keep it
// false; see devmode_dev.go for the -tags devseeder counterpart.
const DevMode = false
