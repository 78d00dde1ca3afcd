//go:build devseeder

package netparams

// DevMode is true when built with -tags devseeder. All cooldown bands,
// stale timeouts, and seed intervals scale down roughly 10x (see
// internal/addrmgr/tuning.go and internal/seeder/seed.go).
const DevMode = true
