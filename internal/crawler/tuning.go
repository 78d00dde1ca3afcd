package crawler

import "time"

// batchMultiplier implements §4.3 step 1: "up to batch = 3 x threads probe
// candidates."
const batchMultiplier = 3

// emptyQueueTick is the "small tick" the dispatcher sleeps when the Store
// returns zero candidates (§4.3 step 4).
const emptyQueueTick = 3 * time.Second

// prefixMinGap is the Crawler's own global minimum gap between successive
// probes of the same /16 (IPv4) or /32 (IPv6) prefix, enforced in addition
// to the Store's cooldown banding, so the seeder never looks like a
// scanner to a single operator (§4.3).
const prefixMinGap = 15 * time.Second

// DefaultSeedTimeout bounds how long the Crawler waits for Seed Discovery's
// synchronous first run during initialization (§4.3 step 1) before
// proceeding regardless.
const DefaultSeedTimeout = 10 * time.Second

// DefaultShutdownGrace is the maximum graceful shutdown duration named by
// §5 ("order of tens of seconds").
const DefaultShutdownGrace = 30 * time.Second
