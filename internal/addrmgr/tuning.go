package addrmgr

import (
	"time"

	"github.com/kaspa-ng/dnsseeder/internal/netparams"
)

// Cooldown bands (§4.1 table): minimum delay between successive probes of
// one record, parameterized by its quality band. Good records are
// reconfirmed on a long interval, Stale records recovered promptly on a
// medium one, and New/Bad records retried cheaply on a short one.
const (
	prodCooldownGood  = 30 * time.Minute
	prodCooldownStale = 5 * time.Minute
	prodCooldownNew   = 30 * time.Second

	prodStaleGoodTimeout = 2 * time.Hour
	prodStaleBadTimeout  = 8 * time.Hour
	prodGiveUpThreshold  = 5

	prodFlushInterval = 5 * time.Minute
	prodSweepInterval = 1 * time.Minute
)

// DefaultTuning returns the production (or, under a devseeder build, the
// ~10x-tightened) timing configuration.
func DefaultTuning() Tuning {
	t := Tuning{
		StaleGoodTimeout: prodStaleGoodTimeout,
		StaleBadTimeout:  prodStaleBadTimeout,
		GiveUpThreshold:  prodGiveUpThreshold,
	}
	if netparams.DevMode {
		t.StaleGoodTimeout /= 10
		t.StaleBadTimeout /= 10
	}
	return t
}

// CooldownBands returns the (good, stale, new/bad) cooldown durations, dev-
// mode scaled.
func CooldownBands() (good, stale, newOrBad time.Duration) {
	good, stale, newOrBad = prodCooldownGood, prodCooldownStale, prodCooldownNew
	if netparams.DevMode {
		good /= 10
		stale /= 10
		newOrBad /= 10
	}
	return
}

// FlushInterval is how often the Store persists to disk.
func FlushInterval() time.Duration {
	if netparams.DevMode {
		return prodFlushInterval / 10
	}
	return prodFlushInterval
}

// SweepInterval is how often the retirement sweep runs.
func SweepInterval() time.Duration {
	if netparams.DevMode {
		return prodSweepInterval / 10
	}
	return prodSweepInterval
}
