package addrmgr

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testTuning() Tuning {
	return Tuning{
		StaleGoodTimeout: 2 * time.Hour,
		StaleBadTimeout:  8 * time.Hour,
		GiveUpThreshold:  5,
	}
}

func TestDerivedStateNew(t *testing.T) {
	r := &Record{Address: NewAddr(net.ParseIP("8.8.8.8"), 16111)}
	now := time.Now()
	assert.Equal(t, StateNew, r.DerivedState(now, testTuning()))
}

func TestDerivedStateGoodRequiresDefaultPort(t *testing.T) {
	now := time.Now()
	r := &Record{
		Address:                  NewAddr(net.ParseIP("8.8.8.8"), 16111),
		LastSuccess:              now,
		lastSuccessOnDefaultPort: true,
	}
	assert.Equal(t, StateGood, r.DerivedState(now, testTuning()))

	r.lastSuccessOnDefaultPort = false
	assert.Equal(t, StateStale, r.DerivedState(now, testTuning()))
}

func TestDerivedStateGoodExpiresToStale(t *testing.T) {
	now := time.Now()
	r := &Record{
		Address:                  NewAddr(net.ParseIP("8.8.8.8"), 16111),
		LastSuccess:              now.Add(-3 * time.Hour),
		lastSuccessOnDefaultPort: true,
	}
	assert.Equal(t, StateStale, r.DerivedState(now, testTuning()))
}

func TestDerivedStateBadOnGiveUpThreshold(t *testing.T) {
	now := time.Now()
	r := &Record{
		Address:              NewAddr(net.ParseIP("8.8.8.8"), 16111),
		AttemptsSinceSuccess: 5,
		LastAttempt:          now,
	}
	assert.Equal(t, StateBad, r.DerivedState(now, testTuning()))
}

func TestDerivedStateBadOnStaleNoSuccess(t *testing.T) {
	now := time.Now()
	r := &Record{
		Address:     NewAddr(net.ParseIP("8.8.8.8"), 16111),
		LastAttempt: now.Add(-9 * time.Hour),
	}
	assert.Equal(t, StateBad, r.DerivedState(now, testTuning()))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := &Record{Address: NewAddr(net.ParseIP("8.8.8.8"), 16111)}
	cp := r.clone()
	cp.AttemptsSinceSuccess = 99
	assert.Equal(t, 0, r.AttemptsSinceSuccess)
}
