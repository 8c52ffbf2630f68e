package common

import (
	"errors"
	"math"
	"sync"
)

var (
	ErrQuotaCallsExceeded    = errors.New("quota calls exceeded")
	ErrQuotaValueCapExceeded = errors.New("quota value cap exceeded")
	ErrQuotaCounterOverflow  = errors.New("quota counter overflow")
)

// Quota bounds how often an address may call mutating entry points and how
// much value it may attach per epoch. Zero fields disable the limit.
type Quota struct {
	MaxCallsPerMin   uint32
	MaxValuePerEpoch uint64
	EpochSeconds     uint32
}

// Usage captures the counters for a single address.
type Usage struct {
	Minute    int64
	Calls     uint32
	Epoch     uint64
	ValueUsed uint64
}

func (q Quota) epochOf(unix int64) uint64 {
	if q.EpochSeconds == 0 || unix < 0 {
		return 0
	}
	return uint64(unix) / uint64(q.EpochSeconds)
}

// CheckQuota verifies whether one more call carrying addValue fits within the
// quota. The returned Usage reflects the updated counters when allowed; on
// denial prev is returned unchanged.
func CheckQuota(q Quota, nowUnix int64, prev Usage, addValue uint64) (Usage, error) {
	next := prev
	minute := nowUnix / 60
	if prev.Minute != minute {
		next.Minute = minute
		next.Calls = 0
	}
	epoch := q.epochOf(nowUnix)
	if prev.Epoch != epoch {
		next.Epoch = epoch
		next.ValueUsed = 0
	}

	if next.Calls == math.MaxUint32 {
		return prev, ErrQuotaCounterOverflow
	}
	next.Calls++
	if q.MaxCallsPerMin > 0 && next.Calls > q.MaxCallsPerMin {
		return prev, ErrQuotaCallsExceeded
	}

	if addValue > 0 {
		if next.ValueUsed > math.MaxUint64-addValue {
			return prev, ErrQuotaCounterOverflow
		}
		next.ValueUsed += addValue
	}
	if q.MaxValuePerEpoch > 0 && next.ValueUsed > q.MaxValuePerEpoch {
		return prev, ErrQuotaValueCapExceeded
	}
	return next, nil
}

// QuotaTracker keeps per-address usage in memory.
type QuotaTracker struct {
	mu    sync.Mutex
	quota Quota
	usage map[[20]byte]Usage
}

// NewQuotaTracker constructs a tracker enforcing q.
func NewQuotaTracker(q Quota) *QuotaTracker {
	return &QuotaTracker{quota: q, usage: make(map[[20]byte]Usage)}
}

// Charge records one call by addr, failing when the quota is exhausted.
func (t *QuotaTracker) Charge(addr [20]byte, nowUnix int64, value uint64) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	next, err := CheckQuota(t.quota, nowUnix, t.usage[addr], value)
	if err != nil {
		return err
	}
	t.usage[addr] = next
	return nil
}
