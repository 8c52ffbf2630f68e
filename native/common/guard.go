package common

import "errors"

var (
	ErrModulePaused = errors.New("module paused")
	ErrReentrant    = errors.New("reentrant call")
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// ReentrancyLock rejects a second entry into a guarded section while the
// first is still running. The zero value is unlocked.
type ReentrancyLock struct {
	entered bool
}

// Enter acquires the lock. The returned release function must be deferred by
// the caller; it is nil when the lock is already held.
func (l *ReentrancyLock) Enter() (func(), error) {
	if l.entered {
		return nil, ErrReentrant
	}
	l.entered = true
	return func() { l.entered = false }, nil
}

// Held reports whether a guarded section is currently running.
func (l *ReentrancyLock) Held() bool { return l.entered }
