package types

import "sync"

// ProcessState is process-scoped driver state shared by every Database
// created from it: the one-time integrity check flag and the locking mode
// remembered across reconnects. Create one at startup with NewProcessState.
type ProcessState struct {
	mu                 sync.Mutex
	checkedAndRepaired bool
	lockingMode        string
}

// NewProcessState returns empty state: nothing checked, no locking mode
// remembered.
func NewProcessState() *ProcessState {
	return &ProcessState{}
}

// BeginCheck marks the integrity check as done and reports whether this
// call was the first.
func (s *ProcessState) BeginCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkedAndRepaired {
		return false
	}
	s.checkedAndRepaired = true
	return true
}

// Checked reports whether the integrity check has run.
func (s *ProcessState) Checked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkedAndRepaired
}

// LockingMode returns the remembered locking mode, or DefaultLockingMode.
func (s *ProcessState) LockingMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockingMode == "" {
		return DefaultLockingMode
	}
	return s.lockingMode
}

// RememberedLockingMode returns the remembered locking mode, or "".
func (s *ProcessState) RememberedLockingMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockingMode
}

// RememberLockingMode records mode for later reconnects.
func (s *ProcessState) RememberLockingMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockingMode = mode
}
