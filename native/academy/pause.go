package academy

// Pause halts course creation, updates, enrollment and completion.
// Withdrawals and administration stay available.
func (e *Engine) Pause(caller [20]byte) error {
	s, err := e.check(e.onlyRole(caller, RoleEmergencyAdminOrOwner))
	if err != nil {
		return err
	}
	if s.Paused {
		return ErrPaused
	}
	s.Paused = true
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(pauseEvent(true, caller))
	return nil
}

// Unpause lifts a pause. Only the owner may unpause.
func (e *Engine) Unpause(caller [20]byte) error {
	s, err := e.check(e.onlyRole(caller, RoleOwner))
	if err != nil {
		return err
	}
	if !s.Paused {
		return ErrNotPaused
	}
	s.Paused = false
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(pauseEvent(false, caller))
	return nil
}

// Paused reports the current halt state.
func (e *Engine) Paused() (bool, error) {
	s, err := e.settings()
	if err != nil {
		return false, err
	}
	return s.Paused, nil
}
