package common

import "errors"

// ErrModulePaused is returned when a mutating operation hits a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports per-module pause toggles controlled by governance.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating operations for paused modules. A nil view means no
// pause control is wired and the guard is a no-op.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
