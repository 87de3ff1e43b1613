package quickedit

import (
	"errors"

	"kol-studio/internal/asset"
)

type State string

const (
	StateIdle    State = "idle"
	StateEditing State = "editing"
	StateSuccess State = "success"
	StateError   State = "error"
)

var ErrBusy = errors.New("an edit is already in progress")

// Session is the per-workspace edit modal state. The zero value is idle.
type Session struct {
	State  State               `json:"state"`
	Target *asset.LibraryAsset `json:"target,omitempty"`
	Error  string              `json:"error,omitempty"`
	Result *asset.LibraryAsset `json:"result,omitempty"`
}

func (s Session) current() State {
	if s.State == "" {
		return StateIdle
	}
	return s.State
}

func (s Session) Begin(target asset.LibraryAsset) (Session, error) {
	if s.current() == StateEditing {
		return s, ErrBusy
	}
	return Session{State: StateEditing, Target: &target}, nil
}

func (s Session) Succeed(result asset.LibraryAsset) Session {
	return Session{State: StateSuccess, Target: s.Target, Result: &result}
}

func (s Session) Fail(err error) Session {
	return Session{State: StateError, Target: s.Target, Error: err.Error()}
}

// Close returns the canonical empty shape.
func (s Session) Close() Session {
	return Session{State: StateIdle}
}
