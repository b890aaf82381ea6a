package session

import "errors"

// ErrAlreadyRunning is returned by Run when the controller's loop is
// already active.
var ErrAlreadyRunning = errors.New("session: controller already running")
