package loclient

import "errors"

var (
	// ErrInvalidAPIKey is returned when an API key does not decode to 32
	// hex characters.
	ErrInvalidAPIKey = errors.New("loclient: invalid API key")

	// ErrIdentityRequired is returned by Connect/Run/Cycle when the device
	// id or namespace has not been set yet.
	ErrIdentityRequired = errors.New("loclient: device id and namespace must be set before connect")

	// ErrParamsNotAttached is returned by PushCfgParams when AttachCfgParams
	// was never called.
	ErrParamsNotAttached = errors.New("loclient: no parameter set attached")
)
