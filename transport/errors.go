package transport

import (
	"errors"
	"fmt"

	"github.com/orange-lo/iotsoftbox-go/internal/wire"
)

// Sentinel errors returned by the client.
var (
	// ErrNotConnected is returned by Publish/Subscribe/Unsubscribe/Yield when
	// called before Connect succeeds or after Disconnect.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrAlreadyConnected is returned by Connect when called on an already
	// connected client.
	ErrAlreadyConnected = errors.New("transport: already connected")

	// ErrSubscribeRejected is returned when the broker SUBACK refuses every
	// requested topic filter.
	ErrSubscribeRejected = errors.New("transport: subscribe rejected")

	// ErrYieldTimeout is returned by Yield when no data arrived within the
	// requested window; callers treat it as "nothing to do", not a failure.
	ErrYieldTimeout = errors.New("transport: yield timeout")
)

// ConnectError wraps a CONNACK return code that is not ConnAccepted.
type ConnectError struct {
	ReturnCode uint8
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect refused (return code 0x%02x: %s)", e.ReturnCode, connectReturnCodeText(e.ReturnCode))
}

// Is allows errors.Is(err, transport.ErrConnectionRefused).
func (e *ConnectError) Is(target error) bool {
	return target == ErrConnectionRefused
}

// ErrConnectionRefused is the sentinel matched by ConnectError.Is, letting
// callers branch on "was it refused" without caring about the exact code.
var ErrConnectionRefused = errors.New("transport: connection refused")

func connectReturnCodeText(code uint8) string {
	switch code {
	case wire.ConnRefusedUnacceptableProtocol:
		return "unacceptable protocol version"
	case wire.ConnRefusedIdentifierRejected:
		return "identifier rejected"
	case wire.ConnRefusedServerUnavailable:
		return "server unavailable"
	case wire.ConnRefusedBadUsernameOrPassword:
		return "bad username or password"
	case wire.ConnRefusedNotAuthorized:
		return "not authorized"
	default:
		return "unknown"
	}
}
