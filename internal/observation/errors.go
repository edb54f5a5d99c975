package observation

import (
	"context"
	"errors"
)

// Error kinds shared by the upstream client, the cache and the catalog.
// Concrete errors wrap one of these with %w.
var (
	ErrTransport       = errors.New("transport error")
	ErrDataUnavailable = errors.New("data unavailable")
	ErrMalformedData   = errors.New("malformed data")
	ErrMalformedKey    = errors.New("malformed key")
	ErrTimeout         = errors.New("timeout")
	ErrCanceled        = errors.New("canceled")
)

// Kind is the stable, JSON-friendly name of an error kind.
type Kind string

const (
	KindNone            Kind = ""
	KindTransport       Kind = "TransportError"
	KindDataUnavailable Kind = "DataUnavailable"
	KindMalformedData   Kind = "MalformedData"
	KindMalformedKey    Kind = "MalformedKey"
	KindTimeout         Kind = "Timeout"
	KindCanceled        Kind = "Canceled"
	KindUnknown         Kind = "Unknown"
)

// KindOf classifies err. Context errors are folded into Timeout and Canceled.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrMalformedData):
		return KindMalformedData
	case errors.Is(err, ErrMalformedKey):
		return KindMalformedKey
	case errors.Is(err, ErrTransport):
		return KindTransport
	default:
		return KindUnknown
	}
}
