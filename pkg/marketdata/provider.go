package marketdata

import (
	"context"
	"errors"
)

// ErrMissingCredential is returned by provider constructors when the
// surrounding environment supplied no API credential. The check runs before
// any request is attempted.
var ErrMissingCredential = errors.New("missing API credential")

// Provider fetches the price history of one symbol per call. The call blocks
// until the upstream answers or the transport gives up; the raw body is
// returned undecoded so the caller decides what a usable response is.
type Provider interface {
	History(ctx context.Context, symbol string) ([]byte, error)
	Name() string
}
