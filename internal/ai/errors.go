package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when a hosted provider has no API key.
	ErrMissingAPIKey = errors.New("the API_KEY environment variable is missing: export API_KEY or run `webviber config set-key <key>`")

	// ErrUnauthorized is returned when the provider rejects the API key.
	ErrUnauthorized = errors.New("the API key is missing or invalid: check API_KEY or run `webviber config set-key <key>`")
)

// unauthorized wraps err so that errors.Is(err, ErrUnauthorized) holds while
// keeping the provider's own message.
func unauthorized(provider string, err error) error {
	return fmt.Errorf("%w (%s: %v)", ErrUnauthorized, provider, err)
}
