package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruteri/lambda-contact-page/interfaces"
)

// ChainResolver tries resolvers in order until one has the value.
type ChainResolver []interfaces.ConfigResolver

// Resolve returns the first result that is not ErrContentNotFound.
func (c ChainResolver) Resolve(ctx context.Context, name string, encrypted bool) (string, error) {
	for _, r := range c {
		value, err := r.Resolve(ctx, name, encrypted)
		if errors.Is(err, interfaces.ErrContentNotFound) {
			continue
		}
		return value, err
	}
	return "", fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, name)
}

// Static resolves values from a fixed map. Useful for flags and tests.
type Static map[string]string

func (s Static) Resolve(_ context.Context, name string, _ bool) (string, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, name)
}
