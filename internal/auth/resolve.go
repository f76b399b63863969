package auth

import "net/http"

// Strategy attempts to resolve a caller identity from one credential
// source on the request. It returns (nil, nil) when the request carries
// no credentials for this source, and an error when credentials were
// presented but failed validation.
type Strategy func(r *http.Request) (*User, error)

// HeaderStrategy resolves identity from the Authorization bearer header.
func (v *Validator) HeaderStrategy() Strategy {
	return func(r *http.Request) (*User, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return nil, nil
		}
		token, err := ExtractBearer(header)
		if err != nil {
			return nil, err
		}
		return v.Validate(token)
	}
}

// QueryStrategy resolves identity from a token query parameter. Streaming
// clients (EventSource) cannot set headers, so the stream endpoint accepts
// the token on the connection URL instead.
func (v *Validator) QueryStrategy(param string) Strategy {
	return func(r *http.Request) (*User, error) {
		token := r.URL.Query().Get(param)
		if token == "" {
			return nil, nil
		}
		return v.Validate(token)
	}
}

// Chain tries an ordered list of strategies until one yields an identity.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a Chain over the given strategies, tried in order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Resolve returns the identity of the first strategy that succeeds. When
// every presented credential fails, the last failure is returned; when no
// strategy saw credentials at all, ErrMissingToken is returned.
func (c *Chain) Resolve(r *http.Request) (*User, error) {
	var lastErr error
	for _, s := range c.strategies {
		user, err := s(r)
		if user != nil {
			return user, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrMissingToken
}
