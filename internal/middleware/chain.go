// Package middleware provides the HTTP middleware chain and the common
// middlewares shared by the proxy and management listeners.
package middleware

import "net/http"

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain represents a chain of middlewares.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Then chains the middlewares and returns the final handler.
func (c *Chain) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.DefaultServeMux
	}
	// Apply middlewares in reverse order so first middleware is outermost.
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// ThenFunc chains the middlewares with an http.HandlerFunc.
func (c *Chain) ThenFunc(fn http.HandlerFunc) http.Handler {
	if fn == nil {
		return c.Then(nil)
	}
	return c.Then(fn)
}

// Append adds middlewares to the chain and returns a new chain.
func (c *Chain) Append(middlewares ...Middleware) *Chain {
	merged := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	merged = append(merged, c.middlewares...)
	merged = append(merged, middlewares...)
	return &Chain{middlewares: merged}
}

// Len returns the number of middlewares in the chain.
func (c *Chain) Len() int {
	return len(c.middlewares)
}
