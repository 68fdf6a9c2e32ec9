// Package middleware provides the HTTP middleware stack: request IDs,
// logging, recovery, authentication, permissions, security headers, rate
// limiting and metrics.
package middleware

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Chain represents a composable chain of middleware
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Use adds a middleware to the chain
func (c *Chain) Use(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Then wraps handler so that middleware added first runs first
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}

// ThenFunc wraps an http.HandlerFunc with the middleware chain
func (c *Chain) ThenFunc(handlerFunc http.HandlerFunc) http.Handler {
	return c.Then(handlerFunc)
}

// Append creates a new chain without mutating c
func (c *Chain) Append(middlewares ...Middleware) *Chain {
	out := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	out = append(out, c.middlewares...)
	out = append(out, middlewares...)
	return &Chain{middlewares: out}
}

// Handlers returns the middleware as plain functions, for routers such as
// chi that take func(http.Handler) http.Handler.
func (c *Chain) Handlers() []func(http.Handler) http.Handler {
	out := make([]func(http.Handler) http.Handler, len(c.middlewares))
	for i, m := range c.middlewares {
		out[i] = m
	}
	return out
}
