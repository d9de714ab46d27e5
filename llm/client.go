// ABOUTME: Unified client over provider adapters with retry and middleware.
// ABOUTME: Routes requests to a named adapter and wraps Complete calls in the retry policy.

package llm

import (
	"context"
	"fmt"
	"sync"
)

// Middleware wraps a Complete call. Middlewares run in registration order.
type Middleware func(next CompleteFunc) CompleteFunc

// CompleteFunc is the signature middleware wraps.
type CompleteFunc func(ctx context.Context, req *Request) (*Response, error)

// Client routes requests to registered provider adapters.
type Client struct {
	mu          sync.RWMutex
	adapters    map[string]ProviderAdapter
	defaultName string
	retry       RetryPolicy
	middleware  []Middleware
}

// NewClient creates a client with the default retry policy.
func NewClient() *Client {
	return &Client{
		adapters: make(map[string]ProviderAdapter),
		retry:    DefaultRetryPolicy(),
	}
}

// Register adds an adapter. The first registered adapter becomes the default.
func (c *Client) Register(adapter ProviderAdapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapters[adapter.Name()] = adapter
	if c.defaultName == "" {
		c.defaultName = adapter.Name()
	}
}

// SetDefault selects the default adapter by name.
func (c *Client) SetDefault(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.adapters[name]; !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	c.defaultName = name
	return nil
}

// SetRetryPolicy replaces the retry policy.
func (c *Client) SetRetryPolicy(p RetryPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retry = p
}

// Use appends middleware to the Complete chain.
func (c *Client) Use(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, mw)
}

func (c *Client) adapter(name string) (ProviderAdapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name == "" {
		name = c.defaultName
	}
	a, ok := c.adapters[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return a, nil
}

// Complete runs a completion through the middleware chain with retries.
func (c *Client) Complete(ctx context.Context, provider string, req *Request) (*Response, error) {
	a, err := c.adapter(provider)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	c.mu.RLock()
	policy := c.retry
	chain := make([]Middleware, len(c.middleware))
	copy(chain, c.middleware)
	c.mu.RUnlock()

	call := func(ctx context.Context, req *Request) (*Response, error) {
		var resp *Response
		err := policy.Do(ctx, func() error {
			var callErr error
			resp, callErr = a.Complete(ctx, req)
			return callErr
		})
		return resp, err
	}

	for i := len(chain) - 1; i >= 0; i-- {
		call = chain[i](call)
	}
	return call(ctx, req)
}

// Stream starts a streaming completion. Streams are not retried; a failed
// stream surfaces as an error event.
func (c *Client) Stream(ctx context.Context, provider string, req *Request) (<-chan StreamEvent, error) {
	a, err := c.adapter(provider)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return a.Stream(ctx, req)
}

// Close closes all registered adapters, returning the first failure.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for _, a := range c.adapters {
		if err := a.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
