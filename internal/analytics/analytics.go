// Package analytics wraps the optional PostHog client. With no API key
// configured every call is a no-op.
package analytics

import (
	"log"

	"github.com/posthog/posthog-go"
)

// Client sends product analytics events
type Client struct {
	ph posthog.Client
}

// New initializes a PostHog client. An empty key yields a no-op client.
func New(apiKey, endpoint string) *Client {
	c := &Client{}
	if apiKey == "" {
		return c
	}

	cfg := posthog.Config{}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	ph, err := posthog.NewWithConfig(apiKey, cfg)
	if err != nil {
		log.Printf("[Analytics] Failed to initialize PostHog: %v", err)
		return c
	}
	c.ph = ph
	return c
}

// Track sends an event to PostHog
func (c *Client) Track(event string, props map[string]interface{}) {
	if c.ph == nil {
		return
	}
	c.ph.Enqueue(posthog.Capture{
		DistinctId: "cloudweave_server",
		Event:      event,
		Properties: props,
	})
}

// Close flushes and shuts down the underlying client
func (c *Client) Close() {
	if c.ph != nil {
		c.ph.Close()
	}
}
