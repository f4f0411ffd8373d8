package redis

import (
	"context"
	"encoding/json"
	"time"
)

// SetJSON sets a key with JSON-encoded value
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, expiration)
}

// GetJSON gets a key and decodes JSON value
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// GetFloat gets a key and parses it as float64; missing keys return the fallback
func (c *Client) GetFloat(ctx context.Context, key string, fallback float64) (float64, error) {
	val, err := c.client.Get(ctx, key).Float64()
	if err == Nil {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}
