// Package kv is the durable key-value store behind the session gate and the
// manager roster. Keys are plain strings, values are opaque strings (the
// callers store JSON or formatted numbers). A missing key is not an error.
package kv

import "context"

type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
