package persistence

// Package persistence provides the durable key-value backend that the
// conversation store writes its state through. The interface is deliberately
// tiny so that tests can swap in the in-memory implementation while the CLI
// uses the file-backed one.

import "github.com/pkg/errors"

// ErrKeyNotFound is returned by Get when no value has been stored under the
// requested key.
var ErrKeyNotFound = errors.New("key not found")

// Store is a durable key-value store. Set must be atomic: readers never
// observe a partially written value.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
