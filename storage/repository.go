// Package storage provides the durable slot layer for sealed session records.
//
// A Repository keeps Envelopes addressed by (namespace, key). The console
// keeps exactly one record in practice, the persisted bearer token, but the
// interface stays general so the same backends can hold other sealed
// operator state.
package storage

import "errors"

var (
	// ErrNotFound is returned when no record exists for a namespace/key.
	ErrNotFound = errors.New("record not found")
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("repository closed")
)

// Repository defines the interface for sealed record storage.
type Repository interface {
	Put(namespace, key string, envelope *Envelope) error
	Get(namespace, key string) (*Envelope, error)
	// Delete removes a record. Deleting a missing record returns ErrNotFound.
	Delete(namespace, key string) error
	List(namespace string) ([]string, error)
	Close() error
}
