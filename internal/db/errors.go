package db

import "errors"

var (
	// ErrKeyNotFound signals a cache miss.
	ErrKeyNotFound = errors.New("cache: key not found")
	// ErrNoAddrs is returned when a store is configured without any address.
	ErrNoAddrs = errors.New("cache: at least one address is required")
)

// Command names recorded in Error.Op.
const (
	OpGet = "GET"
	OpSet = "SET"
)

// Error records which cache command failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "cache " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
