package db

import "errors"

// ErrKeyNotFound is returned when a key does not exist.
var ErrKeyNotFound = errors.New("db: key not found")

// Command names carried by Error.
const (
	OpPing    = "PING"
	OpGet     = "GET"
	OpSet     = "SET"
	OpHSet    = "HSET"
	OpHGetAll = "HGETALL"
	OpScan    = "SCAN"
)

// Error records which command failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
