package types

import (
	"errors"
	"fmt"
)

// ErrAccess is returned when the OS denies access to a path
type ErrAccess struct {
	Path string
}

func (e *ErrAccess) Error() string {
	return fmt.Sprintf("access denied: %s", e.Path)
}

// From checks if the given error is an ErrAccess
func (e *ErrAccess) From(err error) bool {
	var access *ErrAccess
	return errors.As(err, &access)
}

// ErrNotFound is returned when an entry vanished between enumeration and stat
type ErrNotFound struct {
	Path string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}

// From checks if the given error is an ErrNotFound
func (e *ErrNotFound) From(err error) bool {
	var notFound *ErrNotFound
	return errors.As(err, &notFound)
}

// ErrIO is returned for OS read failures that are neither permission
// nor existence problems
type ErrIO struct {
	Path string
	Err  error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("i/o failure: %s: %v", e.Path, e.Err)
}

func (e *ErrIO) Unwrap() error {
	return e.Err
}

// ErrDecode is returned when a tag annotation blob cannot be parsed.
// Callers treat it as "no tags", never as a failure of the file record.
type ErrDecode struct {
	Reason string
}

func (e *ErrDecode) Error() string {
	return fmt.Sprintf("tag annotation decode failed: %s", e.Reason)
}

// From checks if the given error is an ErrDecode
func (e *ErrDecode) From(err error) bool {
	var decode *ErrDecode
	return errors.As(err, &decode)
}

// ErrStore is returned when an index read or write fails
type ErrStore struct {
	Op  string
	Err error
}

func (e *ErrStore) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *ErrStore) Unwrap() error {
	return e.Err
}

// ErrNotIndexed is returned when a query names a path no crawl has
// reached yet, so callers can distinguish it from an empty directory
type ErrNotIndexed struct {
	Path string
}

func (e *ErrNotIndexed) Error() string {
	return fmt.Sprintf("not indexed yet: %s", e.Path)
}

// From checks if the given error is an ErrNotIndexed
func (e *ErrNotIndexed) From(err error) bool {
	var notIndexed *ErrNotIndexed
	return errors.As(err, &notIndexed)
}
