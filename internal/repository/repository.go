package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g. postgres) inside this directory.

import "errors"

// ErrUpdateConflict is returned by compare-and-swap updates when the row was
// modified by another writer since it was last read.
var ErrUpdateConflict = errors.New("row changed since last read")
