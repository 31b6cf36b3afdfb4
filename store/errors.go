package store

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrNoSnapshots is returned by Persist and Restore when the store was
	// built without WithSnapshots.
	ErrNoSnapshots = goerrors.New("store has no snapshot backend", goerrors.CategoryInternal).
			WithTextCode("NO_SNAPSHOTS")

	// ErrNotFound is recorded when a lookup returns no record.
	ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode("NOT_FOUND")
)
