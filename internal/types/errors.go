package types

import "fmt"

// Domain error taxonomy. Every error carries a stable machine-readable
// kind (via its type) plus a human message; handlers translate these to
// transport envelopes through apierr.

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("dataset name %q already exists", e.Name)
}

// ConcurrentUpdateError is surfaced when the optimistic retry budget for a
// per-record update is exhausted. The caller may retry the whole operation.
type ConcurrentUpdateError struct {
	ID string
}

func (e *ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("concurrent update on record %s, retries exhausted", e.ID)
}

type BlobStoreError struct {
	Op  string
	Key string
	Err error
}

func (e *BlobStoreError) Error() string {
	return fmt.Sprintf("blob store %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *BlobStoreError) Unwrap() error { return e.Err }
