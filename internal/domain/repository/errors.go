package repository

import "errors"

var (
	// ErrKeyNotFound is returned when an API key does not exist.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrDuplicateKey is returned when creating an API key that already exists.
	ErrDuplicateKey = errors.New("api key already exists")

	// ErrRecordNotFound is returned when no cache record exists for a pair.
	ErrRecordNotFound = errors.New("cache record not found")

	// ErrBucketNotFound is returned when the configured blob bucket is missing.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when a blob object does not exist.
	ErrObjectNotFound = errors.New("object not found")
)
