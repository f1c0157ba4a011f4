package testutil

import "errors"

// Common test errors
var (
	ErrNotPrimary  = errors.New("not primary")
	ErrTestFailure = errors.New("test failure")
)
