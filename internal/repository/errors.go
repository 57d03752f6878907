package repository

import "errors"

// ErrNotFound is returned when a referenced row does not exist within the
// caller's scope. Cross-tenant reads surface as ErrNotFound too, so error
// messages never leak another tenant's existence.
var ErrNotFound = errors.New("not found")
