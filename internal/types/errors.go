package types

import "errors"

var (
	// ErrValidation marks a malformed creation payload, rejected before
	// any write.
	ErrValidation = errors.New("validation error")

	// ErrPrecondition marks an action attempted against a record in the
	// wrong state, e.g. claiming an unconfirmed stake or buying back a
	// wBTC stake without an on-chain reference. Never retried.
	ErrPrecondition = errors.New("precondition violation")

	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict marks a user-linking request whose two addresses
	// resolve to two distinct existing users.
	ErrConflict = errors.New("address conflict")
)
