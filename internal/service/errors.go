package service

import "errors"

// Sentinel errors for the signing workflow. Handlers map these onto HTTP
// status codes; everything else surfaces as an internal error.
var (
	// ErrNotFound means the lease or addendum does not exist
	ErrNotFound = errors.New("resource not found")
	// ErrTokenNotFound means no live slot references the presented token
	ErrTokenNotFound = errors.New("signing token not found")
	// ErrTokenExpired means the token exists but its validity window passed
	ErrTokenExpired = errors.New("signing token expired")
	// ErrAlreadySigned means this signer's slot already holds a signature
	ErrAlreadySigned = errors.New("document already signed by this party")
	// ErrAlreadyCountersigned means the landlord signature is already present
	ErrAlreadyCountersigned = errors.New("document already countersigned")
	// ErrDocumentNotSignable means the document is not accepting signatures
	ErrDocumentNotSignable = errors.New("document is not in a signable state")
	// ErrInvalidLifecycleState means the requested transition is not legal
	// from the document's current status
	ErrInvalidLifecycleState = errors.New("invalid lifecycle state for this operation")
)
