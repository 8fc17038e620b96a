package network

import (
	stderrors "errors"

	"github.com/go-errors/errors"
)

// Kind classifies every failure the connection manager reports.
type Kind uint32

const (
	_ Kind = iota
	ErrResourceUnavailable
	ErrScanFailed
	ErrCredentialsMissing
	ErrConnectFailed
	ErrAccessPointNotFound
	ErrBridge
	ErrBridgeClosed
)

func (k Kind) Error() string {
	switch k {
	case ErrResourceUnavailable:
		return "no wifi device has been found"
	case ErrScanFailed:
		return "scan request was rejected"
	case ErrCredentialsMissing:
		return "credentials are missing for the access point security"
	case ErrConnectFailed:
		return "failed to establish connection"
	case ErrAccessPointNotFound:
		return "access point not found"
	case ErrBridge:
		return "could not deliver task to network worker"
	case ErrBridgeClosed:
		return "network worker is closed"
	}
	return "unknown error"
}

// Is lets a closed bridge also match ErrBridge.
func (k Kind) Is(target error) bool {
	return k == ErrBridgeClosed && target == ErrBridge
}

// IsBridgeError reports whether err is a fault of the worker plumbing rather
// than a failed network operation.
func IsBridgeError(err error) bool {
	return stderrors.Is(err, ErrBridge)
}

type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}

// wrapKind attaches a kind to an underlying cause and records a stack trace.
func wrapKind(kind Kind, cause error) error {
	if cause == nil {
		return errors.Wrap(kind, 1)
	}

	return errors.Wrap(&kindError{kind: kind, cause: cause}, 1)
}
