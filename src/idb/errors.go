package idb

import (
	"errors"

	"idbstore/src/storage"
	"idbstore/src/storedvalue"
)

// DOMError is the user-visible error kind for every failure in this
// package. Raw storage statuses never cross the request boundary.
type DOMError struct {
	Name    string
	Message string
}

// Error kind names.
const (
	ErrInvalidState        = "InvalidStateError"
	ErrTransactionInactive = "TransactionInactiveError"
	ErrReadOnly            = "ReadOnlyError"
	ErrVersion             = "VersionError"
	ErrConstraint          = "ConstraintError"
	ErrData                = "DataError"
	ErrNotFound            = "NotFoundError"
	ErrNotSupported        = "NotSupportedError"
	ErrInvalidAccess       = "InvalidAccessError"
	ErrDataClone           = "DataCloneError"
	ErrAbort               = "AbortError"
	ErrQuotaExceeded       = "QuotaExceededError"
	ErrUnknown             = "UnknownError"
)

func (e *DOMError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// NewDOMError builds an error of the given kind with an optional message.
func NewDOMError(name string, message ...string) *DOMError {
	err := &DOMError{Name: name}
	if len(message) > 0 {
		err.Message = message[0]
	}
	return err
}

// IsDOMError reports whether err is a DOMError of the given kind.
func IsDOMError(err error, name string) bool {
	var domErr *DOMError
	return errors.As(err, &domErr) && domErr.Name == name
}

// errorFromStatus maps a backing-store status onto the user-visible kinds.
func errorFromStatus(status storage.Status) *DOMError {
	switch status {
	case storage.StatusNotFound:
		return NewDOMError(ErrNotFound)
	case storage.StatusAlreadyExists:
		return NewDOMError(ErrData)
	case storage.StatusBusy:
		return NewDOMError(ErrQuotaExceeded)
	case storage.StatusBadVersionNumber:
		return NewDOMError(ErrVersion)
	default:
		return NewDOMError(ErrUnknown)
	}
}

// asDOMError normalizes codec and other internal errors to a DOMError.
func asDOMError(err error) *DOMError {
	var domErr *DOMError
	if errors.As(err, &domErr) {
		return domErr
	}
	var cloneErr *storedvalue.DataCloneError
	if errors.As(err, &cloneErr) {
		return NewDOMError(ErrDataClone, cloneErr.Message)
	}
	return NewDOMError(ErrUnknown, err.Error())
}
