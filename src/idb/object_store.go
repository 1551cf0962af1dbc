package idb

import (
	"idbstore/src/storedvalue"
)

// ObjectStore is the user-facing handle to one store within one
// transaction. Every operation validates, in order: the store still exists
// in the owning database, the transaction is active, and (for writes) the
// transaction is not read-only. Violations fail synchronously; no request
// reaches the worker.
type ObjectStore struct {
	transaction *IDBTransaction

	Name string

	// AutoIncrement and KeyPath describe the only supported store shape:
	// out-of-line integer keys with a key generator.
	AutoIncrement bool
	KeyPath       string
}

func newObjectStore(transaction *IDBTransaction, name string) *ObjectStore {
	return &ObjectStore{transaction: transaction, Name: name, AutoIncrement: true}
}

// Transaction returns the transaction this handle belongs to.
func (s *ObjectStore) Transaction() *IDBTransaction { return s.transaction }

// Add stores value under key, or under a generated key when key is nil.
// An existing row under an explicit key is a ConstraintError.
func (s *ObjectStore) Add(value interface{}, key *int64) (*Request, error) {
	return s.addOrPut(value, key, true)
}

// Put stores value under key, replacing any existing row.
func (s *ObjectStore) Put(value interface{}, key *int64) (*Request, error) {
	return s.addOrPut(value, key, false)
}

func (s *ObjectStore) addOrPut(value interface{}, key *int64, noOverwrite bool) (*Request, error) {
	if err := s.checkWritable(); err != nil {
		return nil, err
	}
	if s.KeyPath != "" && key != nil {
		return nil, NewDOMError(ErrData,
			"A key was supplied but the store uses an in-line key path")
	}
	if !s.AutoIncrement && key == nil {
		return nil, NewDOMError(ErrData,
			"The store has no key generator, so a key must be supplied")
	}

	// Clone errors surface synchronously, before any storage work.
	encoded, err := storedvalue.Encode(value)
	if err != nil {
		return nil, asDOMError(err)
	}

	req := newRequest(s, s.transaction)
	return s.transaction.addRequest(&storeRequest{
		request:     req,
		value:       encoded,
		key:         key,
		noOverwrite: noOverwrite,
	}), nil
}

// Get reads the value stored under key. A missing key completes the
// request with NotFoundError.
func (s *ObjectStore) Get(key int64) (*Request, error) {
	if err := s.checkUsable(); err != nil {
		return nil, err
	}

	req := newRequest(s, s.transaction)
	return s.transaction.addRequest(&getRequest{request: req, key: key}), nil
}

// Delete removes the row under key; a missing key still succeeds.
func (s *ObjectStore) Delete(key int64) (*Request, error) {
	if err := s.checkWritable(); err != nil {
		return nil, err
	}

	req := newRequest(s, s.transaction)
	return s.transaction.addRequest(&deleteRequest{request: req, key: key}), nil
}

// OpenCursor starts iterating the store in the given direction. The
// request completes with the positioned *Cursor, or nil once the store is
// exhausted.
func (s *ObjectStore) OpenCursor(direction CursorDirection) (*Request, error) {
	if err := s.checkUsable(); err != nil {
		return nil, err
	}

	cursor := &Cursor{Source: s, Direction: direction}
	req := newRequest(s, s.transaction)
	iterate := &iterateCursorRequest{request: req, cursor: cursor, count: 1}
	cursor.Request = req
	cursor.iterate = iterate
	return s.transaction.addRequest(iterate), nil
}

func (s *ObjectStore) checkUsable() error {
	if !s.transaction.db.containsStore(s.Name) {
		return NewDOMError(ErrInvalidState)
	}
	if !s.transaction.isActive() {
		return NewDOMError(ErrTransactionInactive)
	}
	return nil
}

func (s *ObjectStore) checkWritable() error {
	if err := s.checkUsable(); err != nil {
		return err
	}
	if s.transaction.Mode == ReadOnly {
		return NewDOMError(ErrReadOnly)
	}
	return nil
}
