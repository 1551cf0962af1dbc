package idb

import (
	"go.uber.org/zap"

	"idbstore/src/storage"
)

// ObjectStoreParameters configures CreateObjectStore. Only out-of-line
// auto-incremented integer keys are supported: KeyPath must stay empty and
// AutoIncrement must be set.
type ObjectStoreParameters struct {
	KeyPath       string
	AutoIncrement bool
}

// Database is the user-facing handle to one logical database. It is built
// by an open request and remembers the store names resolved at open time;
// a version-change upgrade is the only place the set may change.
type Database struct {
	Name    string
	Version int64

	worker *Worker
	path   string
	logger *zap.SugaredLogger

	storeNames       []string
	versionChangeTxn *IDBTransaction
	closePending     bool
}

func newDatabase(worker *Worker, path, name string, version int64,
	storeNames []string, logger *zap.SugaredLogger) *Database {
	return &Database{
		Name:       name,
		Version:    version,
		worker:     worker,
		path:       path,
		logger:     logger,
		storeNames: append([]string(nil), storeNames...),
	}
}

// ObjectStoreNames returns the names of the stores in this database.
func (db *Database) ObjectStoreNames() []string {
	return append([]string(nil), db.storeNames...)
}

func (db *Database) containsStore(name string) bool {
	for _, existing := range db.storeNames {
		if existing == name {
			return true
		}
	}
	return false
}

// CreateObjectStore creates a store. It is only valid inside a running
// version-change upgrade.
func (db *Database) CreateObjectStore(name string, parameters *ObjectStoreParameters) (*ObjectStore, error) {
	if db.versionChangeTxn == nil {
		return nil, NewDOMError(ErrInvalidState)
	}
	if !db.versionChangeTxn.active || db.versionChangeTxn.sqlTxn == nil {
		return nil, NewDOMError(ErrTransactionInactive)
	}
	if parameters == nil || parameters.KeyPath != "" || !parameters.AutoIncrement {
		return nil, NewDOMError(ErrNotSupported,
			"Only auto-incremented stores without a key path are supported")
	}
	if db.containsStore(name) {
		return nil, NewDOMError(ErrConstraint)
	}

	status := db.versionChangeTxn.sqlTxn.CreateObjectStore(db.Name, name)
	if status != storage.StatusSuccess {
		return nil, NewDOMError(ErrUnknown)
	}
	db.storeNames = append(db.storeNames, name)
	db.versionChangeTxn.addObjectStore(name)

	return db.versionChangeTxn.scope[name], nil
}

// DeleteObjectStore deletes a store and its data. It is only valid inside
// a running version-change upgrade.
func (db *Database) DeleteObjectStore(name string) error {
	if db.versionChangeTxn == nil {
		return NewDOMError(ErrInvalidState)
	}
	if !db.versionChangeTxn.active || db.versionChangeTxn.sqlTxn == nil {
		return NewDOMError(ErrTransactionInactive)
	}
	if !db.containsStore(name) {
		return NewDOMError(ErrNotFound)
	}

	status := db.versionChangeTxn.sqlTxn.DeleteObjectStore(db.Name, name)
	if status != storage.StatusSuccess {
		return NewDOMError(ErrUnknown)
	}
	removeElement(&db.storeNames, name)
	db.versionChangeTxn.deleteObjectStore(name)
	return nil
}

// Transaction opens a new transaction over the named stores. The returned
// transaction queues requests until Commit hands them to the worker.
func (db *Database) Transaction(storeNames []string, mode TransactionMode) (*IDBTransaction, error) {
	if db.versionChangeTxn != nil || db.closePending {
		return nil, NewDOMError(ErrInvalidState)
	}
	for _, name := range storeNames {
		if !db.containsStore(name) {
			return nil, NewDOMError(ErrNotFound)
		}
	}
	if len(storeNames) == 0 {
		return nil, NewDOMError(ErrInvalidAccess)
	}
	if mode != ReadOnly && mode != ReadWrite {
		return nil, NewDOMError(ErrData,
			"Transaction mode must be 'readonly' or 'readwrite'")
	}

	return newIDBTransaction(db, mode, storeNames), nil
}

// Close flags the handle as closing. Closing during an upgrade makes the
// open request fail with AbortError.
func (db *Database) Close() {
	db.closePending = true
}

func (db *Database) isClosed() bool { return db.closePending }

func removeElement(list *[]string, value string) {
	for i, existing := range *list {
		if existing == value {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}
