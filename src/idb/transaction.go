package idb

import (
	"sync"

	"idbstore/src/storage"
)

// TransactionMode restricts what the requests of a transaction may do.
type TransactionMode int

const (
	ReadOnly TransactionMode = iota
	ReadWrite
	// VersionChange is reserved for the upgrade scope of an open request;
	// it cannot be requested through Database.Transaction.
	VersionChange
)

func (m TransactionMode) String() string {
	switch m {
	case ReadOnly:
		return "readonly"
	case ReadWrite:
		return "readwrite"
	case VersionChange:
		return "versionchange"
	default:
		return "TransactionMode(?)"
	}
}

// IDBTransaction is the user-facing transaction handle. Requests queue on
// it until Commit hands the whole batch to the worker, which runs every
// request inside one physical storage transaction and then commits it (or
// rolls it back, if the transaction was aborted).
type IDBTransaction struct {
	db   *Database
	Mode TransactionMode

	// Err is the terminal error when the transaction aborted; nil after a
	// clean commit.
	Err *DOMError

	// Completion handlers; they run on the worker after the physical
	// commit or rollback.
	OnComplete func(*IDBTransaction)
	OnAbort    func(*IDBTransaction)
	OnError    func(*IDBTransaction)

	mu        sync.Mutex
	requests  []performer
	scope     map[string]*ObjectStore
	active    bool
	done      bool
	aborted   bool
	scheduled bool
	finished  chan struct{}

	// sqlTxn is the open physical transaction while the worker is running
	// this transaction's requests (and during an upgrade callback).
	sqlTxn *storage.Transaction
}

func newIDBTransaction(db *Database, mode TransactionMode, scope []string) *IDBTransaction {
	t := &IDBTransaction{
		db:       db,
		Mode:     mode,
		scope:    make(map[string]*ObjectStore, len(scope)),
		active:   true,
		finished: make(chan struct{}),
	}
	for _, name := range scope {
		t.scope[name] = newObjectStore(t, name)
	}
	return t
}

// Database returns the connection handle this transaction belongs to.
func (t *IDBTransaction) Database() *Database { return t.db }

// ObjectStore returns the store handle for name within this transaction's
// scope.
func (t *IDBTransaction) ObjectStore(name string) (*ObjectStore, error) {
	if t.done {
		return nil, NewDOMError(ErrInvalidState)
	}
	store, ok := t.scope[name]
	if !ok {
		return nil, NewDOMError(ErrNotFound)
	}
	return store, nil
}

// Abort marks the transaction for rollback. Requests that have not run yet
// will complete with AbortError.
func (t *IDBTransaction) Abort() error {
	if t.done {
		return NewDOMError(ErrInvalidState)
	}
	t.aborted = true
	t.active = false
	return nil
}

// Commit schedules the transaction's requests on the worker. Further
// requests may only be queued by handlers running inside the commit (the
// cursor's Continue does this); a second Commit is an InvalidStateError.
func (t *IDBTransaction) Commit() error {
	t.mu.Lock()
	if t.scheduled || t.done {
		t.mu.Unlock()
		return NewDOMError(ErrInvalidState)
	}
	t.scheduled = true
	t.mu.Unlock()

	ok := t.db.worker.submit(t.db.Name, "commit transaction", func() {
		t.doCommit()
	})
	if !ok {
		t.abortAll(NewDOMError(ErrInvalidState, "database worker is stopped"))
	}
	return nil
}

// Await blocks until the transaction has committed or rolled back and
// returns its terminal error, if any.
func (t *IDBTransaction) Await() error {
	<-t.finished
	if t.Err != nil {
		return t.Err
	}
	return nil
}

func (t *IDBTransaction) isActive() bool {
	return t.active && !t.done
}

func (t *IDBTransaction) addRequest(p performer) *Request {
	t.mu.Lock()
	t.requests = append(t.requests, p)
	t.mu.Unlock()
	return p.base()
}

// addObjectStore grows the scope during a version-change upgrade.
func (t *IDBTransaction) addObjectStore(name string) {
	t.scope[name] = newObjectStore(t, name)
}

// deleteObjectStore shrinks the scope during a version-change upgrade.
func (t *IDBTransaction) deleteObjectStore(name string) {
	delete(t.scope, name)
}

// doCommit opens the physical transaction and runs the batch. It executes
// on the worker.
func (t *IDBTransaction) doCommit() {
	conn, status := t.db.worker.connection(t.db.path)
	if status == storage.StatusSuccess {
		var txn *storage.Transaction
		txn, status = conn.BeginTransaction()
		if status == storage.StatusSuccess {
			t.doCommitWith(txn)
			if t.Mode != ReadOnly && !t.aborted {
				conn.Flush()
			}
			return
		}
	}
	t.abortAll(errorFromStatus(status))
}

// doCommitWith runs every queued request against txn and then commits or
// rolls back. The version-change path calls this directly with the open
// request's physical transaction.
func (t *IDBTransaction) doCommitWith(txn *storage.Transaction) {
	t.sqlTxn = txn

	// Handlers run synchronously from the requests and may append more
	// requests at the end (cursor iteration does), so the loop re-reads
	// the length every step.
	for i := 0; ; i++ {
		t.mu.Lock()
		if i >= len(t.requests) {
			t.mu.Unlock()
			break
		}
		p := t.requests[i]
		t.mu.Unlock()

		if t.aborted {
			p.base().onAbort()
		} else {
			p.performOperation(txn)
		}
	}

	t.sqlTxn = nil
	t.active = false
	t.done = true

	var status storage.Status
	if t.aborted {
		status = txn.Rollback()
	} else {
		status = txn.Commit()
	}
	if status != storage.StatusSuccess {
		t.Err = errorFromStatus(status)
		t.aborted = true
		if t.OnError != nil {
			t.OnError(t)
		}
	} else if t.aborted {
		t.Err = NewDOMError(ErrAbort)
	}

	if t.aborted {
		if t.OnAbort != nil {
			t.OnAbort(t)
		}
	} else if t.OnComplete != nil {
		t.OnComplete(t)
	}
	close(t.finished)
}

// abortAll terminates the transaction before any request could run.
func (t *IDBTransaction) abortAll(domErr *DOMError) {
	t.mu.Lock()
	pending := append([]performer(nil), t.requests...)
	t.mu.Unlock()

	t.active = false
	t.done = true
	t.aborted = true
	t.Err = domErr
	for _, p := range pending {
		p.base().completeError(domErr)
	}
	if t.OnError != nil {
		t.OnError(t)
	}
	if t.OnAbort != nil {
		t.OnAbort(t)
	}
	close(t.finished)
}
