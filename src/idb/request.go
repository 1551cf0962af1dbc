package idb

import (
	"github.com/google/uuid"

	"idbstore/src/storage"
)

// RequestState is the lifecycle of a request: pending until its operation
// ran, then done. A failure is terminal; there is no retry state.
type RequestState int

const (
	RequestPending RequestState = iota
	RequestDone
)

// RequestSource identifies what a request operates against: an object
// store, or a cursor iterating one.
type RequestSource interface {
	isRequestSource()
}

func (*ObjectStore) isRequestSource() {}
func (*Cursor) isRequestSource()      {}

// Handler observes a request's completion. It runs on the database worker;
// returning an error aborts the owning transaction, the way a throwing
// event handler does in the DOM model.
type Handler func(*Request) error

// Request is one deferred database operation. It is created on the caller
// side, executed exactly once on the worker, and completed with either a
// result value or a DOMError.
type Request struct {
	// ID appears in worker logs to correlate a request with its outcome.
	ID string

	// Source is the store or cursor this request operates on; nil for the
	// open-database and delete-database requests.
	Source RequestSource

	// Transaction owns this request; nil for open/delete-database requests.
	Transaction *IDBTransaction

	OnSuccess Handler
	OnError   Handler

	state  RequestState
	result interface{}
	domErr *DOMError
	done   chan struct{}
}

func newRequest(source RequestSource, transaction *IDBTransaction) *Request {
	return &Request{
		ID:          uuid.New().String(),
		Source:      source,
		Transaction: transaction,
		done:        make(chan struct{}),
	}
}

// ReadyState returns whether the request is still pending or done.
func (r *Request) ReadyState() RequestState { return r.state }

// Result returns the operation's result. Asking before completion is an
// InvalidStateError.
func (r *Request) Result() (interface{}, error) {
	if r.state != RequestDone {
		return nil, NewDOMError(ErrInvalidState)
	}
	return r.result, nil
}

// Err returns the operation's error, if any. Asking before completion is
// an InvalidStateError.
func (r *Request) Err() (*DOMError, error) {
	if r.state != RequestDone {
		return nil, NewDOMError(ErrInvalidState)
	}
	return r.domErr, nil
}

// Await blocks until the request completes and returns its result or its
// DOMError. It is the synchronous convenience for embedders that do not
// install handlers.
func (r *Request) Await() (interface{}, error) {
	<-r.done
	if r.domErr != nil {
		return nil, r.domErr
	}
	return r.result, nil
}

// reset re-arms a finished request so it can run again. Only the cursor
// iterate request does this, when Continue re-queues it.
func (r *Request) reset() {
	r.state = RequestPending
	r.result = nil
	r.domErr = nil
	r.done = make(chan struct{})
}

func (r *Request) completeSuccess(result interface{}) {
	r.state = RequestDone
	r.result = result
	r.domErr = nil
	close(r.done)

	if r.OnSuccess != nil {
		if err := r.OnSuccess(r); err != nil && r.Transaction != nil {
			r.Transaction.Abort()
		}
	}
}

func (r *Request) completeError(domErr *DOMError) {
	r.state = RequestDone
	r.domErr = domErr
	close(r.done)

	if r.OnError != nil {
		if err := r.OnError(r); err != nil && r.Transaction != nil {
			r.Transaction.Abort()
		}
	}
}

func (r *Request) completeStatus(status storage.Status) {
	r.completeError(errorFromStatus(status))
}

// onAbort completes the request when its transaction rolled back before
// the operation could run.
func (r *Request) onAbort() {
	r.completeError(NewDOMError(ErrAbort))
}

// performer is a request together with its operation against an open
// storage transaction.
type performer interface {
	base() *Request
	performOperation(txn *storage.Transaction)
}
