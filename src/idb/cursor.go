package idb

// CursorDirection selects the iteration order of a cursor. The unique
// variants exist for interface parity; without index support they behave
// like their plain counterparts.
type CursorDirection int

const (
	CursorNext CursorDirection = iota
	CursorNextUnique
	CursorPrev
	CursorPrevUnique
)

func (d CursorDirection) ascending() bool {
	return d == CursorNext || d == CursorNextUnique
}

// Cursor is a stateful position within a store's key ordering. It is
// advanced one step at a time by re-running its iterate request.
type Cursor struct {
	Source    *ObjectStore
	Direction CursorDirection

	// Key and Value are the current position; Key is nil once iteration
	// has run off the end.
	Key   *int64
	Value interface{}

	// Request is the iterate request that positions this cursor; Continue
	// re-arms and re-queues it.
	Request *Request

	gotValue bool
	iterate  *iterateCursorRequest
}

// Continue schedules the advance to the next row. The cursor must be
// holding a value; its request completes again once the move ran.
func (c *Cursor) Continue() error {
	transaction := c.Source.transaction
	if !transaction.isActive() {
		return NewDOMError(ErrTransactionInactive)
	}
	if !transaction.db.containsStore(c.Source.Name) {
		return NewDOMError(ErrInvalidState)
	}
	if !c.gotValue {
		return NewDOMError(ErrInvalidState)
	}

	c.gotValue = false
	c.iterate.count = 1
	c.Request.reset()
	transaction.addRequest(c.iterate)
	return nil
}

// Advance schedules a move of count rows in the cursor's direction.
func (c *Cursor) Advance(count int) error {
	if count <= 0 {
		return NewDOMError(ErrData, "Advance count must be positive")
	}
	if err := c.Continue(); err != nil {
		return err
	}
	c.iterate.count = count
	return nil
}

// Delete removes the row the cursor is positioned on.
func (c *Cursor) Delete() (*Request, error) {
	transaction := c.Source.transaction
	if !transaction.isActive() {
		return nil, NewDOMError(ErrTransactionInactive)
	}
	if transaction.Mode == ReadOnly {
		return nil, NewDOMError(ErrReadOnly)
	}
	if !transaction.db.containsStore(c.Source.Name) {
		return nil, NewDOMError(ErrInvalidState)
	}
	if !c.gotValue || c.Key == nil {
		return nil, NewDOMError(ErrInvalidState)
	}

	req := newRequest(c.Source, transaction)
	return transaction.addRequest(&deleteRequest{request: req, key: *c.Key}), nil
}
