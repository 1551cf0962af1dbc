package idb

import (
	"idbstore/src/storage"
	"idbstore/src/storedvalue"
)

// readAndLoad fetches and decodes one stored row. A missing row is a
// NotFoundError; bytes that do not parse as a stored value are treated as
// corruption and reported as UnknownError.
func readAndLoad(txn *storage.Transaction, dbName, storeName string, key int64) (interface{}, *DOMError) {
	data, status := txn.GetData(dbName, storeName, key)
	if status == storage.StatusNotFound {
		return nil, NewDOMError(ErrNotFound)
	}
	if status != storage.StatusSuccess {
		return nil, errorFromStatus(status)
	}

	var value storedvalue.Value
	if err := value.UnmarshalBinary(data); err != nil {
		return nil, NewDOMError(ErrUnknown, "Invalid data stored in database")
	}
	return storedvalue.Decode(&value), nil
}

// getRequest reads the value stored under a key.
type getRequest struct {
	request *Request
	key     int64
}

func (r *getRequest) base() *Request { return r.request }

func (r *getRequest) performOperation(txn *storage.Transaction) {
	store := r.request.Source.(*ObjectStore)
	db := store.transaction.db

	value, domErr := readAndLoad(txn, db.Name, store.Name, r.key)
	if domErr != nil {
		r.request.completeError(domErr)
		return
	}
	r.request.completeSuccess(value)
}

// storeRequest writes an encoded value, under an explicit key or one
// generated by the store's key generator.
type storeRequest struct {
	request     *Request
	value       *storedvalue.Value
	key         *int64
	noOverwrite bool
}

func (r *storeRequest) base() *Request { return r.request }

func (r *storeRequest) performOperation(txn *storage.Transaction) {
	store := r.request.Source.(*ObjectStore)
	db := store.transaction.db

	if r.key != nil {
		// Probe for an existing row so an add can reject the collision.
		_, status := txn.GetData(db.Name, store.Name, *r.key)
		if status == storage.StatusSuccess {
			if r.noOverwrite {
				r.request.completeError(NewDOMError(ErrConstraint,
					"An object with the given key already exists"))
				return
			}
		} else if status != storage.StatusNotFound {
			r.request.completeStatus(status)
			return
		}
	}

	data, err := r.value.MarshalBinary()
	if err != nil {
		r.request.completeError(NewDOMError(ErrUnknown))
		return
	}

	var key int64
	var status storage.Status
	if r.key != nil {
		key = *r.key
		status = txn.UpdateData(db.Name, store.Name, key, data)
	} else {
		key, status = txn.AddData(db.Name, store.Name, data)
	}
	if status != storage.StatusSuccess {
		r.request.completeStatus(status)
		return
	}
	r.request.completeSuccess(key)
}

// deleteRequest removes the row under a key; removal is idempotent.
type deleteRequest struct {
	request *Request
	key     int64
}

func (r *deleteRequest) base() *Request { return r.request }

func (r *deleteRequest) performOperation(txn *storage.Transaction) {
	store := r.request.Source.(*ObjectStore)
	db := store.transaction.db

	if status := txn.DeleteData(db.Name, store.Name, r.key); status != storage.StatusSuccess {
		r.request.completeStatus(status)
		return
	}
	r.request.completeSuccess(storedvalue.Undefined{})
}

// iterateCursorRequest advances a cursor count steps and loads the row at
// the final position. Running off the end is a null success, not an error.
type iterateCursorRequest struct {
	request *Request
	cursor  *Cursor
	count   int
}

func (r *iterateCursorRequest) base() *Request { return r.request }

func (r *iterateCursorRequest) performOperation(txn *storage.Transaction) {
	store := r.request.Source.(*ObjectStore)
	db := store.transaction.db

	position := r.cursor.Key
	ascending := r.cursor.Direction.ascending()
	for i := 0; i < r.count; i++ {
		newKey, status := txn.FindData(db.Name, store.Name, position, ascending)
		if status == storage.StatusNotFound {
			r.cursor.Key = nil
			r.cursor.Value = nil
			r.request.completeSuccess(nil)
			return
		}
		if status != storage.StatusSuccess {
			r.request.completeStatus(status)
			return
		}
		position = &newKey
	}

	value, domErr := readAndLoad(txn, db.Name, store.Name, *position)
	if domErr != nil {
		r.request.completeError(domErr)
		return
	}

	r.cursor.Key = position
	r.cursor.Value = value
	r.cursor.gotValue = true
	r.request.completeSuccess(r.cursor)
}
