package idb

import (
	"go.uber.org/zap"

	"idbstore/src/storage"
)

// DeleteDBRequest removes a logical database and everything in it. It
// completes with a VersionChangeEvent whose NewVersion is nil; deleting a
// database that does not exist still succeeds, with OldVersion zero.
type DeleteDBRequest struct {
	*Request

	name string

	worker *Worker
	path   string
	logger *zap.SugaredLogger
}

func newDeleteDBRequest(worker *Worker, path, name string,
	logger *zap.SugaredLogger) *DeleteDBRequest {
	return &DeleteDBRequest{
		Request: newRequest(nil, nil),
		name:    name,
		worker:  worker,
		path:    path,
		logger:  logger,
	}
}

// doOperation runs on the worker.
func (r *DeleteDBRequest) doOperation() {
	conn, status := r.worker.connection(r.path)
	if status != storage.StatusSuccess {
		r.completeStatus(status)
		return
	}

	txn, status := conn.BeginTransaction()
	if status != storage.StatusSuccess {
		r.completeStatus(status)
		return
	}
	defer txn.Close()

	version, status := txn.GetDbVersion(r.name)
	if status != storage.StatusSuccess && status != storage.StatusNotFound {
		r.completeStatus(status)
		return
	}

	if status == storage.StatusSuccess {
		if status = txn.DeleteDb(r.name); status != storage.StatusSuccess {
			r.completeStatus(status)
			return
		}
		if status = txn.Commit(); status != storage.StatusSuccess {
			r.completeStatus(status)
			return
		}
		conn.Flush()
	}

	r.completeSuccess(VersionChangeEvent{OldVersion: version})
}
