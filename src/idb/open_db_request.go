package idb

import (
	"go.uber.org/zap"

	"idbstore/src/storage"
)

// VersionChangeEvent reports a database moving between versions. A nil
// NewVersion means the database was deleted.
type VersionChangeEvent struct {
	OldVersion int64
	NewVersion *int64
}

// UpgradeHandler runs synchronously on the worker while the open request's
// physical transaction is held open. It may create and delete object
// stores through db. Returning an error rolls the whole transaction back
// and fails the open request with AbortError.
type UpgradeHandler func(event VersionChangeEvent, db *Database, txn *IDBTransaction) error

// OpenDBRequest resolves (and possibly creates or upgrades) a logical
// database and completes with its *Database handle.
type OpenDBRequest struct {
	*Request

	// OnUpgradeNeeded must be installed before the request runs if the
	// caller wants to build schema during an upgrade.
	OnUpgradeNeeded UpgradeHandler

	name    string
	version *int64

	worker *Worker
	path   string
	logger *zap.SugaredLogger
}

func newOpenDBRequest(worker *Worker, path, name string, version *int64,
	logger *zap.SugaredLogger) *OpenDBRequest {
	return &OpenDBRequest{
		Request: newRequest(nil, nil),
		name:    name,
		version: version,
		worker:  worker,
		path:    path,
		logger:  logger,
	}
}

// doOperation runs on the worker.
func (r *OpenDBRequest) doOperation() {
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
	// A plain open only reads; rolling back on every non-upgrade exit is
	// correct and keeps the error paths short.
	defer txn.Close()

	version, status := txn.GetDbVersion(r.name)
	isNew := status == storage.StatusNotFound
	if !isNew && status != storage.StatusSuccess {
		r.completeStatus(status)
		return
	}

	newVersion := version
	if r.version != nil {
		newVersion = *r.version
	} else if isNew {
		newVersion = 1
	}
	if newVersion < version {
		r.completeError(NewDOMError(ErrVersion))
		return
	}

	var storeNames []string
	if !isNew {
		storeNames, status = txn.ListObjectStores(r.name)
		if status != storage.StatusSuccess {
			r.completeStatus(status)
			return
		}
	}

	db := newDatabase(r.worker, r.path, r.name, newVersion, storeNames, r.logger)

	if version != newVersion {
		if isNew {
			status = txn.CreateDb(r.name, newVersion)
		} else {
			status = txn.UpdateDbVersion(r.name, newVersion)
		}
		if status != storage.StatusSuccess {
			r.completeStatus(status)
			return
		}

		// The upgrade scope shares this request's physical transaction, so
		// stores created by the handler and data written to them commit
		// atomically with the version row.
		upgrade := newIDBTransaction(db, VersionChange, storeNames)
		upgrade.sqlTxn = txn
		db.versionChangeTxn = upgrade
		r.Transaction = upgrade

		event := VersionChangeEvent{OldVersion: version, NewVersion: &newVersion}
		if r.OnUpgradeNeeded != nil {
			if err := r.OnUpgradeNeeded(event, db, upgrade); err != nil {
				r.logger.Infof("Upgrade of database %q failed: %v", r.name, err)
				upgrade.Abort()
			}
		}

		if db.isClosed() {
			// Closing the handle during the upgrade discards the upgrade.
			upgrade.Abort()
		}
		upgrade.doCommitWith(txn)

		if upgrade.aborted || db.isClosed() {
			if !db.isClosed() {
				db.Close()
			}
			r.completeError(NewDOMError(ErrAbort))
			return
		}
		db.versionChangeTxn = nil
		conn.Flush()
	}

	r.completeSuccess(db)
}
