package idb

import (
	"go.uber.org/zap"
)

// Factory is the entry point of the package: it opens and deletes logical
// databases inside one backing file. All factories sharing a worker and a
// path see the same data.
type Factory struct {
	worker *Worker
	dbPath string
	logger *zap.SugaredLogger
}

// NewFactory builds a factory over the backing file at dbPath. An empty
// path selects a purely in-memory store.
func NewFactory(worker *Worker, dbPath string, logger *zap.SugaredLogger) *Factory {
	return &Factory{worker: worker, dbPath: dbPath, logger: logger}
}

// Open resolves the named database, creating it at version 1 (or the
// requested version) if it does not exist and upgrading it if the
// requested version is higher than the stored one. onUpgrade, which may be
// nil, runs during the upgrade with a version-change transaction that can
// create and delete object stores.
func (f *Factory) Open(name string, version *int64, onUpgrade UpgradeHandler) *OpenDBRequest {
	req := newOpenDBRequest(f.worker, f.dbPath, name, version, f.logger)
	req.OnUpgradeNeeded = onUpgrade
	if !f.worker.submit(req.ID, "open database "+name, req.doOperation) {
		req.completeError(NewDOMError(ErrInvalidState, "database worker is stopped"))
	}
	return req
}

// DeleteDatabase removes the named database and all of its stores and
// objects. Deleting a missing database succeeds.
func (f *Factory) DeleteDatabase(name string) *DeleteDBRequest {
	req := newDeleteDBRequest(f.worker, f.dbPath, name, f.logger)
	if !f.worker.submit(req.ID, "delete database "+name, req.doOperation) {
		req.completeError(NewDOMError(ErrInvalidState, "database worker is stopped"))
	}
	return req
}
