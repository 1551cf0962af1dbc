package storage

import (
	"database/sql"

	"go.uber.org/zap"
)

// Transaction is a scoped unit of work on one Connection. Every method
// requires the transaction to still be open; calling one after Commit or
// Rollback is a programming error. A Transaction that is Closed without
// either commits nothing.
type Transaction struct {
	tx     *sql.Tx
	conn   *Connection
	logger *zap.SugaredLogger
}

func (t *Transaction) open() bool {
	if t.tx == nil {
		t.logger.DPanicf("Operation on a closed storage transaction")
		return false
	}
	return true
}

// CreateDb inserts a new logical database row.
func (t *Transaction) CreateDb(dbName string, version int64) Status {
	if !t.open() {
		return StatusUnknownError
	}
	if version <= 0 {
		return StatusBadVersionNumber
	}

	_, err := t.tx.Exec(
		`INSERT INTO databases (name, version) VALUES (?1, ?2)`, dbName, version)
	return mapError(t.logger, err)
}

// UpdateDbVersion moves a database to a strictly greater version.
func (t *Transaction) UpdateDbVersion(dbName string, version int64) Status {
	if !t.open() {
		return StatusUnknownError
	}
	oldVersion, status := t.GetDbVersion(dbName)
	if status != StatusSuccess {
		return status
	}
	if version <= oldVersion {
		return StatusBadVersionNumber
	}

	_, err := t.tx.Exec(
		`UPDATE databases SET version = ?2 WHERE name == ?1`, dbName, version)
	return mapError(t.logger, err)
}

// DeleteDb removes a database. Its stores and their data rows go with it
// through the cascading foreign keys.
func (t *Transaction) DeleteDb(dbName string) Status {
	if !t.open() {
		return StatusUnknownError
	}
	// Check that it exists first so we can report a not found error.
	if _, status := t.GetDbVersion(dbName); status != StatusSuccess {
		return status
	}

	_, err := t.tx.Exec(`DELETE FROM databases WHERE name == ?1`, dbName)
	return mapError(t.logger, err)
}

// GetDbVersion returns the stored version of a database.
func (t *Transaction) GetDbVersion(dbName string) (int64, Status) {
	if !t.open() {
		return 0, StatusUnknownError
	}
	var version int64
	err := t.tx.QueryRow(
		`SELECT version FROM databases WHERE name == ?1`, dbName).Scan(&version)
	return version, mapError(t.logger, err)
}

// CreateObjectStore inserts a new object store row for a database.
func (t *Transaction) CreateObjectStore(dbName, storeName string) Status {
	if !t.open() {
		return StatusUnknownError
	}
	// If the database doesn't exist we get a foreign key error (NotFound);
	// if a store with the same name exists, a unique error (AlreadyExists).
	_, err := t.tx.Exec(
		`INSERT INTO object_stores (db_name, store_name) VALUES (?1, ?2)`,
		dbName, storeName)
	return mapError(t.logger, err)
}

// DeleteObjectStore removes a store and, via the cascade, its data rows.
func (t *Transaction) DeleteObjectStore(dbName, storeName string) Status {
	if !t.open() {
		return StatusUnknownError
	}
	// Check that it exists first so we can report a not found error.
	if _, status := t.getStoreID(dbName, storeName); status != StatusSuccess {
		return status
	}

	_, err := t.tx.Exec(
		`DELETE FROM object_stores WHERE db_name == ?1 AND store_name == ?2`,
		dbName, storeName)
	return mapError(t.logger, err)
}

// ListObjectStores returns the store names of a database.
func (t *Transaction) ListObjectStores(dbName string) ([]string, Status) {
	if !t.open() {
		return nil, StatusUnknownError
	}
	// Check that the database exists first so we can report not found; an
	// empty result set alone cannot distinguish the two cases.
	if _, status := t.GetDbVersion(dbName); status != StatusSuccess {
		return nil, status
	}

	rows, err := t.tx.Query(
		`SELECT store_name FROM object_stores WHERE db_name == ?1`, dbName)
	if err != nil {
		return nil, mapError(t.logger, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(t.logger, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(t.logger, err)
	}
	return names, StatusSuccess
}

// AddData inserts data under an engine-generated key and returns that key.
// The key is the current maximum key in the store plus one, so deleting the
// maximum row makes its key eligible for reuse.
func (t *Transaction) AddData(dbName, storeName string, data []byte) (int64, Status) {
	if !t.open() {
		return 0, StatusUnknownError
	}
	storeID, status := t.getStoreID(dbName, storeName)
	if status != StatusSuccess {
		return 0, status
	}

	var key int64
	err := t.tx.QueryRow(
		`SELECT COALESCE(MAX(key), 0) FROM objects WHERE store == ?1`,
		storeID).Scan(&key)
	if err != nil {
		return 0, mapError(t.logger, err)
	}
	key++

	_, err = t.tx.Exec(
		`INSERT INTO objects (store, key, body) VALUES (?1, ?2, ?3)`,
		storeID, key, data)
	if status := mapError(t.logger, err); status != StatusSuccess {
		return 0, status
	}
	return key, StatusSuccess
}

// GetData reads the data stored under key.
func (t *Transaction) GetData(dbName, storeName string, key int64) ([]byte, Status) {
	if !t.open() {
		return nil, StatusUnknownError
	}
	var data []byte
	err := t.tx.QueryRow(
		`SELECT body FROM objects
		 INNER JOIN object_stores ON object_stores.id == objects.store
		 WHERE db_name == ?1 AND store_name == ?2 AND key == ?3`,
		dbName, storeName, key).Scan(&data)
	if status := mapError(t.logger, err); status != StatusSuccess {
		return nil, status
	}
	return data, StatusSuccess
}

// UpdateData stores data under an explicit key, replacing any existing row.
// Unlike GetData it only fails NotFound when the store itself is missing.
func (t *Transaction) UpdateData(dbName, storeName string, key int64, data []byte) Status {
	if !t.open() {
		return StatusUnknownError
	}
	storeID, status := t.getStoreID(dbName, storeName)
	if status != StatusSuccess {
		return status
	}

	_, err := t.tx.Exec(
		`INSERT OR REPLACE INTO objects (store, key, body) VALUES (?1, ?2, ?3)`,
		storeID, key, data)
	return mapError(t.logger, err)
}

// DeleteData removes the row under key. Deletion is idempotent: a missing
// database, store, or key is not an error.
func (t *Transaction) DeleteData(dbName, storeName string, key int64) Status {
	if !t.open() {
		return StatusUnknownError
	}
	_, err := t.tx.Exec(
		`DELETE FROM objects WHERE key == ?3 AND store == (
		   SELECT id FROM object_stores WHERE db_name == ?1 AND store_name == ?2)`,
		dbName, storeName, key)
	return mapError(t.logger, err)
}

// FindData returns the next key strictly after key in the requested
// direction, or the first/last key when key is nil. NotFound means the
// iteration ran off the end (or the store is missing).
func (t *Transaction) FindData(dbName, storeName string, key *int64, ascending bool) (int64, Status) {
	if !t.open() {
		return 0, StatusUnknownError
	}
	// Sqlite parameters cannot introduce syntax, so the direction is
	// spliced into the statement text.
	order := "DESC"
	cmp := "<"
	if ascending {
		order = "ASC"
		cmp = ">"
	}

	var foundKey int64
	var err error
	if key == nil {
		err = t.tx.QueryRow(
			`SELECT key FROM objects
			 WHERE store == (SELECT id FROM object_stores
			                 WHERE db_name == ?1 AND store_name == ?2)
			 ORDER BY key `+order+`
			 LIMIT 1`,
			dbName, storeName).Scan(&foundKey)
	} else {
		err = t.tx.QueryRow(
			`SELECT key FROM objects
			 WHERE store == (SELECT id FROM object_stores
			                 WHERE db_name == ?1 AND store_name == ?2) AND
			       key `+cmp+` ?3
			 ORDER BY key `+order+`
			 LIMIT 1`,
			dbName, storeName, *key).Scan(&foundKey)
	}
	if status := mapError(t.logger, err); status != StatusSuccess {
		return 0, status
	}
	return foundKey, StatusSuccess
}

// Commit makes the transaction's writes durable and closes it.
func (t *Transaction) Commit() Status {
	if !t.open() {
		return StatusUnknownError
	}
	tx := t.tx
	t.tx = nil
	t.conn.clearActive(t)
	return mapError(t.logger, tx.Commit())
}

// Rollback discards the transaction's writes and closes it.
func (t *Transaction) Rollback() Status {
	if !t.open() {
		return StatusUnknownError
	}
	tx := t.tx
	t.tx = nil
	t.conn.clearActive(t)
	return mapError(t.logger, tx.Rollback())
}

// Close rolls the transaction back unless it was already committed or
// rolled back. It is safe to defer unconditionally.
func (t *Transaction) Close() {
	if t.tx != nil {
		t.Rollback()
	}
}

func (t *Transaction) getStoreID(dbName, storeName string) (int64, Status) {
	var storeID int64
	err := t.tx.QueryRow(
		`SELECT id FROM object_stores WHERE db_name == ?1 AND store_name == ?2`,
		dbName, storeName).Scan(&storeID)
	return storeID, mapError(t.logger, err)
}
