package storage

import (
	"database/sql"
	"net/url"
	"sync"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// schemaCmd is the on-disk format. The three tables, their cascading
// foreign keys, and the WITHOUT ROWID layout must be reproduced exactly
// for compatibility with existing store files.
const schemaCmd = `
CREATE TABLE IF NOT EXISTS databases (
  name TEXT NOT NULL PRIMARY KEY,
  version INTEGER NOT NULL,
  CHECK (version > 0)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS object_stores (
  id INTEGER PRIMARY KEY NOT NULL,
  db_name TEXT NOT NULL,
  store_name TEXT NOT NULL,
  UNIQUE (db_name, store_name),
  FOREIGN KEY (db_name) REFERENCES databases(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS objects (
  store INTEGER NOT NULL,
  key INTEGER NOT NULL,
  body BLOB NOT NULL,
  PRIMARY KEY (store, key),
  FOREIGN KEY (store) REFERENCES object_stores (id) ON DELETE CASCADE
) WITHOUT ROWID;
`

// Connection owns a single physical sqlite handle to one store file.
// At most one Transaction may be in flight per Connection.
type Connection struct {
	path   string
	logger *zap.SugaredLogger

	mu     sync.Mutex
	db     *sql.DB
	active *Transaction
}

// NewConnection builds an unopened Connection for the store at filePath.
// An empty path selects an ephemeral in-memory store for testing.
func NewConnection(filePath string, logger *zap.SugaredLogger) *Connection {
	return &Connection{path: filePath, logger: logger}
}

// Path returns the physical file path this connection was built for.
func (c *Connection) Path() string { return c.path }

// Init opens (or creates) the physical file and creates the schema if
// absent. Foreign keys are enforced and the journal runs in WAL mode so
// writers do not take an exclusive lock.
func (c *Connection) Init() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return StatusSuccess
	}

	// Timeout, in milliseconds, to wait if there is an exclusive lock on
	// the database. When in WAL mode writes are non-exclusive, so we should
	// never get busy normally.
	query := url.Values{
		"_busy_timeout": {"250"},
		"_foreign_keys": {"on"},
		"_journal_mode": {"WAL"},
	}
	dsn := "file:" + c.path + "?" + query.Encode()
	if c.path == "" {
		dsn = "file::memory:?" + query.Encode()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return mapError(c.logger, err)
	}
	// One physical handle: every statement of every transaction runs on the
	// same underlying sqlite connection, and it is never recycled (an
	// in-memory store would lose its contents with the handle).
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schemaCmd); err != nil {
		status := mapError(c.logger, err)
		if closeErr := db.Close(); closeErr != nil {
			c.logger.Errorf("Error closing sqlite connection: %v", closeErr)
		}
		return status
	}

	c.db = db
	return StatusSuccess
}

// BeginTransaction starts a physical transaction. It fails with Busy while
// another transaction is open on this connection.
func (c *Connection) BeginTransaction() (*Transaction, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		c.logger.DPanicf("BeginTransaction on unopened connection %q", c.path)
		return nil, StatusUnknownError
	}
	if c.active != nil {
		c.logger.Debugf("Sqlite connection %q already has an open transaction", c.path)
		return nil, StatusBusy
	}

	tx, err := c.db.Begin()
	if err != nil {
		return nil, mapError(c.logger, err)
	}
	transaction := &Transaction{tx: tx, conn: c, logger: c.logger}
	c.active = transaction
	return transaction, StatusSuccess
}

// Flush checkpoints the write-ahead log. It is a maintenance operation and
// is never required for correctness; a checkpoint that cannot run to
// completion (for example while a transaction holds the log) is not an
// error.
func (c *Connection) Flush() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return StatusSuccess
	}

	var busy, logFrames, checkpointed int64
	var err error
	if c.active != nil {
		err = c.active.tx.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").
			Scan(&busy, &logFrames, &checkpointed)
	} else {
		err = c.db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").
			Scan(&busy, &logFrames, &checkpointed)
	}
	if err != nil {
		return mapError(c.logger, err)
	}
	return StatusSuccess
}

// Close releases the physical handle. Any open transaction is rolled back
// first.
func (c *Connection) Close() error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if active != nil {
		active.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	db := c.db
	c.db = nil
	return errors.Wrapf(db.Close(), "closing sqlite connection %q", c.path)
}

func (c *Connection) clearActive(t *Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == t {
		c.active = nil
	}
}
