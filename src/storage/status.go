package storage

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Status is the fixed result set of every backing-store primitive. Raw
// sqlite error codes never escape this package.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotFound
	StatusAlreadyExists
	StatusBusy
	StatusBadVersionNumber
	StatusUnknownError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusNotFound:
		return "NotFound"
	case StatusAlreadyExists:
		return "AlreadyExists"
	case StatusBusy:
		return "Busy"
	case StatusBadVersionNumber:
		return "BadVersionNumber"
	case StatusUnknownError:
		return "UnknownError"
	default:
		return "Status(?)"
	}
}

// mapError translates a go-sqlite3 error into the fixed status set.
// See https://www.sqlite.org/rescode.html
func mapError(logger *zap.SugaredLogger, err error) Status {
	if err == nil {
		return StatusSuccess
	}
	if err == sql.ErrNoRows {
		// A single value was expected and none came back.
		return StatusNotFound
	}

	sqliteErr, ok := err.(sqlite3.Error)
	if !ok {
		logger.DPanicf("Non-sqlite error from backing store: %v", err)
		return StatusUnknownError
	}

	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		logger.Debugf("Sqlite database busy: %v", err)
		return StatusBusy
	case sqlite3.ErrConstraint:
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintForeignKey:
			// A referenced database or store row does not exist.
			return StatusNotFound
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return StatusAlreadyExists
		}
	}

	logger.DPanicf("Unknown error from sqlite (%d/%d): %v",
		sqliteErr.Code, sqliteErr.ExtendedCode, err)
	return StatusUnknownError
}
