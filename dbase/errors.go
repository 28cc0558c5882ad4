package dbase

import (
	"errors"
	"fmt"
)

// Sentinel errors. ErrNoMemo is returned (wrapped) by a memo write when
// no DBT is attached; no function in this package returns ErrEOF or
// ErrIncomplete.
var (
	ErrEOF        = errors.New("dbase: end of file")
	ErrIncomplete = errors.New("dbase: short read or write")
	ErrNoMemo     = errors.New("dbase: no memo file open")
)

// newError wraps err with a short trace code, following the teacher's
// convention of a grep-able "component-operation-sequence" tag so a
// caller can locate the exact call site a failure came from.
func newError(code string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("dbase-%s:FAILED:%w", code, err)
}

// Symbol identifies one of the non-fatal conditions delivered through
// Config.ErrorHandler (spec §4.6/§7). Operation continues with a defined
// fallback after the handler is invoked.
type Symbol string

const (
	// SymbolDBTDoesntExist: header expects a memo file but no DBT was found.
	SymbolDBTDoesntExist Symbol = "DBT_DOESNT_EXIST"
	// SymbolDBTReadOnly: the memo file could not be created or opened for writing.
	SymbolDBTReadOnly Symbol = "DBT_READ_ONLY"
	// SymbolRecordsExist: AddColumn was called on a table that already has records.
	SymbolRecordsExist Symbol = "RECORDS_EXIST"
	// SymbolColumnExists: AddColumn was called with a duplicate column name.
	SymbolColumnExists Symbol = "COLUMN_EXISTS"
	// SymbolColumnNameTooLong: the column name exceeds MaxColumnNameLength.
	SymbolColumnNameTooLong Symbol = "COLUMN_NAME_TOO_LONG"
	// SymbolNoRecordsWhileUpdating: Update was called on a table with no records.
	SymbolNoRecordsWhileUpdating Symbol = "NO_RECORDS_WHILE_UPDATING"
)

// ErrorHandler receives a non-fatal Symbol and the arguments relevant to
// it. It never returns a value: the caller observes and the engine
// continues with its defined fallback, per spec §4.6.
type ErrorHandler func(symbol Symbol, args ...interface{})

// report invokes the configured handler, if any, and is a no-op otherwise.
func (c *Config) report(symbol Symbol, args ...interface{}) {
	if c == nil || c.ErrorHandler == nil {
		return
	}
	c.ErrorHandler(symbol, args...)
}
