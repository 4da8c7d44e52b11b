package config

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int64

// ConnectTestDatabase opens a fresh in-memory SQLite database and returns
// it directly instead of touching the global handle. Each call gets its
// own database; cache=shared keeps every pooled connection on the same
// in-memory instance.
func ConnectTestDatabase() (*gorm.DB, error) {
	name := fmt.Sprintf("file:ledgertest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(name), initConfig())
	if err != nil {
		return nil, err
	}
	if sqlDB, derr := gdb.DB(); derr == nil && sqlDB != nil {
		// A single in-memory database must not be closed out from under
		// the pool; one idle connection keeps it alive for the test.
		sqlDB.SetMaxIdleConns(1)
	}
	return gdb, nil
}
