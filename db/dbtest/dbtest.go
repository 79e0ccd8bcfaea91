// Package dbtest provides an in-memory SQLite database for package tests
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/healthparse/landing/db"

	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New opens a private in-memory database named after the running test
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: db.NewLogger(zaptest.NewLogger(t)),
	})
	if err != nil {
		t.Fatalf("Cannot open sqlite: %v", err)
	}
	pool, err := gdb.DB()
	if err != nil {
		t.Fatalf("Cannot get the connection pool: %v", err)
	}
	// every connection to ":memory:" would otherwise see its own database
	pool.SetMaxOpenConns(1)
	t.Cleanup(func() {
		pool.Close()
	})
	return gdb
}
