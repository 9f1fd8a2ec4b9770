// Package gatewaytest provides in-memory stores and doubles for gateway consumers.
package gatewaytest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/migration"
	"github.com/smallbiznis/invoicenexus/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the fake clock start used by every helper.
var Epoch = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

// NewDB returns a private in-memory sqlite database with the full schema applied.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.ApplySQLite(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// NewNode returns a snowflake node for tests.
func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// NewGateway returns a GormGateway over a fresh in-memory database.
func NewGateway(t testing.TB) (*gateway.GormGateway, *gorm.DB) {
	t.Helper()

	conn := NewDB(t)
	gw := gateway.NewGormGateway(gateway.Params{
		DB:    conn,
		Node:  NewNode(t),
		Clock: clock.NewFakeClock(Epoch),
		Log:   zap.NewNop(),
	})
	return gw, conn
}

// Call identifies one gateway operation on one table.
type Call struct {
	Op    string
	Table string
}

// Faulty wraps a Gateway, failing chosen calls and recording every call made.
type Faulty struct {
	gateway.Gateway

	mu       sync.Mutex
	failures map[Call]error
	calls    []Call
}

func NewFaulty(inner gateway.Gateway) *Faulty {
	return &Faulty{Gateway: inner, failures: map[Call]error{}}
}

// FailOn makes every later op on table fail with a RemoteError wrapping err.
func (f *Faulty) FailOn(op, table string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[Call{Op: op, Table: table}] = err
}

// Heal removes all injected failures.
func (f *Faulty) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = map[Call]error{}
}

// Calls returns the calls observed so far.
func (f *Faulty) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Faulty) before(op, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := Call{Op: op, Table: table}
	f.calls = append(f.calls, call)
	if err, ok := f.failures[call]; ok {
		return &gateway.RemoteError{Op: op, Table: table, Kind: gateway.Classify(err), Cause: err.Error(), Err: err}
	}
	return nil
}

func (f *Faulty) ListRows(ctx context.Context, table string) ([]gateway.Row, error) {
	if err := f.before("list", table); err != nil {
		return nil, err
	}
	return f.Gateway.ListRows(ctx, table)
}

func (f *Faulty) GetRelatedRows(ctx context.Context, table, foreignKey string, value any) ([]gateway.Row, error) {
	if err := f.before("get_related", table); err != nil {
		return nil, err
	}
	return f.Gateway.GetRelatedRows(ctx, table, foreignKey, value)
}

func (f *Faulty) InsertRow(ctx context.Context, table string, payload gateway.Row) (gateway.Row, error) {
	if err := f.before("insert", table); err != nil {
		return nil, err
	}
	return f.Gateway.InsertRow(ctx, table, payload)
}

func (f *Faulty) InsertRows(ctx context.Context, table string, payloads []gateway.Row) ([]gateway.Row, error) {
	if err := f.before("insert_many", table); err != nil {
		return nil, err
	}
	return f.Gateway.InsertRows(ctx, table, payloads)
}

func (f *Faulty) UpdateRow(ctx context.Context, table, id string, payload gateway.Row) error {
	if err := f.before("update", table); err != nil {
		return err
	}
	return f.Gateway.UpdateRow(ctx, table, id, payload)
}

func (f *Faulty) DeleteRow(ctx context.Context, table, id string) error {
	if err := f.before("delete", table); err != nil {
		return err
	}
	return f.Gateway.DeleteRow(ctx, table, id)
}

func (f *Faulty) DeleteRelatedRows(ctx context.Context, table, foreignKey string, value any) error {
	if err := f.before("delete_related", table); err != nil {
		return err
	}
	return f.Gateway.DeleteRelatedRows(ctx, table, foreignKey, value)
}
