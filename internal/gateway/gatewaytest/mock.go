package gatewaytest

import (
	"context"

	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock of gateway.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListRows(ctx context.Context, table string) ([]gateway.Row, error) {
	args := m.Called(ctx, table)
	rows, _ := args.Get(0).([]gateway.Row)
	return rows, args.Error(1)
}

func (m *MockGateway) GetRelatedRows(ctx context.Context, table, foreignKey string, value any) ([]gateway.Row, error) {
	args := m.Called(ctx, table, foreignKey, value)
	rows, _ := args.Get(0).([]gateway.Row)
	return rows, args.Error(1)
}

func (m *MockGateway) InsertRow(ctx context.Context, table string, payload gateway.Row) (gateway.Row, error) {
	args := m.Called(ctx, table, payload)
	row, _ := args.Get(0).(gateway.Row)
	return row, args.Error(1)
}

func (m *MockGateway) InsertRows(ctx context.Context, table string, payloads []gateway.Row) ([]gateway.Row, error) {
	args := m.Called(ctx, table, payloads)
	rows, _ := args.Get(0).([]gateway.Row)
	return rows, args.Error(1)
}

func (m *MockGateway) UpdateRow(ctx context.Context, table, id string, payload gateway.Row) error {
	args := m.Called(ctx, table, id, payload)
	return args.Error(0)
}

func (m *MockGateway) DeleteRow(ctx context.Context, table, id string) error {
	args := m.Called(ctx, table, id)
	return args.Error(0)
}

func (m *MockGateway) DeleteRelatedRows(ctx context.Context, table, foreignKey string, value any) error {
	args := m.Called(ctx, table, foreignKey, value)
	return args.Error(0)
}

var _ gateway.Gateway = (*MockGateway)(nil)
