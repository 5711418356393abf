package mocks

import (
	"context"

	"shapesync/core/remote"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of remote.Client
type Client struct {
	mock.Mock
}

func (m *Client) Snapshot(ctx context.Context, table string, columns []string) ([]map[string]any, error) {
	args := m.Called(ctx, table, columns)
	if rows, ok := args.Get(0).([]map[string]any); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) Subscribe(ctx context.Context, table string, columns []string, since int64) (<-chan remote.ChangeMessage, error) {
	args := m.Called(ctx, table, columns, since)
	if ch, ok := args.Get(0).(<-chan remote.ChangeMessage); ok {
		return ch, args.Error(1)
	}
	if ch, ok := args.Get(0).(chan remote.ChangeMessage); ok {
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) PushMutations(ctx context.Context, batch []remote.Mutation) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}
