package twofactor_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rafiki-assist/rafiki/svc/twofactor"
)

// MockStore is a testify mock of twofactor.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, userID string) (*twofactor.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*twofactor.Record), args.Error(1)
}

func (m *MockStore) Enable(ctx context.Context, rec *twofactor.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockStore) Disable(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStore) ReplaceBackupCodes(ctx context.Context, userID string, codes []twofactor.BackupCode) error {
	args := m.Called(ctx, userID, codes)
	return args.Error(0)
}

func (m *MockStore) MarkBackupCodeUsed(ctx context.Context, userID, codeID string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, codeID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) AdvanceStep(ctx context.Context, userID string, step int64) (bool, error) {
	args := m.Called(ctx, userID, step)
	return args.Bool(0), args.Error(1)
}
