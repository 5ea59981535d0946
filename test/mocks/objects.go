package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/Boptone/boptone-ai-sub008/internal/storage"
)

// ObjectStore is a mock for storage.ObjectStore.
type ObjectStore struct {
	mock.Mock
}

// NewObjectStore creates an ObjectStore mock whose expectations are asserted
// during test cleanup.
func NewObjectStore(t *testing.T) *ObjectStore {
	m := &ObjectStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ObjectStore) PutFile(ctx context.Context, key, localPath, contentType string) (storage.PutResult, error) {
	args := m.Called(ctx, key, localPath, contentType)
	return args.Get(0).(storage.PutResult), args.Error(1)
}

func (m *ObjectStore) FetchFile(ctx context.Context, key, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}
