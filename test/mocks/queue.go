package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/Boptone/boptone-ai-sub008/internal/model"
)

// QueueClient is a mock for queue.Client.
type QueueClient struct {
	mock.Mock
}

// NewQueueClient creates a QueueClient mock whose expectations are asserted
// during test cleanup.
func NewQueueClient(t *testing.T) *QueueClient {
	m := &QueueClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *QueueClient) EnqueueProcessing(ctx context.Context, payload model.ProcessingPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *QueueClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
