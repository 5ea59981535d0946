// Package mocks provides testify mocks for the service container interfaces.
package mocks

import (
	"testing"

	"github.com/stretchr/testify/mock"
)

// MetricsClient is a mock for telemetry.MetricsClient.
type MetricsClient struct {
	mock.Mock
}

// NewMetricsClient creates a MetricsClient mock whose expectations are
// asserted during test cleanup.
func NewMetricsClient(t *testing.T) *MetricsClient {
	m := &MetricsClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MetricsClient) IncrementServerRequestCounter(status string) {
	m.Called(status)
}

func (m *MetricsClient) IncrementQueuePushCounter(outcome string) {
	m.Called(outcome)
}

func (m *MetricsClient) IncrementRenditionCounter(status string) {
	m.Called(status)
}

func (m *MetricsClient) IncrementJobCounter(outcome string) {
	m.Called(outcome)
}
