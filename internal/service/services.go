package service

import (
	"github.com/Boptone/boptone-ai-sub008/internal/repository/queue"
	"github.com/Boptone/boptone-ai-sub008/internal/repository/store"
	"github.com/Boptone/boptone-ai-sub008/internal/storage"
	"github.com/Boptone/boptone-ai-sub008/internal/telemetry"
)

// Services holds all application dependencies
type Services struct {
	Metrics telemetry.MetricsClient
	Store   *store.Store
	Queue   queue.Client
	Objects storage.ObjectStore
}

// NewServices creates a new Services instance
func NewServices(metrics telemetry.MetricsClient, st *store.Store, queueClient queue.Client, objects storage.ObjectStore) *Services {
	return &Services{
		Metrics: metrics,
		Store:   st,
		Queue:   queueClient,
		Objects: objects,
	}
}
