// Package backend builds the ledger repository and optional event publisher
// selected by configuration.
package backend

import (
	"context"

	"budgetapp/internal/amqp"
	"budgetapp/internal/ledger"
	"budgetapp/internal/services"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the repository and the resources opened with it.
type BackendResult struct {
	Repository ledger.Repository
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific
	SeedDirectory string

	// AMQP is optional for either backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Publisher returns the AMQP client as a materialization publisher, or nil
// when no broker is connected.
func (r *BackendResult) Publisher() services.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}
