package backend

import (
	"context"

	"marquee/internal/gateway"
)

// Backend bundles every gateway port one adapter must serve
type Backend interface {
	gateway.VenueDirectory
	gateway.ShowLister
	gateway.BreakdownReader
	gateway.PaymentStore
	gateway.RecentReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
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
	case HTTPBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
