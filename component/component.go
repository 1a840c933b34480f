// Package component defines the lifecycle contract pipeline components
// implement and the inspection types the management layer reads.
package component

import (
	"context"
	"time"
)

// State represents the current lifecycle state of a component.
type State int

const (
	// StateCreated indicates the component was created but not initialized.
	StateCreated State = iota
	// StateInitialized indicates initialization completed.
	StateInitialized
	// StateStarted indicates the component is running.
	StateStarted
	// StateStopped indicates the component was stopped.
	StateStopped
	// StateFailed indicates a lifecycle operation failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Metadata describes what a component is.
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HealthStatus describes the current health of a component.
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	State      string        `json:"state"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// Inspectable exposes a component to the management layer.
type Inspectable interface {
	// Meta returns basic component information.
	Meta() Metadata

	// Health returns the current health status.
	Health() HealthStatus
}

// LifecycleComponent is the unified lifecycle pattern:
//   - Initialize() error                  setup only, no context
//   - Start(ctx context.Context) error    begin work, ctx bounds it
//   - Stop(timeout time.Duration) error   graceful shutdown within timeout
type LifecycleComponent interface {
	Inspectable
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// AsLifecycleComponent safely casts to LifecycleComponent.
func AsLifecycleComponent(c Inspectable) (LifecycleComponent, bool) {
	lc, ok := c.(LifecycleComponent)
	return lc, ok
}
