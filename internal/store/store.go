// Package store provides access to business configuration and call logs.
package store

import (
	"context"
	"errors"

	"ai-call-relay-service/internal/models"
)

var (
	// ErrBusinessNotFound is returned when no business exists for the given id.
	ErrBusinessNotFound = errors.New("business not found")
	// ErrBusinessInactive is returned when the business exists but is not active.
	ErrBusinessInactive = errors.New("business is not active")
)

// ConfigStore looks up the per-call business configuration snapshot.
type ConfigStore interface {
	GetBusinessContext(ctx context.Context, businessID string) (*models.BusinessContext, error)
}

// CallLogStore persists the outcome of a finished call.
type CallLogStore interface {
	PersistCallOutcome(ctx context.Context, callSid string, outcome *models.CallOutcome) error
}

// Store combines both collaborator interfaces.
type Store interface {
	ConfigStore
	CallLogStore
	Close()
}
