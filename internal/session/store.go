package session

import (
	"context"
	"errors"

	"github.com/vatbridge/vatbridge/internal/models"
)

// ErrNotFound is returned when a session id has no live record, either
// because it never existed or because its TTL elapsed.
var ErrNotFound = errors.New("session not found")

// Store holds session records for at most the configured TTL. Nothing is
// ever persisted past that horizon; logout deletes eagerly.
type Store interface {
	Save(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}
