package repository

import (
	"context"

	"jetlag-mailcast/internal/domain/entity"
)

// DestinationRepository loads the destination table from persistent storage
type DestinationRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Destination, error)
	List(ctx context.Context) ([]*entity.Destination, error)
}
