package repository

import (
	"context"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
)

// CatalogRepository is a read model over item variants. Missing ids are
// simply absent from the returned maps.
type CatalogRepository interface {
	VariantsByIDs(ctx context.Context, ids []string, lock domain.RowLock) (map[string]*domain.Variant, error)
	// VariantDetails batch-loads variants with their items and images.
	VariantDetails(ctx context.Context, ids []string) (map[string]*domain.VariantDetail, error)
}
