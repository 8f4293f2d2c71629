package postgres

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/google/uuid"
)

const variantColumns = `v.id, v.item_id, v.sku, v.title, v.price, v.stock, v.is_active`

type CatalogRepository struct {
	db DBTX
}

func (r *CatalogRepository) VariantsByIDs(ctx context.Context, ids []string, lock domain.RowLock) (map[string]*domain.Variant, error) {
	out := make(map[string]*domain.Variant, len(ids))
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, variantsQuery(lock), ids)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ItemID, &v.SKU, &v.Title, &v.Price, &v.Stock, &v.IsActive); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out[v.ID] = &v
	}
	return out, rows.Err()
}

// variantsQuery locks rows in id order whatever the lock strength, so a
// cart merge holding FOR SHARE and a checkout taking FOR UPDATE on
// overlapping variants queue instead of deadlocking.
func variantsQuery(lock domain.RowLock) string {
	query := `SELECT ` + variantColumns + ` FROM item_variants v WHERE v.id = ANY($1::uuid[])`
	switch lock {
	case domain.LockShare:
		query += ` ORDER BY v.id FOR SHARE`
	case domain.LockUpdate:
		query += ` ORDER BY v.id FOR UPDATE`
	}
	return query
}

func (r *CatalogRepository) VariantDetails(ctx context.Context, ids []string) (map[string]*domain.VariantDetail, error) {
	out := make(map[string]*domain.VariantDetail, len(ids))
	ids = validUUIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+variantColumns+`, i.id, i.slug, i.title
		FROM item_variants v
		JOIN items i ON i.id = v.item_id
		WHERE v.id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("load variant details: %w", err)
	}
	defer rows.Close()

	byItem := make(map[string][]*domain.VariantDetail)
	for rows.Next() {
		var d domain.VariantDetail
		v := &d.Variant
		if err := rows.Scan(&v.ID, &v.ItemID, &v.SKU, &v.Title, &v.Price, &v.Stock, &v.IsActive,
			&d.Item.ID, &d.Item.Slug, &d.Item.Title); err != nil {
			return nil, fmt.Errorf("scan variant detail: %w", err)
		}
		out[v.ID] = &d
		byItem[d.Item.ID] = append(byItem[d.Item.ID], &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load variant details: %w", err)
	}
	if len(byItem) == 0 {
		return out, nil
	}

	itemIDs := make([]string, 0, len(byItem))
	for id := range byItem {
		itemIDs = append(itemIDs, id)
	}

	imgRows, err := r.db.Query(ctx, `
		SELECT item_id, url, is_main, sort_order
		FROM item_images
		WHERE item_id = ANY($1::uuid[])
		ORDER BY item_id, sort_order, id`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load item images: %w", err)
	}
	defer imgRows.Close()

	for imgRows.Next() {
		var img domain.Image
		if err := imgRows.Scan(&img.ItemID, &img.URL, &img.IsMain, &img.SortOrder); err != nil {
			return nil, fmt.Errorf("scan item image: %w", err)
		}
		for _, d := range byItem[img.ItemID] {
			d.Images = append(d.Images, img)
		}
	}
	return out, imgRows.Err()
}

// validUUIDs keeps only canonical lowercase UUIDs, the form rows are keyed
// by. Anything else reads as "not found" instead of failing the uuid cast.
func validUUIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if u, err := uuid.Parse(id); err == nil && u.String() == id {
			out = append(out, id)
		}
	}
	return out
}
