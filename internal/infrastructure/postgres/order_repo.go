package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ErlanBelekov/shop-backend/internal/domain"
	"github.com/ErlanBelekov/shop-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `
	id, user_id, status, currency, subtotal, delivery, total,
	contact_name, contact_phone, contact_email, delivery_method, delivery_address,
	comment, placed_at, paid_at, canceled_at, created_at, updated_at`

type OrderRepository struct {
	db DBTX
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO orders (
			user_id, status, currency, subtotal, delivery, total,
			contact_name, contact_phone, contact_email,
			delivery_method, delivery_address, comment, placed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+orderColumns,
		o.UserID, string(o.Status), o.Currency, o.Subtotal, o.Delivery, o.Total,
		o.Contact.Name, o.Contact.Phone, o.Contact.Email,
		o.Shipping.Method, o.Shipping.Address, o.Comment, o.PlacedAt,
	)
	created, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	created.Items = make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		it.OrderID = created.ID
		err := r.db.QueryRow(ctx, `
			INSERT INTO order_items (
				order_id, item_id, variant_id, title, variant_title, sku,
				unit_price, qty, line_total
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			it.OrderID, it.ItemID, it.VariantID, it.Title, it.VariantTitle, it.SKU,
			it.UnitPrice, it.Qty, it.LineTotal,
		).Scan(&it.ID)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		created.Items = append(created.Items, it)
	}
	return created, nil
}

func (r *OrderRepository) AppendEvent(ctx context.Context, e *domain.OrderEvent) error {
	var from *string
	if e.FromStatus != nil {
		s := string(*e.FromStatus)
		from = &s
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO order_events (order_id, from_status, to_status, note, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		e.OrderID, from, string(e.ToStatus), e.Note, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append order event: %w", err)
	}
	return nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, input repository.UpdateStatusInput) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE orders
		SET    status      = $3,
		       paid_at     = $4,
		       canceled_at = $5,
		       updated_at  = $6
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		input.OrderID, string(input.From), string(input.To), input.PaidAt, input.CanceledAt, input.At,
	)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *OrderRepository) FindForUser(ctx context.Context, id, userID string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *OrderRepository) Items(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	out := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, item_id, variant_id, title, variant_title, sku,
		       unit_price, qty, line_total
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, created_at, id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ItemID, &it.VariantID, &it.Title,
			&it.VariantTitle, &it.SKU, &it.UnitPrice, &it.Qty, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *OrderRepository) Events(ctx context.Context, orderIDs []string) (map[string][]domain.OrderEvent, error) {
	out := make(map[string][]domain.OrderEvent, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, note, created_by, created_at
		FROM order_events
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, created_at, id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e    domain.OrderEvent
			from *string
			to   string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &from, &to, &e.Note, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		if from != nil {
			st := domain.OrderStatus(*from)
			e.FromStatus = &st
		}
		e.ToStatus = domain.OrderStatus(to)
		out[e.OrderID] = append(out[e.OrderID], e)
	}
	return out, rows.Err()
}

func (r *OrderRepository) List(ctx context.Context, input repository.ListOrdersInput) ([]*domain.Order, int, error) {
	var args []any
	var where []string

	if input.UserID != "" {
		args = append(args, input.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if input.Status != "" {
		args = append(args, string(input.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if input.Email != "" {
		args = append(args, "%"+input.Email+"%")
		where = append(where, fmt.Sprintf("contact_email ILIKE $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, input.Limit, input.Offset)
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY placed_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, clause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &status, &o.Currency, &o.Subtotal, &o.Delivery, &o.Total,
		&o.Contact.Name, &o.Contact.Phone, &o.Contact.Email, &o.Shipping.Method, &o.Shipping.Address,
		&o.Comment, &o.PlacedAt, &o.PaidAt, &o.CanceledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
