package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry_ledger/internal/models"
)

// OrderFilter narrows List. Zero values disable a filter.
type OrderFilter struct {
	Query         string
	PaymentStatus models.PaymentStatus
	DateField     string // created or delivery
	Start         *time.Time
	End           *time.Time // inclusive day
	Limit         int
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	LockByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	SaveLedger(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uint) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return wrapErr(err)
	}
	return nil
}

// GetByID loads an order with its client, items (and their services) and payments.
func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", byID).
		Preload("Items.Service").
		Preload("Payments", byID).
		First(&order, id).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &order, nil
}

// LockByID loads an order with SELECT ... FOR UPDATE, then its items and payments in
// insertion order. It must be called inside a transaction.
func (r *orderRepository) LockByID(ctx context.Context, id uint) (*models.Order, error) {
	db := r.db.WithContext(ctx)

	var order models.Order
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	if err := db.Where("order_id = ?", id).Order("id").Find(&order.Items).Error; err != nil {
		return nil, wrapErr(err)
	}
	if err := db.Where("order_id = ?", id).Order("id").Find(&order.Payments).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &order, nil
}

// List returns orders newest first with client, items and payments loaded.
func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Select("orders.*").
		Joins("JOIN clients ON clients.id = orders.client_id").
		Preload("Client").
		Preload("Items", byID).
		Preload("Payments", byID)

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		if id, err := strconv.ParseUint(q, 10, 64); err == nil {
			query = query.Where("orders.id = ? OR LOWER(clients.name) LIKE ?", id, like)
		} else {
			query = query.Where("LOWER(clients.name) LIKE ?", like)
		}
	}

	if filter.PaymentStatus != "" {
		query = query.Where("orders.payment_status = ?", filter.PaymentStatus)
	}

	column := "orders.created_at"
	if filter.DateField == "delivery" {
		column = "orders.delivery_date"
	}
	if filter.Start != nil {
		query = query.Where(column+" >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where(column+" < ?", filter.End.AddDate(0, 0, 1))
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var orders []models.Order
	if err := query.Order("orders.id DESC").Find(&orders).Error; err != nil {
		return nil, wrapErr(err)
	}
	return orders, nil
}

// SaveLedger writes the header fields of a locked order. The write only applies when the
// stored version still matches order.Version; otherwise ErrStaleOrder is returned.
func (r *orderRepository) SaveLedger(ctx context.Context, order *models.Order) error {
	now := r.db.NowFunc()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":            order.Status,
			"total":             order.Total,
			"discount":          order.Discount,
			"discount_percent":  order.DiscountPercent,
			"surcharge":         order.Surcharge,
			"surcharge_percent": order.SurchargePercent,
			"notes":             order.Notes,
			"delivery_date":     order.DeliveryDate,
			"payment_status":    order.PaymentStatus,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        now,
		})
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleOrder
	}

	order.Version++
	order.UpdatedAt = now
	return nil
}

// Delete removes an order together with its items and payments.
func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("order_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
		return wrapErr(err)
	}
	if err := db.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return wrapErr(err)
	}

	res := db.Delete(&models.Order{}, id)
	if res.Error != nil {
		return wrapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
