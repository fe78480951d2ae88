package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"laundry_ledger/internal/events"
	"laundry_ledger/internal/models"
	"laundry_ledger/internal/pricing"
	"laundry_ledger/internal/repository"
	"laundry_ledger/pkg/apperrors"
)

var errNoCache = errors.New("no cache configured")

// OrderLedger owns orders, their items and payments, and keeps the persisted total and
// payment status consistent with them. Every mutation is one transaction.
type OrderLedger interface {
	CreateOrder(ctx context.Context, input OrderInput) (*OrderView, error)
	GetOrder(ctx context.Context, id uint) (*OrderView, error)
	ListOrders(ctx context.Context, query ListQuery) ([]OrderView, error)
	GetBreakdown(ctx context.Context, id uint) (*Breakdown, error)
	UpdateHeader(ctx context.Context, id uint, input HeaderInput) (*OrderView, error)
	DeleteOrder(ctx context.Context, id uint) error

	AddItem(ctx context.Context, orderID uint, input ItemInput) (*models.OrderItem, error)
	UpdateItem(ctx context.Context, itemID uint, input ItemInput) (*models.OrderItem, error)
	RemoveItem(ctx context.Context, itemID uint) error

	SetAdjustment(ctx context.Context, orderID uint, side Side, raw string) (*Breakdown, error)
	RecalcTotal(ctx context.Context, orderID uint) (*Breakdown, error)
	SyncPaymentStatus(ctx context.Context, orderID uint) (*Breakdown, error)

	AddPayment(ctx context.Context, orderID uint, input PaymentInput) (*models.Payment, error)
	RemovePayment(ctx context.Context, orderID, paymentID uint) error
}

type OrderInput struct {
	ClientID  uint          `json:"client_id"`
	Status    string        `json:"status"`
	Notes     string        `json:"notes"`
	Discount  pricing.Input `json:"discount"`
	Surcharge pricing.Input `json:"surcharge"`
}

// HeaderInput edits an order header. Nil fields are left unchanged.
type HeaderInput struct {
	Status       *string        `json:"status"`
	Notes        *string        `json:"notes"`
	DeliveryDate *string        `json:"delivery_date"`
	Discount     *pricing.Input `json:"discount"`
	Surcharge    *pricing.Input `json:"surcharge"`
}

type ListQuery struct {
	Query     string
	Pay       string // all, open or settled
	DateField string // created or delivery
	Start     string // YYYY-MM-DD
	End       string // YYYY-MM-DD, inclusive
	Limit     int
}

type orderLedger struct {
	store     repository.Store
	cache     BreakdownCache
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderLedger builds the ledger. cache and publisher may be nil.
func NewOrderLedger(store repository.Store, cache BreakdownCache, publisher events.Publisher, logger *zap.Logger) OrderLedger {
	if cache == nil {
		cache = nopCache{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderLedger{store: store, cache: cache, publisher: publisher, logger: logger}
}

func (l *orderLedger) CreateOrder(ctx context.Context, input OrderInput) (*OrderView, error) {
	if input.ClientID == 0 {
		return nil, l.failWith("create_order", apperrors.NewValidationError("select a client"), zap.Uint("client_id", input.ClientID))
	}

	status := models.OrderPending
	if input.Status != "" {
		status = models.OrderStatus(input.Status)
		if !status.Valid() {
			return nil, l.failWith("create_order", apperrors.NewValidationError(fmt.Sprintf("unknown order status %q", input.Status)), zap.Uint("client_id", input.ClientID))
		}
	}

	order := &models.Order{
		ClientID:      input.ClientID,
		Status:        status,
		Notes:         input.Notes,
		PaymentStatus: models.PaymentSettled,
		Version:       1,
	}
	order.SetDiscount(l.parseAdjustment("discount", input.Discount.String()))
	order.SetSurcharge(l.parseAdjustment("surcharge", input.Surcharge.String()))

	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Catalog().GetClient(ctx, input.ClientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFoundError(fmt.Sprintf("client %d not found", input.ClientID))
			}
			return err
		}
		if _, err := settle(order, settleOptions{}); err != nil {
			return err
		}
		return tx.Orders().Create(ctx, order)
	})
	if err != nil {
		return nil, l.failWith("create_order", err, zap.Uint("client_id", input.ClientID))
	}

	l.logger.Info("Order created", zap.Uint("order_id", order.ID), zap.Uint("client_id", order.ClientID))
	l.afterCommit(ctx, events.OrderCreated, order, order.PaymentStatus)
	return l.GetOrder(ctx, order.ID)
}

func (l *orderLedger) GetOrder(ctx context.Context, id uint) (*OrderView, error) {
	order, err := l.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, l.mapError(orderLookup(id, err))
	}
	view := newOrderView(order)
	return &view, nil
}

// GetBreakdown serves the breakdown from cache when possible. A miss is filled with the
// version just read; the cache drops it if a newer commit already stored its own.
func (l *orderLedger) GetBreakdown(ctx context.Context, id uint) (*Breakdown, error) {
	var cached Breakdown
	if err := l.cache.GetBreakdown(ctx, id, &cached); err == nil {
		return &cached, nil
	}

	order, err := l.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, l.mapError(orderLookup(id, err))
	}

	b := NewBreakdown(order)
	l.cacheBreakdown(ctx, b)
	return &b, nil
}

func (l *orderLedger) ListOrders(ctx context.Context, query ListQuery) ([]OrderView, error) {
	filter := repository.OrderFilter{
		Query:     query.Query,
		DateField: "created",
		Limit:     query.Limit,
	}

	switch strings.ToLower(query.Pay) {
	case string(models.PaymentOpen):
		filter.PaymentStatus = models.PaymentOpen
	case string(models.PaymentSettled):
		filter.PaymentStatus = models.PaymentSettled
	}
	if strings.ToLower(query.DateField) == "delivery" {
		filter.DateField = "delivery"
	}
	if start, ok := l.parseFilterDate("start", query.Start); ok {
		filter.Start = &start
	}
	if end, ok := l.parseFilterDate("end", query.End); ok {
		filter.End = &end
	}

	orders, err := l.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, l.mapError(err)
	}

	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i]))
	}
	return views, nil
}

func (l *orderLedger) parseFilterDate(name, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		l.logger.Warn("Ignoring invalid date filter", zap.String("field", name), zap.String("value", raw))
		return time.Time{}, false
	}
	return t, true
}

// UpdateHeader saves the order header. The order must have at least one item, and the new
// total may not fall below what was already paid.
func (l *orderLedger) UpdateHeader(ctx context.Context, id uint, input HeaderInput) (*OrderView, error) {
	const op = "update_header"

	order, err := l.mutate(ctx, id, op, events.OrderUpdated, settleOptions{guard: true},
		func(tx repository.Store, order *models.Order) error {
			if len(order.Items) == 0 {
				return apperrors.NewValidationError("add at least one item to the order before saving")
			}

			if input.Status != nil && *input.Status != "" {
				status := models.OrderStatus(*input.Status)
				if !status.Valid() {
					return apperrors.NewValidationError(fmt.Sprintf("unknown order status %q", *input.Status))
				}
				order.Status = status
			}
			if input.Notes != nil {
				order.Notes = *input.Notes
			}
			l.applyDeliveryDate(order, input.DeliveryDate)

			if input.Discount != nil {
				order.SetDiscount(l.parseAdjustment("discount", input.Discount.String()))
			}
			if input.Surcharge != nil {
				order.SetSurcharge(l.parseAdjustment("surcharge", input.Surcharge.String()))
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	return l.GetOrder(ctx, order.ID)
}

var deliveryDateLayouts = []string{"2006-01-02", "02/01/2006"}

// applyDeliveryDate keeps a delivery date only on delivered orders. An empty or unparsable
// value keeps the stored date.
func (l *orderLedger) applyDeliveryDate(order *models.Order, raw *string) {
	if order.Status != models.OrderDelivered {
		order.DeliveryDate = nil
		return
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return
	}

	value := strings.TrimSpace(*raw)
	for _, layout := range deliveryDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			order.DeliveryDate = &t
			return
		}
	}
	l.logger.Warn("Keeping delivery date, input not understood",
		zap.Uint("order_id", order.ID),
		zap.String("value", value),
	)
}

// DeleteOrder removes the order with its items and payments.
func (l *orderLedger) DeleteOrder(ctx context.Context, id uint) error {
	err := l.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Orders().LockByID(ctx, id); err != nil {
			return orderLookup(id, err)
		}
		return tx.Orders().Delete(ctx, id)
	})
	if err != nil {
		return l.fail("delete_order", id, err)
	}

	l.logger.Info("Order deleted", zap.Uint("order_id", id))
	l.invalidate(ctx, id)
	l.publish(ctx, events.NewOrderEvent(events.OrderDeleted, id, nil))
	return nil
}

func (l *orderLedger) parseAdjustment(side, raw string) pricing.Adjustment {
	adj, err := pricing.ParseAdjustment(raw)
	if err != nil {
		l.logger.Warn("Unparsable adjustment treated as zero", zap.String("side", side), zap.String("value", raw))
		return pricing.Adjustment{}
	}
	return adj
}
