package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"laundry_ledger/internal/events"
	"laundry_ledger/internal/models"
	"laundry_ledger/internal/pricing"
	"laundry_ledger/internal/repository"
	"laundry_ledger/pkg/apperrors"
)

type ItemInput struct {
	ServiceID   uint          `json:"service_id"`
	Description string        `json:"description"`
	Quantity    pricing.Input `json:"quantity"`
	UnitPrice   pricing.Input `json:"unit_price"`
}

// AddItem appends a line to the order. The unit price falls back to the catalog price when
// it is missing, unparsable or not positive.
func (l *orderLedger) AddItem(ctx context.Context, orderID uint, input ItemInput) (*models.OrderItem, error) {
	if input.ServiceID == 0 {
		return nil, l.fail("add_item", orderID, apperrors.NewValidationError("select a valid service"))
	}

	var item *models.OrderItem
	_, err := l.mutate(ctx, orderID, "add_item", events.OrderItemAdded, settleOptions{guard: true},
		func(tx repository.Store, order *models.Order) error {
			service, err := tx.Catalog().GetService(ctx, input.ServiceID)
			if err != nil {
				return serviceLookup(input.ServiceID, err)
			}

			unitPrice := service.Price
			if input.UnitPrice != "" {
				if parsed, err := pricing.ParseMoney(input.UnitPrice.String()); err == nil && parsed.IsPositive() {
					unitPrice = parsed
				} else {
					l.logger.Warn("Using catalog price for item",
						zap.Uint("order_id", orderID),
						zap.String("unit_price", input.UnitPrice.String()),
					)
				}
			}

			item = &models.OrderItem{
				OrderID:     order.ID,
				ServiceID:   service.ID,
				Description: input.Description,
				Quantity:    l.coerceQuantity(input.Quantity),
				UnitPrice:   unitPrice,
			}
			item.Recompute()

			if err := tx.Items().Create(ctx, item); err != nil {
				return err
			}
			order.Items = append(order.Items, *item)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem rewrites an item. The unit price must be a positive number; the whole update is
// rejected when the new total would fall below what was already paid.
func (l *orderLedger) UpdateItem(ctx context.Context, itemID uint, input ItemInput) (*models.OrderItem, error) {
	unitPrice, err := pricing.ParseMoney(input.UnitPrice.String())
	if err != nil || !unitPrice.IsPositive() {
		return nil, l.failItem("update_item", itemID, apperrors.NewValidationError("unit price must be a positive number").
			WithContext("item_id", itemID).
			WithContext("unit_price", input.UnitPrice.String()))
	}

	orderID, err := l.itemOrder(ctx, itemID)
	if err != nil {
		return nil, l.failItem("update_item", itemID, err)
	}

	var item *models.OrderItem
	_, err = l.mutate(ctx, orderID, "update_item", events.OrderItemUpdated, settleOptions{guard: true},
		func(tx repository.Store, order *models.Order) error {
			idx := order.FindItem(itemID)
			if idx < 0 {
				return itemNotFound(itemID)
			}
			item = &order.Items[idx]

			if input.ServiceID != 0 && input.ServiceID != item.ServiceID {
				if service, err := tx.Catalog().GetService(ctx, input.ServiceID); err == nil {
					item.ServiceID = service.ID
				} else if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}
			item.Description = input.Description
			item.Quantity = l.coerceQuantity(input.Quantity)
			item.UnitPrice = unitPrice
			item.Recompute()

			return tx.Items().Update(ctx, item)
		})
	if err != nil {
		return nil, err
	}

	updated := *item
	return &updated, nil
}

// RemoveItem deletes an item. Like UpdateItem it may not leave payments above the total.
func (l *orderLedger) RemoveItem(ctx context.Context, itemID uint) error {
	orderID, err := l.itemOrder(ctx, itemID)
	if err != nil {
		return l.failItem("remove_item", itemID, err)
	}

	_, err = l.mutate(ctx, orderID, "remove_item", events.OrderItemRemoved, settleOptions{guard: true},
		func(tx repository.Store, order *models.Order) error {
			idx := order.FindItem(itemID)
			if idx < 0 {
				return itemNotFound(itemID)
			}
			if err := tx.Items().Delete(ctx, itemID); err != nil {
				return err
			}
			order.Items = append(order.Items[:idx], order.Items[idx+1:]...)
			return nil
		})
	return err
}

func (l *orderLedger) itemOrder(ctx context.Context, itemID uint) (uint, error) {
	item, err := l.store.Items().GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, itemNotFound(itemID)
		}
		return 0, err
	}
	return item.OrderID, nil
}

// coerceQuantity returns the parsed quantity, or 1 when it is missing, invalid or below 1.
func (l *orderLedger) coerceQuantity(raw pricing.Input) int {
	if raw == "" {
		return 1
	}
	q, err := pricing.ParseQuantity(raw.String())
	if err != nil {
		l.logger.Warn("Invalid quantity replaced by 1", zap.String("quantity", raw.String()))
		return 1
	}
	if q < 1 {
		return 1
	}
	return q
}

func itemNotFound(itemID uint) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("item %d not found", itemID))
}

func serviceLookup(serviceID uint, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError(fmt.Sprintf("service %d not found", serviceID))
	}
	return err
}
