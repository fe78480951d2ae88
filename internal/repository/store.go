package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDatabase   = errors.New("database error")
	ErrStaleOrder = errors.New("order was modified concurrently")
)

// Store groups the ledger repositories over one database handle. Repositories obtained from
// the Store passed to a Transaction callback all share that transaction.
type Store interface {
	Orders() OrderRepository
	Items() OrderItemRepository
	Payments() PaymentRepository
	Catalog() CatalogRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Orders() OrderRepository {
	return NewOrderRepository(s.db)
}

func (s *store) Items() OrderItemRepository {
	return NewOrderItemRepository(s.db)
}

func (s *store) Payments() PaymentRepository {
	return NewPaymentRepository(s.db)
}

func (s *store) Catalog() CatalogRepository {
	return NewCatalogRepository(s.db)
}

// Transaction runs fn inside a database transaction. The transaction is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, tx.Error)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(&store{db: tx}); err != nil {
		return err
	}

	if cerr := tx.Commit().Error; cerr != nil {
		err = fmt.Errorf("%w: commit: %v", ErrDatabase, cerr)
		return err
	}
	return nil
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrDatabase, err)
}
