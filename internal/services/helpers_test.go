package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laundry_ledger/internal/events"
	"laundry_ledger/internal/repository"
	"laundry_ledger/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

var errMiss = errors.New("miss")

// memCache stores breakdown values by order id and counts reads that hit.
type memCache struct {
	mu       sync.Mutex
	values   map[uint]Breakdown
	versions map[uint]int
	deleted  map[uint]bool
	hits     int
	stored   []uint
}

func newMemCache() *memCache {
	return &memCache{values: map[uint]Breakdown{}, versions: map[uint]int{}, deleted: map[uint]bool{}}
}

func (c *memCache) GetBreakdown(_ context.Context, orderID uint, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.values[orderID]
	if !ok {
		return errMiss
	}
	c.hits++
	*dest.(*Breakdown) = b
	return nil
}

func (c *memCache) StoreBreakdown(_ context.Context, orderID uint, version int, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleted[orderID] {
		return nil
	}
	if cur, ok := c.versions[orderID]; ok && cur >= version {
		return nil
	}
	c.values[orderID] = value.(Breakdown)
	c.versions[orderID] = version
	c.stored = append(c.stored, orderID)
	return nil
}

func (c *memCache) InvalidateBreakdown(_ context.Context, orderID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, orderID)
	delete(c.versions, orderID)
	c.deleted[orderID] = true
	return nil
}

// forget drops an entry as if it had expired.
func (c *memCache) forget(orderID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, orderID)
	delete(c.versions, orderID)
}

type fixture struct {
	ledger    OrderLedger
	store     repository.Store
	catalog   testutil.Catalog
	publisher *recordingPublisher
	cache     *memCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		store:     repository.NewStore(db),
		catalog:   testutil.Seed(t, db),
		publisher: &recordingPublisher{},
		cache:     newMemCache(),
	}
	f.ledger = NewOrderLedger(f.store, f.cache, f.publisher, nil)
	return f
}

// newOrder creates an order for the seeded client.
func (f *fixture) newOrder(t *testing.T) uint {
	t.Helper()
	view, err := f.ledger.CreateOrder(context.Background(), OrderInput{ClientID: f.catalog.Client.ID})
	require.NoError(t, err)
	return view.Order.ID
}

// eighteenDue builds the reference order: 2 × 10.00 with a 10% discount.
func (f *fixture) eighteenDue(t *testing.T) (orderID, itemID uint) {
	t.Helper()
	ctx := context.Background()
	orderID = f.newOrder(t)

	item, err := f.ledger.AddItem(ctx, orderID, ItemInput{ServiceID: f.catalog.Wash.ID, Quantity: "2", UnitPrice: "10,00"})
	require.NoError(t, err)

	_, err = f.ledger.SetAdjustment(ctx, orderID, SideDiscount, "10%")
	require.NoError(t, err)
	return orderID, item.ID
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

// assertSettledInvariant checks the stored order against its payments.
func (f *fixture) assertSettledInvariant(t *testing.T, orderID uint) {
	t.Helper()
	order, err := f.store.Orders().GetByID(context.Background(), orderID)
	require.NoError(t, err)

	expected := NewBreakdown(order)
	assertDecimal(t, expected.GrandTotal.String(), order.Total)

	settled := order.Total.Sub(order.PaidTotal()).LessThanOrEqual(dec("0.000001"))
	if settled {
		assert.Equal(t, "settled", string(order.PaymentStatus))
	} else {
		assert.Equal(t, "open", string(order.PaymentStatus))
	}
}
