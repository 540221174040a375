package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mfigueredo/vendora-backend/pkg/db/models"
	"github.com/mfigueredo/vendora-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  coupon_id TEXT,
  tracking_delivered_at DATETIME,
  return_window_expires_at DATETIME,
  funds_released INTEGER NOT NULL DEFAULT 0,
  cancellation_reason TEXT,
  cancellation_refund_status TEXT,
  cancellation_refund_cents INTEGER,
  cancelled_at DATETIME,
  cancellation_request_original_status TEXT,
  cancellation_request_resolution TEXT,
  cancellation_requested_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	breakdowns := `
CREATE TABLE IF NOT EXISTS order_vendor_breakdowns (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  commission_cents INTEGER NOT NULL,
  created_at DATETIME
);`
	history := `
CREATE TABLE IF NOT EXISTS order_status_histories (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  actor_role TEXT NOT NULL,
  note TEXT,
  created_at DATETIME
);`
	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_cents INTEGER NOT NULL,
  used_count INTEGER NOT NULL DEFAULT 0,
  max_uses INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(breakdowns).Error)
	require.NoError(t, db.Exec(history).Error)
	require.NoError(t, db.Exec(coupons).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, customerID, vendorID uuid.UUID, code string, created time.Time, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		Code:          code,
		CustomerID:    customerID,
		Status:        status,
		PaymentStatus: enums.PaymentStatusCompleted,
		SubtotalCents: 2000,
		TotalCents:    2000,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, db.Create(order).Error)

	item := &models.OrderItem{
		ID:             uuid.New(),
		OrderID:        order.ID,
		ProductID:      uuid.New(),
		ProductName:    "Test Product",
		VendorID:       vendorID,
		Qty:            2,
		UnitPriceCents: 1000,
		TotalCents:     2000,
		CreatedAt:      created,
	}
	require.NoError(t, db.Create(item).Error)

	breakdown := &models.OrderVendorBreakdown{
		ID:              uuid.New(),
		OrderID:         order.ID,
		VendorID:        vendorID,
		SubtotalCents:   2000,
		CommissionCents: 200,
		CreatedAt:       created,
	}
	require.NoError(t, db.Create(breakdown).Error)
	return order
}

func seedHistory(t *testing.T, db *gorm.DB, orderID uuid.UUID, status enums.OrderStatus, created time.Time) {
	t.Helper()

	entry := &models.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   orderID,
		Status:    status,
		ActorID:   uuid.New(),
		ActorRole: enums.ActorRoleAdmin,
		CreatedAt: created,
	}
	require.NoError(t, db.Create(entry).Error)
}

func TestRepositoryFindByRef_byCodeWithHistory(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	now := time.Now().UTC()
	order := seedOrder(t, db, customerID, uuid.New(), "VN-20260101-AAAAAA", now.Add(-2*time.Hour), enums.OrderStatusShipped)
	seedHistory(t, db, order.ID, enums.OrderStatusShipped, now.Add(-time.Hour))
	seedHistory(t, db, order.ID, enums.OrderStatusPending, now.Add(-2*time.Hour))

	found, err := repo.FindByRef(context.Background(), RefFromString("VN-20260101-AAAAAA"))
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, customerID, found.CustomerID)
	require.Len(t, found.Items, 1)
	require.Len(t, found.VendorBreakdown, 1)
	assert.Equal(t, 1800, found.VendorBreakdown[0].EarningsCents())

	require.Len(t, found.StatusHistory, 2)
	assert.Equal(t, enums.OrderStatusPending, found.StatusHistory[0].Status)
	assert.Equal(t, enums.OrderStatusShipped, found.StatusHistory[1].Status)
}

func TestRepositoryFindByRef_notFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByRef(context.Background(), RefFromString("VN-20260101-ZZZZZZ"))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListByCustomer_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	vendorID := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, customerID, vendorID, "VN-20260102-AAAAAA", now.Add(-time.Hour), enums.OrderStatusPending)
	newer := seedOrder(t, db, customerID, vendorID, "VN-20260102-BBBBBB", now, enums.OrderStatusDelivered)

	page, cursor, err := repo.ListByCustomer(context.Background(), customerID, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.NotNil(t, cursor)
	assert.Equal(t, newer.ID, page[0].ID)
	require.Len(t, page[0].Items, 1)

	rest, next, err := repo.ListByCustomer(context.Background(), customerID, 1, cursor, nil)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "VN-20260102-AAAAAA", rest[0].Code)
	assert.Nil(t, next)
}

func TestRepositoryListByCustomer_statusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	vendorID := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, customerID, vendorID, "VN-20260103-AAAAAA", now.Add(-time.Hour), enums.OrderStatusPending)
	delivered := seedOrder(t, db, customerID, vendorID, "VN-20260103-BBBBBB", now, enums.OrderStatusDelivered)

	status := enums.OrderStatusDelivered
	page, cursor, err := repo.ListByCustomer(context.Background(), customerID, 10, nil, &status)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, delivered.ID, page[0].ID)
	assert.Nil(t, cursor)
}

func TestRepositoryListByVendor_scopedByBreakdown(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	customerID := uuid.New()
	vendorA := uuid.New()
	vendorB := uuid.New()
	now := time.Now().UTC()
	mine := seedOrder(t, db, customerID, vendorA, "VN-20260104-AAAAAA", now, enums.OrderStatusProcessing)
	seedOrder(t, db, customerID, vendorB, "VN-20260104-BBBBBB", now, enums.OrderStatusProcessing)

	page, cursor, err := repo.ListByVendor(context.Background(), vendorA, 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, mine.ID, page[0].ID)
	assert.Nil(t, cursor)
}

func TestRepositoryFindDeliveredHistory_earliestEntry(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := seedOrder(t, db, uuid.New(), uuid.New(), "VN-20260105-AAAAAA", time.Now().UTC().Add(-3*time.Hour), enums.OrderStatusDelivered)
	now := time.Now().UTC()
	seedHistory(t, db, order.ID, enums.OrderStatusDelivered, now.Add(-2*time.Hour))
	seedHistory(t, db, order.ID, enums.OrderStatusDelivered, now.Add(-time.Hour))

	entry, err := repo.FindDeliveredHistory(context.Background(), order.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(-2*time.Hour), entry.CreatedAt, time.Second)
}

func TestRepositoryDecrementCouponUsage_stopsAtZero(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	coupon := &models.Coupon{
		ID:            uuid.New(),
		Code:          "WELCOME10",
		DiscountCents: 1000,
		UsedCount:     1,
	}
	require.NoError(t, db.Create(coupon).Error)

	require.NoError(t, repo.DecrementCouponUsage(context.Background(), coupon.ID))
	require.NoError(t, repo.DecrementCouponUsage(context.Background(), coupon.ID))

	var reloaded models.Coupon
	require.NoError(t, db.First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Equal(t, 0, reloaded.UsedCount)
}
