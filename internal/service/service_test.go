package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pickuporder/backend/internal/models"
	"github.com/pickuporder/backend/internal/repo"
	"github.com/pickuporder/backend/internal/session"
)

const (
	testDeliveryFee  = 2.00
	testCartTTL      = 24 * time.Hour
	testSessionTTL   = 15 * time.Minute
	testCancelWindow = 5 * time.Minute
)

type testEnv struct {
	Repo     *repo.GormRepo
	Carts    *CartService
	Checkout *CheckoutService
	Orders   *OrderService
	Sessions session.Store

	Store     models.Store
	UserID    uuid.UUID
	AddressID uuid.UUID

	clock time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	r := repo.New(db)
	require.NoError(t, r.AutoMigrate())

	sessions := session.NewMemoryStore()

	env := &testEnv{
		Repo:     r,
		Sessions: sessions,
		UserID:   uuid.New(),
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	env.Carts = NewCartService(r, testDeliveryFee, testCartTTL)
	env.Carts.now = env.now
	env.Checkout = NewCheckoutService(r, env.Carts, sessions, testSessionTTL)
	env.Checkout.now = env.now
	env.Orders = NewOrderService(r, env.Checkout, sessions, nil, testCancelWindow)
	env.Orders.now = env.now

	env.Store = models.Store{Name: "Corner Deli", IsActive: true}
	require.NoError(t, db.Create(&env.Store).Error)

	addr := models.Address{UserID: env.UserID, Label: "home", Street: "1 Main St", City: "Springfield"}
	require.NoError(t, db.Create(&addr).Error)
	env.AddressID = addr.ID

	return env
}

func (e *testEnv) now() time.Time { return e.clock }

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func (e *testEnv) seedProduct(t *testing.T, storeID uuid.UUID, name string, price float64) models.Product {
	t.Helper()
	p := models.Product{StoreID: storeID, Name: name, Price: price, IsAvailable: true}
	require.NoError(t, e.Repo.DB.Create(&p).Error)
	return p
}

func (e *testEnv) seedPromo(t *testing.T, promo models.PromoCode) models.PromoCode {
	t.Helper()
	if promo.StartsAt.IsZero() {
		promo.StartsAt = e.clock.Add(-time.Hour)
	}
	if promo.EndsAt.IsZero() {
		promo.EndsAt = e.clock.Add(24 * time.Hour)
	}
	promo.IsActive = true
	require.NoError(t, e.Repo.DB.Create(&promo).Error)
	return promo
}
