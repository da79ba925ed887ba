package services

import (
	"context"
	"net/url"
	"testing"
	"time"

	"quickbite-api/apperr"
	"quickbite-api/cache"
	"quickbite-api/config"
	"quickbite-api/models"
	"quickbite-api/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedRestaurants(t *testing.T, f *fixture) *RestaurantService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := cache.Connect(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	d := f.deps
	d.Cache = cache.NewListingCache(rdb, time.Minute, d.Log)
	return NewRestaurantService(d)
}

func ptr[T any](v T) *T { return &v }

func TestCreateRestaurant(t *testing.T) {
	f := newFixture(t)
	svc := NewRestaurantService(f.deps)
	ctx := context.Background()
	owner := testutil.SeedUser(t, f.db, models.RoleRestaurantOwner)
	customer := testutil.SeedUser(t, f.db, models.RoleCustomer)

	_, err := svc.Create(ctx, callerOf(customer), RestaurantInput{Name: "Nope"})
	requireKind(t, err, apperr.KindForbidden)

	_, err = svc.Create(ctx, callerOf(owner), RestaurantInput{Name: "Bad", Rating: ptr(5.5)})
	requireKind(t, err, apperr.KindValidation)

	r, err := svc.Create(ctx, callerOf(owner), RestaurantInput{Name: "Night Owl", Cuisine: "Thai", IsOpen: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, r.OwnerID)
	assert.False(t, r.IsOpen)

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsOpen)
	assert.Equal(t, "Thai", stored.Cuisine)
	assert.Contains(t, f.audit.actions(), "restaurant.created")
}

func TestUpdateRestaurantOwnership(t *testing.T) {
	f := newFixture(t)
	svc := NewRestaurantService(f.deps)
	ctx := context.Background()
	owner := testutil.SeedUser(t, f.db, models.RoleRestaurantOwner)
	other := testutil.SeedUser(t, f.db, models.RoleRestaurantOwner)
	admin := testutil.SeedUser(t, f.db, models.RoleAdmin)
	r := testutil.SeedRestaurant(t, f.db, owner.ID)

	_, err := svc.Update(ctx, callerOf(other), r.ID, RestaurantPatch{Name: ptr("Stolen")})
	requireKind(t, err, apperr.KindForbidden)

	updated, err := svc.Update(ctx, callerOf(owner), r.ID, RestaurantPatch{Rating: ptr(4.2), IsOpen: ptr(false)})
	require.NoError(t, err)
	assert.InDelta(t, 4.2, updated.Rating, 1e-9)
	assert.False(t, updated.IsOpen)

	updated, err = svc.Update(ctx, callerOf(admin), r.ID, RestaurantPatch{Name: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, owner.ID, updated.OwnerID)

	_, err = svc.Update(ctx, callerOf(admin), "missing", RestaurantPatch{})
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeleteRestaurantCascadesMenuButKeepsOrders(t *testing.T) {
	f := newFixture(t)
	svc := NewRestaurantService(f.deps)
	ctx := context.Background()
	owner := testutil.SeedUser(t, f.db, models.RoleRestaurantOwner)
	customer := testutil.SeedUser(t, f.db, models.RoleCustomer)
	r := testutil.SeedRestaurant(t, f.db, owner.ID)
	testutil.SeedMenuItem(t, f.db, r.ID, "12.50")
	testutil.SeedMenuItem(t, f.db, r.ID, "3")
	o := testutil.SeedOrder(t, f.db, customer.ID, r.ID, models.StatusDelivered)

	require.NoError(t, svc.Delete(ctx, callerOf(owner), r.ID))

	_, err := svc.Get(ctx, r.ID)
	requireKind(t, err, apperr.KindNotFound)

	var items int64
	require.NoError(t, f.db.Model(&models.MenuItem{}).Where("restaurant_id = ?", r.ID).Count(&items).Error)
	assert.Zero(t, items)

	tracked, err := f.orders.Track(ctx, callerOf(customer), o.ID)
	require.NoError(t, err)
	assert.Len(t, tracked.Items, 1)

	err = svc.Delete(ctx, callerOf(owner), r.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	svc := NewRestaurantService(f.deps)
	owner := testutil.SeedUser(t, f.db, models.RoleRestaurantOwner)
	testutil.SeedRestaurant(t, f.db, owner.ID)
	testutil.SeedRestaurant(t, f.db, owner.ID)
	testutil.SeedRestaurant(t, f.db, testutil.SeedUser(t, f.db, models.RoleRestaurantOwner).ID)

	mine, err := svc.ListMine(context.Background(), callerOf(owner))
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestListRestaurantsIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	svc := newCachedRestaurants(t, f)
	ctx := context.Background()
	owner := testutil.SeedUser(t, f.db, models.RoleRestaurantOwner)
	testutil.SeedRestaurant(t, f.db, owner.ID)

	first, err := svc.List(ctx, url.Values{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Total)

	// Inserted behind the service's back, so the cached page is still served.
	testutil.SeedRestaurant(t, f.db, owner.ID)
	cached, err := svc.List(ctx, url.Values{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, cached.Total)

	_, err = svc.Create(ctx, callerOf(owner), RestaurantInput{Name: "Fresh"})
	require.NoError(t, err)
	fresh, err := svc.List(ctx, url.Values{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, fresh.Total)
}

func TestListRestaurantsRejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	svc := NewRestaurantService(f.deps)

	_, err := svc.List(context.Background(), url.Values{"page": {"two"}})
	requireKind(t, err, apperr.KindValidation)

	res, err := svc.List(context.Background(), url.Values{"limit": {"1000"}})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}
