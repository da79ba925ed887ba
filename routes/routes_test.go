package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quickbite-api/handlers"
	"quickbite-api/middleware"
	"quickbite-api/models"
	"quickbite-api/services"
	"quickbite-api/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type api struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *middleware.TokenManager
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	log := zaptest.NewLogger(t)
	tokens := middleware.NewTokenManager("test-secret", time.Hour)
	h := handlers.New(services.Deps{DB: db, BcryptCost: 4}, tokens, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	SetupRoutes(r, h)
	return &api{t: t, db: db, router: r, tokens: tokens}
}

func (a *api) tokenFor(u *models.User) string {
	a.t.Helper()
	token, err := a.tokens.GenerateToken(u)
	require.NoError(a.t, err)
	return token
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestHealthAndStateMachine(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, body = a.do(http.MethodGet, "/api/state-machine", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["state_machine"], 11)
}

func TestRegisterLoginProfile(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "CUSTOMER", body["user"].(map[string]any)["role"])

	code, body = a.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", body["code"])

	code, _ = a.do(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHENTICATED", body["code"])

	code, body = a.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	code, body = a.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, user, "password_hash")

	code, _ = a.do(http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOrderFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	customer := testutil.SeedUser(t, a.db, models.RoleCustomer)
	owner := testutil.SeedUser(t, a.db, models.RoleRestaurantOwner)
	admin := testutil.SeedUser(t, a.db, models.RoleAdmin)
	restaurant := testutil.SeedRestaurant(t, a.db, owner.ID)
	dish := testutil.SeedMenuItem(t, a.db, restaurant.ID, "12.50")

	place := map[string]any{
		"restaurantId": restaurant.ID,
		"items":        []map[string]any{{"menuItemId": dish.ID, "quantity": 2}},
	}

	code, _ := a.do(http.MethodPost, "/api/orders", "", place)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := a.do(http.MethodPost, "/api/orders", a.tokenFor(owner), place)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", body["code"])

	code, body = a.do(http.MethodPost, "/api/orders", a.tokenFor(customer), place)
	require.Equal(t, http.StatusCreated, code, body)
	order := body["order"].(map[string]any)
	orderID := order["id"].(string)
	assert.Equal(t, "PENDING", order["status"])
	assert.Equal(t, "25", order["total_amount"])

	code, body = a.do(http.MethodGet, "/api/orders/"+orderID+"/track", a.tokenFor(customer), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "minutes_elapsed")

	code, body = a.do(http.MethodPatch, "/api/orders/"+orderID+"/status", a.tokenFor(owner), map[string]any{"status": "out_for_delivery"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])

	code, body = a.do(http.MethodPatch, "/api/orders/"+orderID+"/status", a.tokenFor(owner), map[string]any{"status": "PREPARING"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "PREPARING", body["order"].(map[string]any)["status"])

	code, body = a.do(http.MethodPatch, "/api/orders/"+orderID+"/cancel", a.tokenFor(customer), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "only pending orders can be cancelled", body["error"])

	code, body = a.do(http.MethodGet, "/api/orders", a.tokenFor(owner), nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 1, body["order_summary"].(map[string]any)["PREPARING"])

	code, body = a.do(http.MethodPut, "/api/admin/orders/"+orderID+"/status", a.tokenFor(admin), map[string]any{
		"status": "DELIVERED", "reason": "confirmed by phone",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "PREPARING", body["previous_status"])
	assert.Equal(t, "DELIVERED", body["new_status"])

	code, body = a.do(http.MethodGet, "/api/orders?status=delivered", a.tokenFor(admin), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "25.00", body["total_revenue"])

	code, _ = a.do(http.MethodDelete, "/api/orders/"+orderID, a.tokenFor(owner), nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodDelete, "/api/orders/"+orderID, a.tokenFor(admin), nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/orders/"+orderID+"/track", a.tokenFor(admin), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRestaurantAndMenuOverHTTP(t *testing.T) {
	a := newAPI(t)
	owner := testutil.SeedUser(t, a.db, models.RoleRestaurantOwner)
	ownerToken := a.tokenFor(owner)

	code, body := a.do(http.MethodPost, "/api/restaurants", ownerToken, map[string]any{
		"name": "Pizza Palace", "cuisine": "Italian", "rating": 4.5,
	})
	require.Equal(t, http.StatusCreated, code, body)
	restaurantID := body["restaurant"].(map[string]any)["id"].(string)

	code, body = a.do(http.MethodPost, "/api/menu", ownerToken, map[string]any{
		"restaurantId": restaurantID, "name": "Margherita", "price": "9.99", "category": "Pizza",
	})
	require.Equal(t, http.StatusCreated, code, body)
	itemID := body["item"].(map[string]any)["id"].(string)

	code, body = a.do(http.MethodPut, "/api/menu/"+itemID, ownerToken, map[string]any{"isAvailable": false})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["item"].(map[string]any)["is_available"])

	code, body = a.do(http.MethodGet, "/api/restaurants/"+restaurantID+"/menu?available=false", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = a.do(http.MethodGet, "/api/restaurants/"+restaurantID+"/menu?available=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = a.do(http.MethodGet, "/api/restaurants?search=PIZZA&minRating=4", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["pages"])

	code, body = a.do(http.MethodGet, "/api/restaurants?minRating=high", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	code, body = a.do(http.MethodGet, "/api/restaurants/mine", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = a.do(http.MethodDelete, "/api/restaurants/"+restaurantID, ownerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/restaurants/"+restaurantID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdminUsersOverHTTP(t *testing.T) {
	a := newAPI(t)
	admin := testutil.SeedUser(t, a.db, models.RoleAdmin)
	customer := testutil.SeedUser(t, a.db, models.RoleCustomer)

	code, _ := a.do(http.MethodGet, "/api/users", a.tokenFor(customer), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := a.do(http.MethodGet, "/api/users?role=customer", a.tokenFor(admin), nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = a.do(http.MethodPatch, "/api/users/"+customer.ID, a.tokenFor(admin), map[string]any{"role": "RESTAURANT_OWNER"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "RESTAURANT_OWNER", body["user"].(map[string]any)["role"])

	code, _ = a.do(http.MethodDelete, "/api/users/"+admin.ID, a.tokenFor(admin), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodDelete, "/api/users/"+customer.ID, a.tokenFor(admin), nil)
	assert.Equal(t, http.StatusOK, code)
}
