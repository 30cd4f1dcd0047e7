package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellsync/backend/internal/domain/order"
	"github.com/sellsync/backend/internal/domain/shared"
	"github.com/sellsync/backend/internal/interfaces/http/dto"
)

type mockOrderRepository struct {
	orders map[uuid.UUID]*order.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*order.Order)}
}

func (m *mockOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepository) FindByExternalID(_ context.Context, accountID uuid.UUID, externalOrderID string) (*order.Order, error) {
	for _, o := range m.orders {
		if o.AccountID == accountID && o.ExternalOrderID == externalOrderID {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockOrderRepository) FindAllForUser(_ context.Context, userID uuid.UUID, _ shared.Filter) ([]order.Order, error) {
	var result []order.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockOrderRepository) CountForUser(_ context.Context, userID uuid.UUID, _ shared.Filter) (int64, error) {
	var count int64
	for _, o := range m.orders {
		if o.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *mockOrderRepository) Save(_ context.Context, o *order.Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepository) AppendHistory(_ context.Context, _ *order.StatusHistoryEntry) error {
	return nil
}

type mockStatusUpdater struct {
	repo *mockOrderRepository
}

func (m *mockStatusUpdater) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status order.Status, reason string) (*order.Order, error) {
	o, err := m.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, shared.ErrNotFound
	}
	if err := o.ApplyManualStatus(status, reason); err != nil {
		return nil, err
	}
	return o, nil
}

func setupOrderRouter(t *testing.T) (*gin.Engine, *mockOrderRepository, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMockOrderRepository()
	handler := NewOrderHandler(repo, &mockStatusUpdater{repo: repo})

	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"))
	return engine, repo, uuid.New()
}

func seedOrder(t *testing.T, repo *mockOrderRepository, userID uuid.UUID, status order.Status) *order.Order {
	t.Helper()
	o, err := order.NewOrder(userID, uuid.New(), "shopee", "EXT-1001", status)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), o))
	return o
}

func doJSON(engine *gin.Engine, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestOrderHandler_GetOrder(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	o := seedOrder(t, repo, userID, order.StatusPending)

	rec := doJSON(engine, http.MethodGet, "/api/v1/orders/"+o.ID.String(), userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestOrderHandler_GetOrder_MissingIdentity(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	o := seedOrder(t, repo, userID, order.StatusPending)

	rec := doJSON(engine, http.MethodGet, "/api/v1/orders/"+o.ID.String(), uuid.Nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderHandler_GetOrder_OtherUsersOrder(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	o := seedOrder(t, repo, userID, order.StatusPending)

	rec := doJSON(engine, http.MethodGet, "/api/v1/orders/"+o.ID.String(), uuid.New(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	o := seedOrder(t, repo, userID, order.StatusPending)

	rec := doJSON(engine, http.MethodPatch, "/api/v1/orders/"+o.ID.String()+"/status", userID,
		gin.H{"status": "CONFIRMED", "reason": "verified payment"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "CONFIRMED", data["status"])
}

func TestOrderHandler_UpdateOrderStatus_InvalidTransition(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	o := seedOrder(t, repo, userID, order.StatusDelivered)

	rec := doJSON(engine, http.MethodPatch, "/api/v1/orders/"+o.ID.String()+"/status", userID,
		gin.H{"status": "PENDING"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInvalidTransition, resp.Error.Code)
}

func TestOrderHandler_UpdateOrderStatus_UnknownStatus(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	o := seedOrder(t, repo, userID, order.StatusPending)

	rec := doJSON(engine, http.MethodPatch, "/api/v1/orders/"+o.ID.String()+"/status", userID,
		gin.H{"status": "TELEPORTED"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandler_ListOrders(t *testing.T) {
	engine, repo, userID := setupOrderRouter(t)
	seedOrder(t, repo, userID, order.StatusPending)

	rec := doJSON(engine, http.MethodGet, "/api/v1/orders?page=1&page_size=10", userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}
