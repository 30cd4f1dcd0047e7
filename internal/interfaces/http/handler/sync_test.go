package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/shared"
	"github.com/sellsync/backend/internal/domain/stocksync"
	"github.com/sellsync/backend/internal/infrastructure/scheduler"
	"github.com/sellsync/backend/internal/interfaces/http/dto"
)

type noopExecutor struct{}

func (noopExecutor) Execute(_ context.Context, _ *scheduler.Job) error {
	return nil
}

type mockSyncLogRepo struct {
	logs []stocksync.SyncLog
}

func (m *mockSyncLogRepo) Save(_ context.Context, log *stocksync.SyncLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockSyncLogRepo) FindByRule(_ context.Context, ruleID uuid.UUID, limit int) ([]stocksync.SyncLog, error) {
	var result []stocksync.SyncLog
	for _, l := range m.logs {
		if l.RuleID == ruleID && len(result) < limit {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *mockSyncLogRepo) FindForUser(_ context.Context, userID uuid.UUID, filter shared.Filter) ([]stocksync.SyncLog, error) {
	var result []stocksync.SyncLog
	for _, l := range m.logs {
		if l.UserID != userID {
			continue
		}
		if status, ok := filter.Filters["status"].(string); ok && string(l.Status) != status {
			continue
		}
		if trigger, ok := filter.Filters["trigger"].(string); ok && !strings.HasPrefix(l.Trigger, trigger) {
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

func (m *mockSyncLogRepo) StatsForUser(_ context.Context, userID uuid.UUID, from, to time.Time) (*stocksync.SyncStats, error) {
	stats := &stocksync.SyncStats{}
	for _, l := range m.logs {
		if l.UserID != userID || l.CompletedAt.Before(from) || l.CompletedAt.After(to) {
			continue
		}
		stats.TotalRuns++
		switch l.Status {
		case stocksync.SyncStatusSuccess:
			stats.SuccessRuns++
		case stocksync.SyncStatusPartial:
			stats.PartialRuns++
		default:
			stats.FailedRuns++
		}
		stats.TargetPushes += int64(len(l.Results))
	}
	return stats, nil
}

type mockManualSyncer struct {
	logs          []*stocksync.SyncLog
	err           error
	gotProductIDs []uuid.UUID
	gotReason     string
}

func (m *mockManualSyncer) TriggerManualSync(_ context.Context, _ uuid.UUID, productIDs []uuid.UUID, reason string) ([]*stocksync.SyncLog, error) {
	m.gotProductIDs = productIDs
	m.gotReason = reason
	if m.err != nil {
		return nil, m.err
	}
	return m.logs, nil
}

type syncRouterFixture struct {
	engine  *gin.Engine
	syncer  *mockManualSyncer
	logRepo *mockSyncLogRepo
	userID  uuid.UUID
}

func setupSyncRouter(t *testing.T) *syncRouterFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sched, err := scheduler.NewScheduler(
		scheduler.Config{
			MaxConcurrentJobs: 1,
			JobTimeout:        time.Minute,
			RetryAttempts:     0,
			RetryDelay:        time.Millisecond,
		},
		noopExecutor{}, zap.NewNop(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = sched.Stop(stopCtx)
		cancel()
	})

	trigger := scheduler.NewReconcileTrigger(
		scheduler.TriggerConfig{Interval: time.Hour, Lookback: 24 * time.Hour},
		sched, nil, zap.NewNop(),
	)

	syncer := &mockManualSyncer{}
	logRepo := &mockSyncLogRepo{}
	handler := NewSyncHandler(trigger, sched, syncer, logRepo)

	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"))
	return &syncRouterFixture{
		engine:  engine,
		syncer:  syncer,
		logRepo: logRepo,
		userID:  uuid.New(),
	}
}

func seedSyncLog(userID uuid.UUID, trigger string, failures int) *stocksync.SyncLog {
	log := stocksync.NewSyncLog(userID, uuid.New(), uuid.New(), nil, trigger, 12, 12, false)
	log.AddResult(stocksync.TargetResult{
		AccountID:         uuid.New(),
		Marketplace:       "SHOPEE",
		ExternalProductID: "EXT-P-1",
		SyncedStock:       12,
		Success:           true,
	})
	for i := 0; i < failures; i++ {
		log.AddResult(stocksync.TargetResult{
			AccountID:    uuid.New(),
			Marketplace:  "LAZADA",
			ErrorMessage: "listing locked",
		})
	}
	log.Finalize()
	return log
}

func TestSyncHandler_RunOrderSync(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/orders", f.userID, gin.H{
		"account_id": uuid.New().String(),
		"date_from":  "2026-08-20",
		"date_to":    "2026-08-21",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestSyncHandler_RunOrderSync_InvalidAccountID(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/orders", f.userID, gin.H{
		"account_id": "not-a-uuid",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_RunOrderSync_RangeTooWide(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/orders", f.userID, gin.H{
		"account_id": uuid.New().String(),
		"date_from":  "2026-08-01",
		"date_to":    "2026-08-20",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_RunOrderSync_InvertedRange(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/orders", f.userID, gin.H{
		"account_id": uuid.New().String(),
		"date_from":  "2026-08-21",
		"date_to":    "2026-08-20",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_TriggerStockSync(t *testing.T) {
	f := setupSyncRouter(t)
	f.syncer.logs = []*stocksync.SyncLog{seedSyncLog(f.userID, "manual: restock audit", 0)}
	first := uuid.New()
	second := uuid.New()

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/stock", f.userID, gin.H{
		"product_ids": []string{first.String(), second.String()},
		"reason":      "restock audit",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	assert.Equal(t, []uuid.UUID{first, second}, f.syncer.gotProductIDs)
	assert.Equal(t, "restock audit", f.syncer.gotReason)

	data, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	entry, ok := data[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", entry["status"])
	assert.Equal(t, "manual: restock audit", entry["trigger"])
}

func TestSyncHandler_TriggerStockSync_MissingIdentity(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/stock", uuid.Nil, gin.H{
		"product_ids": []string{uuid.New().String()},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncHandler_TriggerStockSync_EmptyProductList(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/stock", f.userID, gin.H{
		"product_ids": []string{},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_TriggerStockSync_UnknownProduct(t *testing.T) {
	f := setupSyncRouter(t)
	f.syncer.err = shared.ErrNotFound

	rec := doJSON(f.engine, http.MethodPost, "/api/v1/sync/stock", f.userID, gin.H{
		"product_ids": []string{uuid.New().String()},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncHandler_GetSyncLogs_FiltersByStatus(t *testing.T) {
	f := setupSyncRouter(t)
	ctx := context.Background()
	require.NoError(t, f.logRepo.Save(ctx, seedSyncLog(f.userID, "manual", 0)))
	require.NoError(t, f.logRepo.Save(ctx, seedSyncLog(f.userID, "sweep", 1)))

	rec := doJSON(f.engine, http.MethodGet, "/api/v1/sync/logs?status=PARTIAL", f.userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	entry, ok := data[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sweep", entry["trigger"])
}

func TestSyncHandler_GetSyncLogs_ScopedToCaller(t *testing.T) {
	f := setupSyncRouter(t)
	ctx := context.Background()
	require.NoError(t, f.logRepo.Save(ctx, seedSyncLog(uuid.New(), "manual", 0)))

	rec := doJSON(f.engine, http.MethodGet, "/api/v1/sync/logs", f.userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestSyncHandler_GetSyncStats(t *testing.T) {
	f := setupSyncRouter(t)
	ctx := context.Background()
	require.NoError(t, f.logRepo.Save(ctx, seedSyncLog(f.userID, "manual", 0)))
	require.NoError(t, f.logRepo.Save(ctx, seedSyncLog(f.userID, "sweep", 1)))

	rec := doJSON(f.engine, http.MethodGet, "/api/v1/sync/stats", f.userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), data["total_runs"])
	assert.Equal(t, float64(1), data["success_runs"])
	assert.Equal(t, float64(1), data["partial_runs"])
	assert.Equal(t, float64(3), data["target_pushes"])
}

func TestSyncHandler_GetSyncStats_InvalidRange(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodGet, "/api/v1/sync/stats?from=yesterday", f.userID, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_GetSyncJobs(t *testing.T) {
	f := setupSyncRouter(t)

	rec := doJSON(f.engine, http.MethodGet, "/api/v1/sync/jobs?limit=5", f.userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}
