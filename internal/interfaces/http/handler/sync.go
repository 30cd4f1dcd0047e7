package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellsync/backend/internal/domain/shared"
	"github.com/sellsync/backend/internal/domain/stocksync"
	"github.com/sellsync/backend/internal/infrastructure/logger"
	"github.com/sellsync/backend/internal/infrastructure/scheduler"
	"github.com/sellsync/backend/internal/interfaces/http/dto"
)

// ManualStockSyncer fires a manual stock sync for a set of products
type ManualStockSyncer interface {
	TriggerManualSync(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID, reason string) ([]*stocksync.SyncLog, error)
}

// SyncHandler exposes the sync management endpoints: manual order
// reconciliation, manual stock sync, job history, logs and stats
type SyncHandler struct {
	BaseHandler
	trigger     *scheduler.ReconcileTrigger
	jobs        *scheduler.Scheduler
	stockEngine ManualStockSyncer
	logRepo     stocksync.SyncLogRepository
}

// NewSyncHandler creates the sync management handler
func NewSyncHandler(trigger *scheduler.ReconcileTrigger, jobs *scheduler.Scheduler, stockEngine ManualStockSyncer, logRepo stocksync.SyncLogRepository) *SyncHandler {
	return &SyncHandler{
		trigger:     trigger,
		jobs:        jobs,
		stockEngine: stockEngine,
		logRepo:     logRepo,
	}
}

// RegisterRoutes registers the sync endpoints
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/orders", h.RunOrderSync)
		sync.POST("/stock", h.TriggerStockSync)
		sync.GET("/jobs", h.GetSyncJobs)
		sync.GET("/logs", h.GetSyncLogs)
		sync.GET("/stats", h.GetSyncStats)
	}
}

// RunOrderSyncRequest requests a manual reconciliation run
type RunOrderSyncRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	DateFrom  string `json:"date_from" binding:"omitempty"`
	DateTo    string `json:"date_to" binding:"omitempty"`
}

// RunOrderSync schedules a reconciliation run for one account.
// The run executes asynchronously on the scheduler's worker pool.
func (h *SyncHandler) RunOrderSync(c *gin.Context) {
	var req RunOrderSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.BadRequest(c, "invalid account_id")
		return
	}

	now := time.Now()
	dateFrom := now.Add(-24 * time.Hour)
	dateTo := now
	if req.DateFrom != "" {
		if dateFrom, err = parseDateTime(req.DateFrom); err != nil {
			h.BadRequest(c, "invalid date_from")
			return
		}
	}
	if req.DateTo != "" {
		if dateTo, err = parseDateTime(req.DateTo); err != nil {
			h.BadRequest(c, "invalid date_to")
			return
		}
	}

	if err := h.trigger.TriggerManualReconcile(accountID, dateFrom, dateTo); err != nil {
		if err == scheduler.ErrInvalidTimeRange {
			h.BadRequest(c, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("reconciliation run scheduled",
		zap.String("account_id", accountID.String()),
		zap.Time("date_from", dateFrom),
		zap.Time("date_to", dateTo))

	h.Accepted(c, gin.H{
		"account_id": accountID,
		"date_from":  dateFrom,
		"date_to":    dateTo,
	})
}

// TriggerStockSyncRequest requests a manual stock sync for a set of products.
// The reason is recorded on the produced sync logs.
type TriggerStockSyncRequest struct {
	ProductIDs []string `json:"product_ids" binding:"required,min=1,dive,uuid"`
	Reason     string   `json:"reason" binding:"omitempty,max=200"`
}

// SyncLogResponse is one sync log in API responses
type SyncLogResponse struct {
	ID           uuid.UUID               `json:"id"`
	RuleID       uuid.UUID               `json:"rule_id"`
	ProductID    uuid.UUID               `json:"product_id"`
	VariantID    *uuid.UUID              `json:"variant_id,omitempty"`
	Trigger      string                  `json:"trigger"`
	SourceStock  int                     `json:"source_stock"`
	TargetStock  int                     `json:"target_stock"`
	UsedFallback bool                    `json:"used_fallback"`
	Results      []stocksync.TargetResult `json:"results"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	SkippedCount int                     `json:"skipped_count"`
	Status       stocksync.SyncStatus    `json:"status"`
	CompletedAt  time.Time               `json:"completed_at"`
}

func toSyncLogResponse(log *stocksync.SyncLog) SyncLogResponse {
	return SyncLogResponse{
		ID:           log.ID,
		RuleID:       log.RuleID,
		ProductID:    log.ProductID,
		VariantID:    log.VariantID,
		Trigger:      log.Trigger,
		SourceStock:  log.SourceStock,
		TargetStock:  log.TargetStock,
		UsedFallback: log.UsedFallback,
		Results:      log.Results,
		SuccessCount: log.SuccessCount,
		FailureCount: log.FailureCount,
		SkippedCount: log.SkippedCount,
		Status:       log.Status,
		CompletedAt:  log.CompletedAt,
	}
}

// TriggerStockSync runs a manual stock sync for the requested products and
// returns the per-rule sync logs
func (h *SyncHandler) TriggerStockSync(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var req TriggerStockSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	productIDs := make([]uuid.UUID, len(req.ProductIDs))
	for i, raw := range req.ProductIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "invalid product id "+raw)
			return
		}
		productIDs[i] = id
	}

	logs, err := h.stockEngine.TriggerManualSync(c.Request.Context(), userID, productIDs, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]SyncLogResponse, len(logs))
	for i, log := range logs {
		responses[i] = toSyncLogResponse(log)
	}
	h.Success(c, responses)
}

// SyncJobResponse is one scheduler job in API responses
type SyncJobResponse struct {
	ID          uuid.UUID           `json:"id"`
	AccountID   uuid.UUID           `json:"account_id"`
	DateFrom    time.Time           `json:"date_from"`
	DateTo      time.Time           `json:"date_to"`
	Status      scheduler.JobStatus `json:"status"`
	Error       string              `json:"error,omitempty"`
	Synced      int                 `json:"synced"`
	Failed      int                 `json:"failed"`
	Pages       int                 `json:"pages"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// GetSyncJobs returns recent reconciliation jobs, most recent first
func (h *SyncHandler) GetSyncJobs(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			limit = parsed
		}
	}

	jobs := h.jobs.GetJobHistory(limit)
	responses := make([]SyncJobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = SyncJobResponse{
			ID:          job.ID,
			AccountID:   job.AccountID,
			DateFrom:    job.DateFrom,
			DateTo:      job.DateTo,
			Status:      job.Status,
			Error:       job.Error,
			Synced:      job.Synced,
			Failed:      job.Failed,
			Pages:       job.Pages,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
		}
	}
	h.Success(c, responses)
}

// GetSyncLogs lists the caller's stock sync logs with optional status and
// trigger filters
func (h *SyncHandler) GetSyncLogs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	listReq.Normalize()

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		Filters:  map[string]interface{}{},
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if trigger := c.Query("trigger"); trigger != "" {
		filter.Filters["trigger"] = trigger
	}

	logs, err := h.logRepo.FindForUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]SyncLogResponse, len(logs))
	for i := range logs {
		responses[i] = toSyncLogResponse(&logs[i])
	}
	h.Success(c, responses)
}

// GetSyncStats aggregates the caller's sync log counts over a time range.
// Defaults to the last 7 days.
func (h *SyncHandler) GetSyncStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	now := time.Now()
	from := now.Add(-7 * 24 * time.Hour)
	to := now
	if raw := c.Query("from"); raw != "" {
		if from, err = parseDateTime(raw); err != nil {
			h.BadRequest(c, "invalid from")
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = parseDateTime(raw); err != nil {
			h.BadRequest(c, "invalid to")
			return
		}
	}

	stats, err := h.logRepo.StatsForUser(c.Request.Context(), userID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
