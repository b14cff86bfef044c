// Package handler exposes the agent registry over HTTP. Responses use a
// uniform envelope: {"success":true,"data":...} on success, with list
// responses adding a pagination block, and {"success":false,"error":{...}}
// on failure.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solace-protocol/acp/internal/identity"
	"github.com/solace-protocol/acp/internal/registry/model"
	"github.com/solace-protocol/acp/internal/registry/service"
)

const (
	maxListLimit     = 100
	defaultListLimit = 50
)

// AgentHandler handles HTTP requests for the agent registry.
type AgentHandler struct {
	svc    *service.AgentService
	auth   *identity.Auth
	logger *zap.Logger
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(svc *service.AgentService, auth *identity.Auth, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{svc: svc, auth: auth, logger: logger}
}

// Register registers all agent routes on the given router group.
func (h *AgentHandler) Register(rg *gin.RouterGroup) {
	agents := rg.Group("/agents")
	{
		agents.POST("", h.auth.Require(), h.CreateAgent)
		agents.GET("", h.auth.Attach(), h.ListAgents)
		agents.GET("/my", h.auth.Require(), h.ListMyAgents)
		agents.GET("/:id", h.auth.Attach(), h.GetAgent)
		agents.PUT("/:id", h.auth.Require(), h.UpdateAgent)
		agents.DELETE("/:id", h.auth.Require(), h.DeleteAgent)
		agents.POST("/:id/deploy", h.auth.Require(), h.DeployAgent)
		agents.POST("/:id/pause", h.auth.Require(), h.PauseAgent)
		agents.POST("/:id/resume", h.auth.Require(), h.ResumeAgent)
		agents.POST("/:id/suspend", h.auth.RequireAdmin(), h.SuspendAgent)
		agents.POST("/:id/reputation", h.auth.RequireAdmin(), h.UpdateReputation)
		agents.GET("/:id/statistics", h.auth.Attach(), h.GetStatistics)
		agents.GET("/:id/activity", h.auth.Attach(), h.GetActivity)
	}
}

// CreateAgent handles POST /agents — registers a new agent.
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	principal := identity.FromCtx(c)

	var input model.CreateAgentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, model.NewValidationError("Invalid request body: "+err.Error(), nil))
		return
	}

	agent, err := h.svc.Create(c.Request.Context(), input, principal.UserID, principal.Wallet)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, agent)
}

// ListAgents handles GET /agents — returns a filtered, paginated listing.
// Anonymous callers only see public agents.
func (h *AgentHandler) ListAgents(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	agents, total, listErr := h.svc.List(c.Request.Context(), filters)
	if listErr != nil {
		respondError(c, listErr)
		return
	}
	respondList(c, agents, total, filters.Limit, filters.Offset)
}

// ListMyAgents handles GET /agents/my — lists the caller's own agents,
// public and private.
func (h *AgentHandler) ListMyAgents(c *gin.Context) {
	principal := identity.FromCtx(c)

	filters, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}
	filters.OwnerID = principal.UserID

	agents, total, listErr := h.svc.List(c.Request.Context(), filters)
	if listErr != nil {
		respondError(c, listErr)
		return
	}
	respondList(c, agents, total, filters.Limit, filters.Offset)
}

// GetAgent handles GET /agents/:id.
func (h *AgentHandler) GetAgent(c *gin.Context) {
	agent, err := h.svc.Get(c.Request.Context(), c.Param("id"), requesterID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, agent)
}

// UpdateAgent handles PUT /agents/:id — partial update of mutable fields.
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	principal := identity.FromCtx(c)

	var input model.UpdateAgentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, model.NewValidationError("Invalid request body: "+err.Error(), nil))
		return
	}

	agent, err := h.svc.Update(c.Request.Context(), c.Param("id"), input, principal.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, agent)
}

// DeleteAgent handles DELETE /agents/:id.
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	principal := identity.FromCtx(c)

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), principal.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeployAgent handles POST /agents/:id/deploy.
func (h *AgentHandler) DeployAgent(c *gin.Context) {
	principal := identity.FromCtx(c)

	var cfg model.DeploymentConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondError(c, model.NewValidationError("Invalid request body: "+err.Error(), nil))
		return
	}

	result, err := h.svc.Deploy(c.Request.Context(), c.Param("id"), cfg, principal.UserID)
	if err != nil {
		RecordDeployment(false)
		respondError(c, err)
		return
	}
	RecordDeployment(true)
	respondData(c, http.StatusOK, result)
}

// PauseAgent handles POST /agents/:id/pause.
func (h *AgentHandler) PauseAgent(c *gin.Context) {
	principal := identity.FromCtx(c)

	agent, err := h.svc.Pause(c.Request.Context(), c.Param("id"), principal.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, agent)
}

// ResumeAgent handles POST /agents/:id/resume.
func (h *AgentHandler) ResumeAgent(c *gin.Context) {
	principal := identity.FromCtx(c)

	agent, err := h.svc.Resume(c.Request.Context(), c.Param("id"), principal.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, agent)
}

// SuspendAgent handles POST /agents/:id/suspend — admin only.
func (h *AgentHandler) SuspendAgent(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, model.NewValidationError("Suspension reason is required", nil))
		return
	}

	agent, err := h.svc.Suspend(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, agent)
}

// UpdateReputation handles POST /agents/:id/reputation — admin only.
func (h *AgentHandler) UpdateReputation(c *gin.Context) {
	var metrics model.ReputationMetrics
	if err := c.ShouldBindJSON(&metrics); err != nil {
		respondError(c, model.NewValidationError("Invalid request body: "+err.Error(), nil))
		return
	}

	agent, err := h.svc.UpdateReputation(c.Request.Context(), c.Param("id"), metrics)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, agent)
}

// GetStatistics handles GET /agents/:id/statistics.
func (h *AgentHandler) GetStatistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context(), c.Param("id"), requesterID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, stats)
}

// GetActivity handles GET /agents/:id/activity.
func (h *AgentHandler) GetActivity(c *gin.Context) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, actErr := h.svc.Activity(c.Request.Context(), c.Param("id"), requesterID(c), limit, offset)
	if actErr != nil {
		respondError(c, actErr)
		return
	}
	respondData(c, http.StatusOK, entries)
}

// requesterID returns the authenticated user id, or "" for anonymous calls.
func requesterID(c *gin.Context) string {
	if p := identity.FromCtx(c); p != nil {
		return p.UserID
	}
	return ""
}

// parseFilters builds listing filters from query parameters. Multi-valued
// filters accept comma-separated values.
func parseFilters(c *gin.Context) (model.QueryFilters, error) {
	var f model.QueryFilters

	for _, raw := range splitQuery(c.Query("type")) {
		t := model.AgentType(raw)
		if !model.ValidAgentType(t) {
			return f, model.NewValidationError("Invalid agent type", map[string]any{"type": raw})
		}
		f.Types = append(f.Types, t)
	}
	for _, raw := range splitQuery(c.Query("status")) {
		st := model.AgentStatus(raw)
		if !validStatus(st) {
			return f, model.NewValidationError("Invalid agent status", map[string]any{"status": raw})
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, raw := range splitQuery(c.Query("network")) {
		n := model.Network(raw)
		if !model.ValidNetwork(n) {
			return f, model.NewValidationError("Invalid network", map[string]any{"network": raw})
		}
		f.Networks = append(f.Networks, n)
	}

	f.OwnerID = c.Query("ownerId")
	f.Tags = splitQuery(c.Query("tags"))
	f.Search = c.Query("search")

	if raw := c.Query("isPublic"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, model.NewValidationError("isPublic must be a boolean", nil)
		}
		f.IsPublic = &v
	}
	if raw := c.Query("minReputation"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			return f, model.NewValidationError("minReputation must be between 0 and 100", nil)
		}
		f.MinReputation = &v
	}

	switch sortBy := c.Query("sortBy"); sortBy {
	case "", "createdAt", "reputation", "earnings", "activity":
		f.SortBy = sortBy
	default:
		return f, model.NewValidationError("Invalid sortBy field", map[string]any{"sortBy": sortBy})
	}
	switch order := c.Query("sortOrder"); order {
	case "", "asc", "desc":
		f.SortOrder = order
	default:
		return f, model.NewValidationError("sortOrder must be asc or desc", nil)
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	f.Offset = offset
	return f, nil
}

// parsePagination reads limit and offset query parameters. Limit is clamped
// to [1, 100] with a default of 50.
func parsePagination(c *gin.Context) (limit, offset int, err error) {
	limit = defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		v, parseErr := strconv.Atoi(raw)
		if parseErr != nil || v < 1 {
			return 0, 0, model.NewValidationError("limit must be a positive integer", nil)
		}
		if v > maxListLimit {
			v = maxListLimit
		}
		limit = v
	}
	if raw := c.Query("offset"); raw != "" {
		v, parseErr := strconv.Atoi(raw)
		if parseErr != nil || v < 0 {
			return 0, 0, model.NewValidationError("offset must be a non-negative integer", nil)
		}
		offset = v
	}
	return limit, offset, nil
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validStatus(s model.AgentStatus) bool {
	for _, known := range model.AgentStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// pagination is the envelope block attached to list responses.
type pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasNext bool `json:"hasNext"`
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondList(c *gin.Context, agents []*model.Agent, total, limit, offset int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    agents,
		"pagination": pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasNext: offset+limit < total,
		},
	})
}

// respondError writes the error envelope. Untyped errors become opaque 500s.
func respondError(c *gin.Context, err error) {
	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		appErr = model.NewInternalError(err)
	}

	body := gin.H{
		"code":       appErr.Code,
		"message":    appErr.Message,
		"statusCode": appErr.StatusCode,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"requestId":  RequestIDFromCtx(c),
	}
	if len(appErr.Context) > 0 {
		body["context"] = appErr.Context
	}
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{"success": false, "error": body})
}
