package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/solace-protocol/acp/internal/activity"
	"github.com/solace-protocol/acp/internal/identity"
	"github.com/solace-protocol/acp/internal/registry/model"
	"github.com/solace-protocol/acp/internal/registry/service"
	"github.com/solace-protocol/acp/internal/registry/store"
)

const (
	testOwner       = "user_123"
	testWallet      = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testAdminSecret = "test-admin-secret"
)

type instantDeployer struct{}

func (instantDeployer) Deploy(_ context.Context, _ *model.Agent, _ model.DeploymentConfig) (*model.DeploymentResult, error) {
	return &model.DeploymentResult{
		Success:         true,
		ContractAddress: "abc123def...ghi456jkl",
		TransactionID:   "tx_0123456789ab",
		DeployedAt:      time.Now().UTC(),
	}, nil
}

// newTestRouter builds the full HTTP stack with in-memory storage and a
// dev principal, mirroring the production wiring in cmd/acpd.
func newTestRouter(t *testing.T, devPrincipal *identity.Principal) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	svc := service.NewAgentService(store.NewMemory(), instantDeployer{}, activity.NewMemoryLog(), logger)
	auth := identity.NewAuth(nil, testAdminSecret, devPrincipal)

	router := gin.New()
	router.Use(RequestID())
	api := router.Group("/api")
	NewAgentHandler(svc, auth, logger).Register(api)
	return router
}

func devRouter(t *testing.T) *gin.Engine {
	return newTestRouter(t, &identity.Principal{UserID: testOwner, Wallet: testWallet})
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func createBody(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"description": "A thoroughly described test agent",
		"type":        "trading",
		"network":     "devnet",
		"capabilities": []map[string]any{
			{"name": "trade", "description": "Executes trades", "version": "1.0.0"},
		},
		"configuration": map[string]any{
			"maxTransactionAmount":  1000,
			"dailyTransactionLimit": 10000,
			"allowedTokens":         []string{"SOL", "USDC"},
			"riskThreshold":         50,
		},
		"tags":     []string{"test"},
		"isPublic": true,
	}
}

func createAgent(t *testing.T, router *gin.Engine, name string) string {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/agents", createBody(name), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q: status %d body %s", name, w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	return data["id"].(string)
}

func errBlock(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	if resp["success"] != false {
		t.Fatalf("expected error envelope, got %v", resp)
	}
	block, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error block: %v", resp)
	}
	return block
}

func TestCreateAgentEndpoint(t *testing.T) {
	router := devRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/api/agents", createBody("my-agent"), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Error("success envelope missing")
	}
	data := resp["data"].(map[string]any)
	if data["status"] != "pending" {
		t.Errorf("status = %v", data["status"])
	}
	if data["ownerId"] != testOwner {
		t.Errorf("ownerId = %v", data["ownerId"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestCreateAgentEndpointErrors(t *testing.T) {
	router := devRouter(t)

	// Validation failure carries the full error envelope.
	bad := createBody("my-agent")
	bad["name"] = "x"
	w, resp := doJSON(t, router, http.MethodPost, "/api/agents", bad, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	block := errBlock(t, resp)
	if block["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %v", block["code"])
	}
	if block["timestamp"] == nil || block["requestId"] == nil {
		t.Errorf("envelope incomplete: %v", block)
	}
	if block["statusCode"] != float64(http.StatusBadRequest) {
		t.Errorf("statusCode = %v", block["statusCode"])
	}

	// Duplicate names conflict.
	createAgent(t, router, "dup-agent")
	w, resp = doJSON(t, router, http.MethodPost, "/api/agents", createBody("dup-agent"), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	if errBlock(t, resp)["code"] != "CONFLICT_ERROR" {
		t.Error("expected CONFLICT_ERROR")
	}
}

func TestAuthRequired(t *testing.T) {
	// No dev principal: unauthenticated writes are rejected.
	router := newTestRouter(t, nil)

	w, resp := doJSON(t, router, http.MethodPost, "/api/agents", createBody("my-agent"), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if errBlock(t, resp)["code"] != "AUTHENTICATION_ERROR" {
		t.Error("expected AUTHENTICATION_ERROR")
	}

	// Public listing still works anonymously.
	w, _ = doJSON(t, router, http.MethodGet, "/api/agents", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("anonymous list status = %d", w.Code)
	}
}

func TestGetAgentEndpoint(t *testing.T) {
	router := devRouter(t)
	id := createAgent(t, router, "my-agent")

	w, resp := doJSON(t, router, http.MethodGet, "/api/agents/"+id, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := resp["data"].(map[string]any)
	if data["id"] != id {
		t.Errorf("id = %v", data["id"])
	}

	w, resp = doJSON(t, router, http.MethodGet, "/api/agents/agent_missing", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing agent status = %d", w.Code)
	}
	if errBlock(t, resp)["code"] != "NOT_FOUND_ERROR" {
		t.Error("expected NOT_FOUND_ERROR")
	}
}

func TestListAgentsEndpoint(t *testing.T) {
	router := devRouter(t)
	for i := 0; i < 15; i++ {
		createAgent(t, router, fmt.Sprintf("agent-%02d", i))
	}

	w, resp := doJSON(t, router, http.MethodGet, "/api/agents?limit=10", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	agents := resp["data"].([]any)
	if len(agents) != 10 {
		t.Errorf("page size = %d", len(agents))
	}
	p := resp["pagination"].(map[string]any)
	if p["total"] != float64(15) || p["limit"] != float64(10) || p["hasNext"] != true {
		t.Errorf("pagination = %v", p)
	}

	w, resp = doJSON(t, router, http.MethodGet, "/api/agents?limit=10&offset=10", nil, nil)
	if len(resp["data"].([]any)) != 5 {
		t.Error("second page wrong size")
	}
	if resp["pagination"].(map[string]any)["hasNext"] != false {
		t.Error("hasNext should be false on the last page")
	}

	// Limit clamps at 100.
	_, resp = doJSON(t, router, http.MethodGet, "/api/agents?limit=500", nil, nil)
	if resp["pagination"].(map[string]any)["limit"] != float64(100) {
		t.Error("limit not clamped to 100")
	}

	// Invalid filter values fail loudly.
	w, _ = doJSON(t, router, http.MethodGet, "/api/agents?status=bogus", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: %d", w.Code)
	}
}

func TestListMyAgentsEndpoint(t *testing.T) {
	router := devRouter(t)
	createAgent(t, router, "public-agent")

	private := createBody("private-agent")
	private["isPublic"] = false
	if w, _ := doJSON(t, router, http.MethodPost, "/api/agents", private, nil); w.Code != http.StatusCreated {
		t.Fatal("create private agent failed")
	}

	// /my includes the caller's private agents.
	_, resp := doJSON(t, router, http.MethodGet, "/api/agents/my", nil, nil)
	if total := resp["pagination"].(map[string]any)["total"]; total != float64(2) {
		t.Errorf("my total = %v", total)
	}

	// The unscoped listing hides them.
	_, resp = doJSON(t, router, http.MethodGet, "/api/agents", nil, nil)
	if total := resp["pagination"].(map[string]any)["total"]; total != float64(1) {
		t.Errorf("public total = %v", total)
	}
}

func TestUpdateAgentEndpoint(t *testing.T) {
	router := devRouter(t)
	id := createAgent(t, router, "my-agent")

	w, resp := doJSON(t, router, http.MethodPut, "/api/agents/"+id, map[string]any{
		"description": "An updated and still valid description",
		"tags":        []string{"updated"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if data["description"] != "An updated and still valid description" {
		t.Errorf("description = %v", data["description"])
	}

	// Status is not an updatable field: unknown fields are ignored and the
	// agent stays pending.
	_, resp = doJSON(t, router, http.MethodPut, "/api/agents/"+id, map[string]any{
		"status": "active",
	}, nil)
	if resp["data"].(map[string]any)["status"] != "pending" {
		t.Error("status was updated through PUT")
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	router := devRouter(t)
	id := createAgent(t, router, "my-agent")

	deployBody := map[string]any{"network": "devnet", "wallet": testWallet}
	w, resp := doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/deploy", deployBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("deploy status = %d: %s", w.Code, w.Body.String())
	}
	result := resp["data"].(map[string]any)
	if result["success"] != true || result["contractAddress"] == "" {
		t.Errorf("deploy result = %v", result)
	}

	// Double deploy is a domain-rule violation.
	w, resp = doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/deploy", deployBody, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("double deploy status = %d", w.Code)
	}
	if errBlock(t, resp)["code"] != "AGENT_ERROR" {
		t.Error("expected AGENT_ERROR")
	}

	// Deleting an active agent fails; pausing first succeeds.
	w, _ = doJSON(t, router, http.MethodDelete, "/api/agents/"+id, nil, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("delete active status = %d", w.Code)
	}
	w, resp = doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/pause", nil, nil)
	if w.Code != http.StatusOK || resp["data"].(map[string]any)["status"] != "paused" {
		t.Fatalf("pause: %d %v", w.Code, resp)
	}
	w, resp = doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/resume", nil, nil)
	if w.Code != http.StatusOK || resp["data"].(map[string]any)["status"] != "active" {
		t.Fatalf("resume: %d %v", w.Code, resp)
	}
	if w, _ := doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/pause", nil, nil); w.Code != http.StatusOK {
		t.Fatal("re-pause failed")
	}
	w, _ = doJSON(t, router, http.MethodDelete, "/api/agents/"+id, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete paused status = %d", w.Code)
	}
}

func TestSuspendEndpoint(t *testing.T) {
	router := devRouter(t)
	id := createAgent(t, router, "my-agent")

	// Admin gate: without the secret the request is forbidden.
	body := map[string]any{"reason": "terms violation"}
	w, resp := doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/suspend", body, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unauthenticated suspend status = %d", w.Code)
	}
	if errBlock(t, resp)["code"] != "AUTHORIZATION_ERROR" {
		t.Error("expected AUTHORIZATION_ERROR")
	}

	admin := map[string]string{"X-Admin-Secret": testAdminSecret}
	w, resp = doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/suspend", body, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("suspend status = %d: %s", w.Code, w.Body.String())
	}
	if resp["data"].(map[string]any)["status"] != "suspended" {
		t.Error("agent not suspended")
	}

	// Reason is mandatory.
	w, _ = doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/suspend", map[string]any{}, admin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing reason status = %d", w.Code)
	}
}

func TestReputationEndpoint(t *testing.T) {
	router := devRouter(t)
	id := createAgent(t, router, "my-agent")

	body := map[string]any{
		"successRate":      100,
		"responseTime":     0,
		"uptime":           100,
		"transactionCount": 1000,
	}
	admin := map[string]string{"X-Admin-Secret": testAdminSecret}
	w, resp := doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/reputation", body, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	rep := resp["data"].(map[string]any)["reputation"].(map[string]any)
	if rep["score"] != float64(100) {
		t.Errorf("score = %v", rep["score"])
	}

	if w, _ := doJSON(t, router, http.MethodPost, "/api/agents/"+id+"/reputation", body, nil); w.Code != http.StatusForbidden {
		t.Error("reputation update should require admin")
	}
}

func TestStatisticsAndActivityEndpoints(t *testing.T) {
	router := devRouter(t)
	id := createAgent(t, router, "my-agent")

	w, resp := doJSON(t, router, http.MethodGet, "/api/agents/"+id+"/statistics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("statistics status = %d", w.Code)
	}
	stats := resp["data"].(map[string]any)
	if stats["totalEarnings"] != float64(0) {
		t.Errorf("totalEarnings = %v", stats["totalEarnings"])
	}

	w, resp = doJSON(t, router, http.MethodGet, "/api/agents/"+id+"/activity", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity status = %d", w.Code)
	}
	entries := resp["data"].([]any)
	if len(entries) == 0 {
		t.Fatal("creation activity missing")
	}
	first := entries[0].(map[string]any)
	if first["agentId"] != id {
		t.Errorf("entry agentId = %v", first["agentId"])
	}
}
