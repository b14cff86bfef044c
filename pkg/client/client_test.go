package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/agents" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok123" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}

		var req CreateAgentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Name != "my-agent" {
			t.Errorf("name = %q", req.Name)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "agent_abc", "name": req.Name, "status": "pending"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, WithBearerToken("tok123"))
	agent, err := c.Create(context.Background(), CreateAgentRequest{Name: "my-agent"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if agent.ID != "agent_abc" || agent.Status != "pending" {
		t.Errorf("agent = %+v", agent)
	}
}

func TestListQueryEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "oracle,trading" {
			t.Errorf("type = %q", q.Get("type"))
		}
		if q.Get("limit") != "10" || q.Get("offset") != "20" {
			t.Errorf("pagination: limit=%q offset=%q", q.Get("limit"), q.Get("offset"))
		}
		if q.Get("sortBy") != "reputation" {
			t.Errorf("sortBy = %q", q.Get("sortBy"))
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "agent_1"}, {"id": "agent_2"}},
			"pagination": map[string]any{
				"total": 42, "limit": 10, "offset": 20, "hasNext": true,
			},
		})
	}))
	defer srv.Close()

	page, err := New(srv.URL).List(context.Background(), ListOptions{
		Types:  []string{"oracle", "trading"},
		SortBy: "reputation",
		Limit:  10,
		Offset: 20,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Agents) != 2 || page.Total != 42 || !page.HasNext {
		t.Errorf("page = %+v", page)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error": map[string]any{
				"code":       "CONFLICT_ERROR",
				"message":    "Agent with name 'my-agent' already exists",
				"statusCode": 409,
				"requestId":  "req-1",
			},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Create(context.Background(), CreateAgentRequest{Name: "my-agent"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != "CONFLICT_ERROR" || apiErr.StatusCode != 409 {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Error() == "" {
		t.Error("empty error string")
	}
}

func TestDeleteNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).Delete(context.Background(), "agent_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestAdminSecretHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Secret") != "s3cret" {
			t.Errorf("admin secret header = %q", r.Header.Get("X-Admin-Secret"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": "agent_1", "status": "suspended"},
		})
	}))
	defer srv.Close()

	agent, err := New(srv.URL, WithAdminSecret("s3cret")).Suspend(context.Background(), "agent_1", "abuse")
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if agent.Status != "suspended" {
		t.Errorf("status = %q", agent.Status)
	}
}
