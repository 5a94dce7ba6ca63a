package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven/mocks"
	"github.com/storyforge-labs/storyforge-core/internal/core/services"
)

func newTestServer(t *testing.T) (*Server, *mocks.MockTaskQueue, *mocks.MockDedupStore) {
	t.Helper()

	queue := mocks.NewMockTaskQueue()
	dedup := mocks.NewMockDedupStore()
	produced := mocks.NewMockProducedStore()
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	ledger := services.NewLedgerService(dedup, produced, logger)

	cfg := DefaultConfig()
	cfg.Version = "test"
	cfg.Logger = logger
	return NewServer(cfg, ledger, queue, nil, nil), queue, dedup
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestVersion(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/version", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp versionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
}

func TestEnqueueProduceSource(t *testing.T) {
	s, queue, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tasks/produce", `{"source_id": "abc123"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp enqueueProduceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TaskID == "" {
		t.Error("empty task ID")
	}
	if queue.PendingCount() != 1 {
		t.Errorf("pending = %d, want 1", queue.PendingCount())
	}
}

func TestEnqueueProduceSourceForce(t *testing.T) {
	s, queue, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tasks/produce", `{"source_id": "abc123", "force": true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var resp enqueueProduceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	task, err := queue.GetTask(context.Background(), resp.TaskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !task.Force() {
		t.Errorf("payload = %v, want the force marker", task.Payload)
	}
}

func TestEnqueueProduceBatchDefaultsCount(t *testing.T) {
	s, queue, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tasks/produce", `{}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if queue.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", queue.PendingCount())
	}
}

func TestEnqueueInvalidBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/tasks/produce", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTaskEndpointsWithoutQueue(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.queue = nil

	paths := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/tasks/produce", `{}`},
		{http.MethodGet, "/api/v1/tasks", ""},
		{http.MethodGet, "/api/v1/tasks/stats", ""},
		{http.MethodGet, "/api/v1/tasks/x", ""},
	}
	for _, p := range paths {
		rec := doRequest(t, s, p.method, p.path, p.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", p.method, p.path, rec.Code)
		}
	}
}

func TestGetTask(t *testing.T) {
	s, queue, _ := newTestServer(t)

	task := domain.NewProduceSourceTask("abc123")
	if err := queue.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/tasks/"+task.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/tasks/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestQueueStats(t *testing.T) {
	s, queue, _ := newTestServer(t)

	if err := queue.Enqueue(context.Background(), domain.NewProduceBatchTask(1)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/api/v1/tasks/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats struct {
		PendingCount int64 `json:"pending_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Errorf("pending = %d, want 1", stats.PendingCount)
	}
}

func TestMarkUnsuitableRoundTrip(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/ledger/unsuitable", `{"source_id": "abc123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/ledger/unsuitable", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ids []string
	if err := json.Unmarshal(rec.Body.Bytes(), &ids); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ids) != 1 || ids[0] != "abc123" {
		t.Errorf("unsuitable = %v, want [abc123]", ids)
	}
}

func TestMarkUnsuitableRequiresSourceID(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/ledger/unsuitable", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListProducedEmpty(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/ledger/produced", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
