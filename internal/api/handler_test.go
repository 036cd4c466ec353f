package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/agent"
	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/embedding"
	"github.com/hollowbrook/reverie/internal/event"
	"github.com/hollowbrook/reverie/internal/llm"
	"github.com/hollowbrook/reverie/internal/memory"
	"github.com/hollowbrook/reverie/internal/world"
)

type recordingNarrator struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNarrator) Narrate(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

// newTestHandler wires a handler over an in-memory simulation, no external
// services.
func newTestHandler(t *testing.T) (*Handler, http.Handler, *recordingNarrator) {
	t.Helper()
	logger := zap.NewNop()

	clock, err := world.NewClock(config.ClockConfig{
		StartDate: "2024-01-01", StartTime: "05:00:00", IncrementSec: 20,
	}, logger)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}

	mgr, err := agent.NewManager(4, event.NewQueue(), logger)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(mgr.Close)

	client := llm.NewStaticClient()
	embedder := embedding.NewHashProvider(16)
	seq := agent.NewSequence()
	for i, name := range []string{"Hank Thompson", "Claire Reynolds"} {
		persona := &agent.Persona{Name: name, Age: 40 + i, Occupation: "farmer", Traits: "patient"}
		longMem := memory.NewLongTermMemory(embedder, logger)
		retriever := memory.NewRetriever(longMem, embedder, config.RetrievalConfig{
			MaxRetrieval: 100, MaxContext: 3, RecencyDecay: 0.995,
		}, logger)
		rng := rand.New(rand.NewSource(int64(i)))
		a := agent.NewAgent(i, persona, client, longMem, retriever, clock, seq, rng, logger)
		if err := mgr.Register(a); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	narrator := &recordingNarrator{}
	h := NewHandler(mgr, clock, narrator, Backends{}, logger)
	return h, h.Router(), narrator
}

func getJSON(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/api/health")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestGetClock(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/api/clock")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body clockResponse
	decodeJSON(t, resp, &body)
	if body.Time != "2024-01-01 05:00:00" {
		t.Errorf("unexpected clock time %q", body.Time)
	}
	if body.Day != 0 {
		t.Errorf("expected day 0, got %d", body.Day)
	}
	if !body.AM {
		t.Error("expected AM at 05:00")
	}
}

func TestListAndGetAgents(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/api/agents")
	if resp.StatusCode != 200 {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var agents []agentSummary
	decodeJSON(t, resp, &agents)
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}
	if agents[0].Name != "Hank Thompson" {
		t.Errorf("expected registration order preserved, got %q first", agents[0].Name)
	}

	resp = getJSON(t, ts, "/api/agents/Claire%20Reynolds")
	if resp.StatusCode != 200 {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var detail agentDetail
	decodeJSON(t, resp, &detail)
	if detail.Occupation != "farmer" {
		t.Errorf("expected occupation farmer, got %q", detail.Occupation)
	}

	resp = getJSON(t, ts, "/api/agents/Nobody")
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown agent, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetScheduleAfterPlanning(t *testing.T) {
	h, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	// Before the first cycle the schedule is empty.
	resp := getJSON(t, ts, "/api/agents/Hank%20Thompson/schedule")
	var entries []scheduleEntry
	decodeJSON(t, resp, &entries)
	if len(entries) != 0 {
		t.Fatalf("expected empty schedule before first cycle, got %d entries", len(entries))
	}

	h.mgr.Update(context.Background(), true, false)

	resp = getJSON(t, ts, "/api/agents/Hank%20Thompson/schedule")
	decodeJSON(t, resp, &entries)
	if len(entries) == 0 {
		t.Fatal("expected a planned schedule after the first cycle")
	}
}

func TestChatEndpoints(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/api/chats")
	if resp.StatusCode != 200 {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var chats []chatSummary
	decodeJSON(t, resp, &chats)
	if len(chats) != 0 {
		t.Errorf("expected no conversations yet, got %d", len(chats))
	}

	resp = getJSON(t, ts, "/api/chats/99")
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown chat, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/chats/notanumber")
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for malformed chat id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestNarrate(t *testing.T) {
	_, router, narrator := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := postJSON(t, ts, "/api/narrate", map[string]string{"message": "A storm is coming."})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	narrator.mu.Lock()
	defer narrator.mu.Unlock()
	if len(narrator.messages) != 1 || narrator.messages[0] != "A storm is coming." {
		t.Fatalf("narration not delivered: %v", narrator.messages)
	}

	resp = postJSON(t, ts, "/api/narrate", map[string]string{"message": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestArchiveSearchUnconfigured(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/api/archive/search?q=storm")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without archive, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getJSON(t, ts, "/api/archive/stats")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("stats: expected 503 without archive, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRelationsUnconfigured(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp := getJSON(t, ts, "/api/agents/Hank%20Thompson/relations")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without relation graph, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRunEndpointsUnconfigured(t *testing.T) {
	_, router, _ := newTestHandler(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	for _, path := range []string{"/api/run", "/api/transcript"} {
		resp := getJSON(t, ts, path)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("GET %s: expected 503 without run store, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
