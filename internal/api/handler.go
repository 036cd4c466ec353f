package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/agent"
	"github.com/hollowbrook/reverie/internal/archive"
	"github.com/hollowbrook/reverie/internal/relation"
	"github.com/hollowbrook/reverie/internal/store"
	"github.com/hollowbrook/reverie/internal/world"
)

// Narrator injects an operator narration into the running simulation.
type Narrator interface {
	Narrate(message string)
}

// Backends are the optional persistence services the API can read from.
// Any of them may be nil; the matching endpoints then report unavailable.
type Backends struct {
	Archive   *archive.Archive
	Relations *relation.Graph
	Store     *store.Store
	RunID     string
}

// Handler exposes read-only observation endpoints over the running
// simulation plus a narration injection endpoint. The simulation itself is
// driven by timers; the API never advances it.
type Handler struct {
	mgr      *agent.Manager
	clock    *world.Clock
	narrator Narrator
	backends Backends
	logger   *zap.Logger
}

// NewHandler creates an API handler over the simulation and whatever
// backends are configured.
func NewHandler(mgr *agent.Manager, clock *world.Clock, narrator Narrator, backends Backends, logger *zap.Logger) *Handler {
	return &Handler{
		mgr:      mgr,
		clock:    clock,
		narrator: narrator,
		backends: backends,
		logger:   logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/clock", h.getClock)
		r.Get("/agents", h.listAgents)
		r.Get("/agents/{name}", h.getAgent)
		r.Get("/agents/{name}/schedule", h.getSchedule)
		r.Get("/agents/{name}/relations", h.getRelations)
		r.Get("/chats", h.listChats)
		r.Get("/chats/{id}", h.getChat)
		r.Post("/narrate", h.narrate)
		r.Get("/archive/search", h.searchArchive)
		r.Get("/archive/stats", h.archiveStats)
		r.Get("/run", h.getRun)
		r.Get("/transcript", h.getTranscript)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type clockResponse struct {
	Time   string `json:"time"`
	Day    int    `json:"day"`
	AM     bool   `json:"am"`
	Cycles uint64 `json:"cycles"`
}

func (h *Handler) getClock(w http.ResponseWriter, r *http.Request) {
	snap := h.clock.Snapshot()
	writeJSON(w, http.StatusOK, clockResponse{
		Time:   snap.Time.Format("2006-01-02 15:04:05"),
		Day:    snap.DayCount,
		AM:     snap.AM,
		Cycles: h.mgr.CycleCount(),
	})
}

type agentSummary struct {
	Name         string `json:"name"`
	Doing        string `json:"doing"`
	Sleeping     bool   `json:"sleeping"`
	ChattingWith string `json:"chatting_with,omitempty"`
	MemorySize   int    `json:"memory_size"`
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.mgr.Agents()
	out := make([]agentSummary, 0, len(agents))
	for _, a := range agents {
		out = append(out, summarize(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type agentDetail struct {
	agentSummary
	Age        int    `json:"age"`
	Occupation string `json:"occupation"`
	Traits     string `json:"traits"`
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.mgr.Agent(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	p := a.Persona()
	writeJSON(w, http.StatusOK, agentDetail{
		agentSummary: summarize(a),
		Age:          p.Age,
		Occupation:   p.Occupation,
		Traits:       p.Traits,
	})
}

type scheduleEntry struct {
	Description string `json:"description"`
	Duration    string `json:"duration_hours"`
	StartTime   string `json:"start_time"`
	Done        bool   `json:"done"`
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	a, ok := h.mgr.Agent(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	entries, idx := a.ShortMemory().Schedule()
	out := make([]scheduleEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, scheduleEntry{
			Description: e.Description,
			Duration:    e.DurationHours,
			StartTime:   e.StartTime,
			Done:        i < idx,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getRelations(w http.ResponseWriter, r *http.Request) {
	if h.backends.Relations == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "relation graph not configured"})
		return
	}
	name := chi.URLParam(r, "name")
	if _, ok := h.mgr.Agent(name); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	rels, err := h.backends.Relations.Neighbors(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rels == nil {
		rels = []*relation.Relation{}
	}
	writeJSON(w, http.StatusOK, rels)
}

type chatSummary struct {
	ID       uint64 `json:"id"`
	Messages int    `json:"messages"`
}

func (h *Handler) listChats(w http.ResponseWriter, r *http.Request) {
	chats := h.mgr.Chats()
	out := make([]chatSummary, 0, chats.Size())
	for _, id := range chats.IDs() {
		history, _ := chats.HistoryByID(id)
		out = append(out, chatSummary{ID: id, Messages: len(history)})
	}
	writeJSON(w, http.StatusOK, out)
}

type chatLine struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Time   string `json:"time"`
}

func (h *Handler) getChat(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid chat id"})
		return
	}
	history, ok := h.mgr.Chats().HistoryByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chat not found"})
		return
	}
	out := make([]chatLine, 0, len(history))
	for _, msg := range history {
		out = append(out, chatLine{
			Sender: msg.SenderName,
			Text:   msg.Text,
			Time:   msg.Created.Format("2006-01-02 15:04:05"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type narrateRequest struct {
	Message string `json:"message"`
}

func (h *Handler) narrate(w http.ResponseWriter, r *http.Request) {
	var req narrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	h.narrator.Narrate(req.Message)
	h.logger.Info("narration injected via api", zap.String("message", req.Message))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type runResponse struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	AgentCount int        `json:"agent_count"`
	Cycles     uint64     `json:"cycles"`
	SimDays    int        `json:"sim_days"`
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.backends.Store == nil || h.backends.RunID == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run store not configured"})
		return
	}
	run, err := h.backends.Store.GetRun(r.Context(), h.backends.RunID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{
		ID:         run.ID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		AgentCount: run.AgentCount,
		Cycles:     run.Cycles,
		SimDays:    run.SimDays,
	})
}

type transcriptLine struct {
	Time  string `json:"time"`
	Agent string `json:"agent"`
	Kind  string `json:"kind"`
	Text  string `json:"text"`
}

func (h *Handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	if h.backends.Store == nil || h.backends.RunID == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run store not configured"})
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	lines, err := h.backends.Store.RecentTranscript(r.Context(), h.backends.RunID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	out := make([]transcriptLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, transcriptLine{
			Time:  l.SimTime.Format("2006-01-02 15:04:05"),
			Agent: l.Agent,
			Kind:  l.Kind,
			Text:  l.Text,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) archiveStats(w http.ResponseWriter, r *http.Request) {
	if h.backends.Archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "archive not configured"})
		return
	}
	stats, err := h.backends.Archive.Stats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) searchArchive(w http.ResponseWriter, r *http.Request) {
	if h.backends.Archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "archive not configured"})
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}
	topK := 5
	if k := r.URL.Query().Get("k"); k != "" {
		if n, err := strconv.Atoi(k); err == nil && n > 0 {
			topK = n
		}
	}
	entries, err := h.backends.Archive.Search(r.Context(), query, topK)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func summarize(a *agent.Agent) agentSummary {
	sm := a.ShortMemory()
	return agentSummary{
		Name:         a.Name(),
		Doing:        sm.CurrentDescription(),
		Sleeping:     sm.Sleeping(),
		ChattingWith: sm.ChattingWith(),
		MemorySize:   a.MemorySize(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
