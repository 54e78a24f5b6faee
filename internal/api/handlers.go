package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"trusio/internal/agents"
	"trusio/internal/tools"
	"trusio/pkg/errors"
	"trusio/pkg/logger"
)

// Handlers exposes the runtime operations over JSON.
type Handlers struct {
	orch *agents.Orchestrator
	log  *logger.Logger
}

// NewHandlers constructs the handler set.
func NewHandlers(orch *agents.Orchestrator) *Handlers {
	return &Handlers{orch: orch, log: logger.Get().With("component", "api")}
}

// Register mounts the runtime routes on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/messages", h.handleMessage)
	mux.HandleFunc("POST /v1/handoffs", h.handleHandoff)
	mux.HandleFunc("POST /v1/tools/{name}/execute", h.handleExecuteTool)
	mux.HandleFunc("GET /v1/agents", h.handleListAgents)
	mux.HandleFunc("GET /v1/agents/suggest", h.handleSuggest)
	mux.HandleFunc("GET /v1/tools", h.handleListTools)
	mux.HandleFunc("GET /v1/history", h.handleHistory)
	mux.HandleFunc("GET /v1/runtime/metrics", h.handleRuntimeMetrics)
}

func (h *Handlers) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req agents.MessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.orch.HandleMessage(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleHandoff(w http.ResponseWriter, r *http.Request) {
	var req agents.HandoffRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.orch.ExecuteHandoff(r.Context(), req)
	if err != nil {
		// The failed record is still the response body so callers get the
		// audit trail alongside the error code.
		h.writeJSON(w, statusFor(err), map[string]interface{}{
			"record": record,
			"error":  errorBody(err),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"record": record})
}

type executeToolRequest struct {
	UserID    string                 `json:"userId"`
	SessionID string                 `json:"sessionId"`
	Params    map[string]interface{} `json:"params"`
}

func (h *Handlers) handleExecuteTool(w http.ResponseWriter, r *http.Request) {
	var req executeToolRequest
	if !h.decode(w, r, &req) {
		return
	}

	result := h.orch.ExecuteTool(r.Context(), r.PathValue("name"), req.Params, tools.Metadata{
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	// Tool failures are values; the HTTP status is 200 either way.
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"agents": h.orch.ListAgents()})
}

func (h *Handlers) handleSuggest(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		h.writeError(w, errors.NewValidationError("message", "query parameter is required", nil))
		return
	}
	h.writeJSON(w, http.StatusOK, h.orch.SuggestAgent(message))
}

func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		RiskLevel   string `json:"riskLevel"`
	}
	listed := h.orch.ListTools(category)
	out := make([]toolInfo, 0, len(listed))
	for _, tool := range listed {
		out = append(out, toolInfo{
			Name:        tool.Name(),
			Description: tool.Description(),
			Category:    tool.Category(),
			RiskLevel:   string(tool.RiskLevel()),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"tools": out})
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	sessionID := q.Get("sessionId")
	if userID == "" || sessionID == "" {
		h.writeError(w, errors.NewValidationError("userId", "userId and sessionId are required", nil))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.orch.GetHistory(r.Context(), userID, sessionID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) handleRuntimeMetrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.orch.GetMetrics(r.Context(), r.URL.Query().Get("tool")))
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, errors.NewValidationError("body", "invalid JSON payload", nil))
		return false
	}
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("encode response: %v", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusFor(err), map[string]interface{}{"error": errorBody(err)})
}

func errorBody(err error) map[string]string {
	return map[string]string{
		"code":    errors.CodeOf(err),
		"message": err.Error(),
	}
}

// statusFor maps runtime error codes onto HTTP statuses.
func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.CodeValidationError, errors.CodeInvalidAgents, errors.CodeHandoffDepthExceeded:
		return http.StatusBadRequest
	case errors.CodeAgentNotFound, errors.CodeToolNotFound:
		return http.StatusNotFound
	case errors.CodeExecutionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
