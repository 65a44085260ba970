package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	"github.com/Hamhunter23/verifi-data-agent/internal/core"
	apperrors "github.com/Hamhunter23/verifi-data-agent/internal/errors"
	"github.com/Hamhunter23/verifi-data-agent/internal/output"
	"github.com/Hamhunter23/verifi-data-agent/internal/server/middleware"
)

// maxBodyBytes bounds request bodies on the agent endpoints.
const maxBodyBytes = 64 << 10

// AgentHandlers exposes the agent over HTTP.
type AgentHandlers struct {
	Agent *agent.Agent
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse always carries a user-facing reply, including for failures.
type ChatResponse struct {
	Reply     string                   `json:"reply"`
	Request   *core.StructuredRequest  `json:"request,omitempty"`
	Response  *core.StructuredResponse `json:"response,omitempty"`
	ErrorKind core.ErrorKind           `json:"error_kind,omitempty"`
	RequestID string                   `json:"request_id,omitempty"`
}

// StructuredResult is the success body of POST /v1/requests.
type StructuredResult struct {
	Response *core.StructuredResponse `json:"response"`
	Message  string                   `json:"message"`
}

// KindsResponse is the body of GET /v1/kinds.
type KindsResponse struct {
	Kinds []output.KindInfo `json:"kinds"`
}

// Chat answers a free-text message. Pipeline failures are rendered into the
// reply with status 200; only malformed bodies are rejected.
func (h *AgentHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if err := decodeBody(w, r, &body); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapBadRequest(r.Context(), err, "request body must be a JSON object with a message"))
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		apperrors.RespondWithError(w, r, apperrors.NewBadRequestError("message is required"))
		return
	}

	outcome := h.Agent.Ask(r.Context(), body.Message)
	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:     outcome.Message(),
		Request:   outcome.Request,
		Response:  outcome.Response,
		ErrorKind: core.KindOf(outcome.Err),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// Structured serves a direct structured request under the requester's quota.
func (h *AgentHandlers) Structured(w http.ResponseWriter, r *http.Request) {
	var req core.StructuredRequest
	if err := decodeBody(w, r, &req); err != nil {
		apperrors.RespondWithError(w, r, apperrors.WrapBadRequest(r.Context(), err, "request body must be a structured request"))
		return
	}

	resp, err := h.Agent.HandleStructured(r.Context(), middleware.GetRequester(r.Context()), req)
	if err != nil {
		apperrors.RespondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StructuredResult{
		Response: resp,
		Message:  output.FormatResponse(resp),
	})
}

// Kinds lists the supported entity kinds.
func (h *AgentHandlers) Kinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, KindsResponse{Kinds: h.Agent.Kinds()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
