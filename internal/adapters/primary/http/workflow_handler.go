package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mw "github.com/ticketwell/helpdesk-core/internal/adapters/primary/http/middleware"
	"github.com/ticketwell/helpdesk-core/internal/adapters/primary/validation"
	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// WorkflowHandler exposes read-only workflow configuration.
type WorkflowHandler struct {
	workflows    ports.WorkflowQueryService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflows ports.WorkflowQueryService, errorHandler *ErrorHandler, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflows:    workflows,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "workflow"),
	}
}

// Router sets up a new chi Router for workflow routes.
func (h *WorkflowHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.HandleListWorkflows)
	r.Get("/{workflowID}", h.HandleGetWorkflow)
	return r
}

// --- Response DTOs ---

// WorkflowStateDTO defines the JSON response for a workflow state.
type WorkflowStateDTO struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	IsInitial   bool   `json:"isInitial"`
	IsTerminal  bool   `json:"isTerminal"`
	SlaMinutes  *int   `json:"slaMinutes"`
	EntryHook   string `json:"entryHook,omitempty"`
	Description string `json:"description,omitempty"`
}

// WorkflowTransitionDTO defines the JSON response for a workflow edge.
type WorkflowTransitionDTO struct {
	ID              int64             `json:"id"`
	FromStateID     *int64            `json:"fromStateId"`
	ToStateID       int64             `json:"toStateId"`
	RequiresComment bool              `json:"requiresComment"`
	GuardHook       string            `json:"guardHook,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// WorkflowDTO defines the JSON response for a workflow graph.
type WorkflowDTO struct {
	ID          int64                   `json:"id"`
	BrandID     *string                 `json:"brandId"`
	Name        string                  `json:"name"`
	Slug        string                  `json:"slug"`
	IsDefault   bool                    `json:"isDefault"`
	States      []WorkflowStateDTO      `json:"states"`
	Transitions []WorkflowTransitionDTO `json:"transitions"`
}

func toWorkflowDTO(wf *domain.Workflow) WorkflowDTO {
	var brandID *string
	if wf.BrandID != nil {
		value := wf.BrandID.String()
		brandID = &value
	}

	states := make([]WorkflowStateDTO, 0, len(wf.States))
	for _, s := range wf.States {
		states = append(states, WorkflowStateDTO{
			ID:          s.ID,
			Slug:        s.Slug,
			Name:        s.Name,
			Position:    s.Position,
			IsInitial:   s.IsInitial,
			IsTerminal:  s.IsTerminal,
			SlaMinutes:  s.SlaMinutes,
			EntryHook:   s.EntryHook,
			Description: s.Description,
		})
	}

	transitions := make([]WorkflowTransitionDTO, 0, len(wf.Transitions))
	for _, tr := range wf.Transitions {
		transitions = append(transitions, WorkflowTransitionDTO{
			ID:              tr.ID,
			FromStateID:     tr.FromStateID,
			ToStateID:       tr.ToStateID,
			RequiresComment: tr.RequiresComment,
			GuardHook:       tr.GuardHook,
			Metadata:        tr.Metadata,
		})
	}

	return WorkflowDTO{
		ID:          wf.ID,
		BrandID:     brandID,
		Name:        wf.Name,
		Slug:        wf.Slug,
		IsDefault:   wf.IsDefault,
		States:      states,
		Transitions: transitions,
	}
}

// --- Handlers ---

// HandleListWorkflows handles GET /workflows
func (h *WorkflowHandler) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Not authorized", Code: "UNAUTHORIZED"})
		return
	}

	workflows, err := h.workflows.ListWorkflows(r.Context(), claims.TenantID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]WorkflowDTO, 0, len(workflows))
	for _, wf := range workflows {
		response = append(response, toWorkflowDTO(wf))
	}

	WriteList(w, response)
}

// HandleGetWorkflow handles GET /workflows/{workflowID}
func (h *WorkflowHandler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Not authorized", Code: "UNAUTHORIZED"})
		return
	}

	workflowIDStr := chi.URLParam(r, "workflowID")
	workflowID, err := strconv.ParseInt(workflowIDStr, 10, 64)
	if err != nil || workflowID <= 0 {
		v := validation.NewValidator()
		v.Custom("workflowID", false, "Invalid workflow ID")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	wf, err := h.workflows.GetWorkflow(r.Context(), claims.TenantID, workflowID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toWorkflowDTO(wf))
}
