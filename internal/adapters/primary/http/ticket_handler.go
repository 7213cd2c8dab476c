package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/ticketwell/helpdesk-core/internal/adapters/primary/http/middleware"
	"github.com/ticketwell/helpdesk-core/internal/adapters/primary/validation"
	"github.com/ticketwell/helpdesk-core/internal/auth"
	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

const (
	maxTicketsPerPage = 100
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// TicketHandler handles HTTP requests for tickets
type TicketHandler struct {
	lifecycle    ports.LifecycleService
	audit        ports.AuditRecorder
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(
	lifecycle ports.LifecycleService,
	audit ports.AuditRecorder,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		lifecycle:    lifecycle,
		audit:        audit,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "ticket"),
	}
}

// Router sets up a new chi Router for all ticket-related routes.
func (h *TicketHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)

	// Routes for a specific ticket
	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Post("/transition", h.HandleTransitionTicket)
		r.Get("/audit", h.HandleListTicketAudit)
	})
}

// --- Request/Response DTOs ---

// CreateTicketRequest defines the expected JSON body for creating a ticket
type CreateTicketRequest struct {
	Subject      string  `json:"subject"`
	Description  string  `json:"description"`
	Channel      string  `json:"channel"`
	Priority     string  `json:"priority"`
	WorkflowID   *int64  `json:"workflowId"`
	InitialState string  `json:"initialState"`
	SlaDueAt     *string `json:"slaDueAt"`
	RequesterID  string  `json:"requesterId"`
}

// Validate validates the create ticket request
func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("subject", r.Subject).
		MaxLength("subject", r.Subject, 255)

	v.Required("channel", r.Channel).
		OneOf("channel", r.Channel, []string{"email", "web", "chat", "phone", "api"})

	v.Required("priority", r.Priority).
		OneOf("priority", r.Priority, []string{"low", "normal", "high", "urgent"})

	v.Required("requesterId", r.RequesterID).
		UUID("requesterId", r.RequesterID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TransitionTicketRequest defines the expected JSON body for transitioning
// a ticket to another workflow state.
type TransitionTicketRequest struct {
	TargetState string            `json:"targetState"`
	Comment     string            `json:"comment"`
	Fields      map[string]string `json:"fields"`
}

// Validate validates the transition request
func (r *TransitionTicketRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("targetState", r.TargetState)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TicketDTO defines the JSON response for tickets.
type TicketDTO struct {
	ID                 int64   `json:"id"`
	TenantID           string  `json:"tenantId"`
	BrandID            *string `json:"brandId"`
	Subject            string  `json:"subject"`
	Description        string  `json:"description"`
	RequesterID        string  `json:"requesterId"`
	Channel            string  `json:"channel"`
	Priority           string  `json:"priority"`
	Status             string  `json:"status"`
	WorkflowState      string  `json:"workflowState"`
	WorkflowID         *int64  `json:"workflowId"`
	SlaPolicyID        *int64  `json:"slaPolicyId"`
	FirstResponseDueAt *string `json:"firstResponseDueAt"`
	ResolutionDueAt    *string `json:"resolutionDueAt"`
	SlaDueAt           *string `json:"slaDueAt"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          *string `json:"updatedAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(time.RFC3339)
	return &value
}

func toTicketDTO(ticket *domain.Ticket) TicketDTO {
	var brandID *string
	if ticket.BrandID != nil {
		value := ticket.BrandID.String()
		brandID = &value
	}

	return TicketDTO{
		ID:                 ticket.ID,
		TenantID:           ticket.TenantID.String(),
		BrandID:            brandID,
		Subject:            ticket.Subject,
		Description:        ticket.Description,
		RequesterID:        ticket.RequesterID.String(),
		Channel:            ticket.Channel,
		Priority:           string(ticket.Priority),
		Status:             string(ticket.Status),
		WorkflowState:      ticket.WorkflowState,
		WorkflowID:         ticket.TicketWorkflowID,
		SlaPolicyID:        ticket.SlaPolicyID,
		FirstResponseDueAt: formatTimePtr(ticket.FirstResponseDueAt),
		ResolutionDueAt:    formatTimePtr(ticket.ResolutionDueAt),
		SlaDueAt:           formatTimePtr(ticket.SlaDueAt),
		CreatedAt:          ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          formatTimePtr(ticket.UpdatedAt),
	}
}

func toTicketDTOs(tickets []*domain.Ticket) []TicketDTO {
	response := make([]TicketDTO, 0, len(tickets))
	for _, ticket := range tickets {
		response = append(response, toTicketDTO(ticket))
	}
	return response
}

// AuditEntryDTO defines the JSON response for lifecycle audit entries.
type AuditEntryDTO struct {
	ID                 int64   `json:"id"`
	Action             string  `json:"action"`
	ActorID            *string `json:"actorId"`
	BrandID            *string `json:"brandId,omitempty"`
	WorkflowID         *int64  `json:"workflowId,omitempty"`
	FromState          string  `json:"fromState,omitempty"`
	ToState            string  `json:"toState,omitempty"`
	Comment            string  `json:"comment,omitempty"`
	SlaPolicyID        *int64  `json:"slaPolicyId,omitempty"`
	FirstResponseDueAt *string `json:"firstResponseDueAt,omitempty"`
	ResolutionDueAt    *string `json:"resolutionDueAt,omitempty"`
	CreatedAt          string  `json:"createdAt"`
}

func toAuditEntryDTO(entry *domain.AuditEntry) AuditEntryDTO {
	var actorID *string
	if entry.ActorID != nil {
		value := entry.ActorID.String()
		actorID = &value
	}
	var brandID *string
	if entry.BrandID != nil {
		value := entry.BrandID.String()
		brandID = &value
	}

	return AuditEntryDTO{
		ID:                 entry.ID,
		Action:             string(entry.Action),
		ActorID:            actorID,
		BrandID:            brandID,
		WorkflowID:         entry.WorkflowID,
		FromState:          entry.FromState,
		ToState:            entry.ToState,
		Comment:            entry.Comment,
		SlaPolicyID:        entry.SlaPolicyID,
		FirstResponseDueAt: formatTimePtr(entry.FirstResponseDueAt),
		ResolutionDueAt:    formatTimePtr(entry.ResolutionDueAt),
		CreatedAt:          entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	// Parse pagination
	pagination := validation.ParsePagination(r, maxTicketsPerPage)

	// Parse optional filters
	filter := ports.TicketFilter{
		Status:        validation.ParseStringQueryParam(r, "status"),
		Priority:      validation.ParseStringQueryParam(r, "priority"),
		WorkflowState: validation.ParseStringQueryParam(r, "state"),
		Channel:       validation.ParseStringQueryParam(r, "channel"),
	}

	params := ports.ListTicketsParams{
		TenantID: claims.TenantID,
		Filter:   filter,
		Limit:    pagination.Limit + 1,
		Offset:   pagination.Offset,
	}

	tickets, err := h.lifecycle.ListTickets(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Use simple pagination (without total count for performance)
	WritePaginatedSimple(w, toTicketDTOs(tickets), pagination.Limit, pagination.Offset)
}

// HandleCreateTicket handles POST /tickets
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	requesterID, err := uuid.Parse(req.RequesterID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var slaDueAt *time.Time
	if req.SlaDueAt != nil && *req.SlaDueAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.SlaDueAt)
		if err != nil {
			v := validation.NewValidator()
			v.Custom("slaDueAt", false, "Must be an RFC 3339 timestamp")
			h.errorHandler.Handle(w, r, v.Errors())
			return
		}
		slaDueAt = &parsed
	}

	params := ports.CreateTicketParams{
		TenantID:           claims.TenantID,
		BrandID:            claims.BrandID,
		Subject:            req.Subject,
		Description:        req.Description,
		Channel:            req.Channel,
		Priority:           domain.TicketPriority(req.Priority),
		RequesterID:        requesterID,
		WorkflowID:         req.WorkflowID,
		RequestedStateSlug: req.InitialState,
		SlaDueAt:           slaDueAt,
	}

	ticket, err := h.lifecycle.CreateTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"tenant_id", claims.TenantID,
		"actor_id", claims.ActorID,
	)

	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.lifecycle.GetTicket(r.Context(), claims.TenantID, ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleTransitionTicket handles POST /tickets/{ticketID}/transition
func (h *TicketHandler) HandleTransitionTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[TransitionTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.TransitionTicketParams{
		TenantID:        claims.TenantID,
		TicketID:        ticketID,
		TargetStateSlug: req.TargetState,
		ActorID:         claims.ActorID,
		Comment:         req.Comment,
		Fields:          req.Fields,
	}

	ticket, err := h.lifecycle.TransitionTicket(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket transitioned",
		"ticket_id", ticketID,
		"target_state", req.TargetState,
		"actor_id", claims.ActorID,
	)

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleListTicketAudit handles GET /tickets/{ticketID}/audit
func (h *TicketHandler) HandleListTicketAudit(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	limit := validation.ParseIntQueryParam(r, "limit", defaultAuditLimit)
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := h.audit.ListForTicket(r.Context(), claims.TenantID, ticketID, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]AuditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		response = append(response, toAuditEntryDTO(entry))
	}

	WriteList(w, response)
}

// --- Helper methods ---

// getClaims extracts and validates actor claims from the request context
func (h *TicketHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (int64, error) {
	ticketIDStr := chi.URLParam(r, "ticketID")
	ticketID, err := strconv.ParseInt(ticketIDStr, 10, 64)
	if err != nil || ticketID <= 0 {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return 0, v.Errors()
	}
	return ticketID, nil
}
