package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/ticketwell/helpdesk-core/internal/adapters/primary/http/middleware"
	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// SlaHandler exposes read-only SLA policy configuration.
type SlaHandler struct {
	policies     ports.SlaQueryService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSlaHandler creates a new SLA handler
func NewSlaHandler(policies ports.SlaQueryService, errorHandler *ErrorHandler, logger *slog.Logger) *SlaHandler {
	return &SlaHandler{
		policies:     policies,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "sla"),
	}
}

// Router sets up a new chi Router for SLA policy routes.
func (h *SlaHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.HandleListPolicies)
	return r
}

// --- Response DTOs ---

// SlaTargetDTO defines the JSON response for a channel/priority target.
type SlaTargetDTO struct {
	Channel              string `json:"channel"`
	Priority             string `json:"priority"`
	FirstResponseMinutes *int   `json:"firstResponseMinutes"`
	ResolutionMinutes    *int   `json:"resolutionMinutes"`
	UseBusinessHours     *bool  `json:"useBusinessHours"`
}

// SlaPolicyDTO defines the JSON response for an SLA policy.
type SlaPolicyDTO struct {
	ID                          int64                         `json:"id"`
	BrandID                     *string                       `json:"brandId"`
	Name                        string                        `json:"name"`
	Slug                        string                        `json:"slug"`
	Timezone                    string                        `json:"timezone"`
	BusinessHours               []domain.BusinessHoursSegment `json:"businessHours"`
	HolidayExceptions           []string                      `json:"holidayExceptions"`
	DefaultFirstResponseMinutes *int                          `json:"defaultFirstResponseMinutes"`
	DefaultResolutionMinutes    *int                          `json:"defaultResolutionMinutes"`
	EnforceBusinessHours        bool                          `json:"enforceBusinessHours"`
	Targets                     []SlaTargetDTO                `json:"targets"`
}

func toSlaPolicyDTO(policy *domain.SlaPolicy) SlaPolicyDTO {
	var brandID *string
	if policy.BrandID != nil {
		value := policy.BrandID.String()
		brandID = &value
	}

	targets := make([]SlaTargetDTO, 0, len(policy.Targets))
	for _, target := range policy.Targets {
		targets = append(targets, SlaTargetDTO{
			Channel:              target.Channel,
			Priority:             target.Priority,
			FirstResponseMinutes: target.FirstResponseMinutes,
			ResolutionMinutes:    target.ResolutionMinutes,
			UseBusinessHours:     target.UseBusinessHours,
		})
	}

	return SlaPolicyDTO{
		ID:                          policy.ID,
		BrandID:                     brandID,
		Name:                        policy.Name,
		Slug:                        policy.Slug,
		Timezone:                    policy.Timezone,
		BusinessHours:               policy.BusinessHours,
		HolidayExceptions:           policy.HolidayExceptions,
		DefaultFirstResponseMinutes: policy.DefaultFirstResponseMinutes,
		DefaultResolutionMinutes:    policy.DefaultResolutionMinutes,
		EnforceBusinessHours:        policy.EnforceBusinessHours,
		Targets:                     targets,
	}
}

// --- Handlers ---

// HandleListPolicies handles GET /sla-policies
func (h *SlaHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Not authorized", Code: "UNAUTHORIZED"})
		return
	}

	policies, err := h.policies.ListPolicies(r.Context(), claims.TenantID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]SlaPolicyDTO, 0, len(policies))
	for _, policy := range policies {
		response = append(response, toSlaPolicyDTO(policy))
	}

	WriteList(w, response)
}
