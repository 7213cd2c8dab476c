package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/ticketwell/helpdesk-core/internal/adapters/primary/http/middleware"
	pgadapter "github.com/ticketwell/helpdesk-core/internal/adapters/secondary/postgres"
	"github.com/ticketwell/helpdesk-core/internal/auth"
	"github.com/ticketwell/helpdesk-core/internal/core/mocks"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
	"github.com/ticketwell/helpdesk-core/internal/core/services"
	"github.com/ticketwell/helpdesk-core/internal/core/utils"
)

// seedDefaultWorkflow inserts a tenant-wide default workflow with a
// new -> open -> resolved graph so tickets can be created over HTTP.
func seedDefaultWorkflow(t *testing.T, ctx context.Context, tenantID uuid.UUID) int64 {
	t.Helper()

	var workflowID int64
	err := testPool.QueryRow(ctx,
		`INSERT INTO workflows (tenant_id, name, slug, is_default)
		 VALUES ($1, 'Support', 'support', TRUE) RETURNING id`,
		utils.ToUUID(tenantID)).Scan(&workflowID)
	require.NoError(t, err)

	states := []struct {
		slug       string
		position   int
		isInitial  bool
		isTerminal bool
		entryHook  string
	}{
		{"new", 1, true, false, ""},
		{"open", 2, false, false, ""},
		{"resolved", 3, false, true, "notify_requester"},
	}
	stateIDs := make(map[string]int64, len(states))
	for _, s := range states {
		var id int64
		err := testPool.QueryRow(ctx,
			`INSERT INTO workflow_states (workflow_id, slug, name, position, is_initial, is_terminal, entry_hook)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			workflowID, s.slug, s.slug, s.position, s.isInitial, s.isTerminal, s.entryHook).Scan(&id)
		require.NoError(t, err)
		stateIDs[s.slug] = id
	}

	_, err = testPool.Exec(ctx,
		`INSERT INTO workflow_transitions (workflow_id, from_state_id, to_state_id, requires_comment, guard_hook)
		 VALUES ($1, NULL, $2, FALSE, ''),
		        ($1, $2, $3, FALSE, ''),
		        ($1, $3, $4, TRUE, 'check_resolution')`,
		workflowID, stateIDs["new"], stateIDs["open"], stateIDs["resolved"])
	require.NoError(t, err)

	return workflowID
}

// newTicketRouter wires the full stack against the shared test database.
func newTicketRouter() (*chi.Mux, *auth.TokenManager) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	workflowRepo := pgadapter.NewWorkflowRepository(testPool)
	slaRepo := pgadapter.NewSlaPolicyRepository(testPool)
	ticketRepo := pgadapter.NewTicketRepository(testPool)
	auditRepo := pgadapter.NewAuditRepository(testPool)
	txManager := pgadapter.NewTransactionManager(testPool)

	hooks := services.NewHookRegistry()
	hooks.Register("notify_requester", ports.HookFunc(func(ctx context.Context, input ports.HookInput) error {
		return nil
	}))
	hooks.Register("check_resolution", ports.HookFunc(func(ctx context.Context, input ports.HookInput) error {
		if input.Context.Fields["resolution"] == "" && input.Context.Comment == "" {
			return errors.New("a resolution summary is required")
		}
		return nil
	}))

	workflowService := services.NewWorkflowService(workflowRepo, hooks, auditRepo, logger)
	slaService := services.NewSlaService(slaRepo, auditRepo, logger)
	lifecycleService := services.NewLifecycleService(ticketRepo, workflowService, slaService, txManager, mocks.NewMockEventBroadcaster(), logger)

	ticketHandler := NewTicketHandler(lifecycleService, auditRepo, errorHandler, logger)
	tokenManager := auth.NewTokenManager("test-secret", time.Hour)

	router := chi.NewRouter()
	router.Use(mw.JWTMiddleware(tokenManager))
	router.Route("/tickets", ticketHandler.RegisterRoutes)

	return router, tokenManager
}

func doJSON(t *testing.T, router *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	actorID := uuid.New()
	requesterID := uuid.New()
	workflowID := seedDefaultWorkflow(t, ctx, tenantID)

	router, tokenManager := newTicketRouter()
	token, err := tokenManager.GenerateToken(actorID, tenantID, nil)
	require.NoError(t, err)

	// Create
	recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets", token, CreateTicketRequest{
		Subject:     "Printer on fire",
		Description: "Smoke everywhere",
		Channel:     "email",
		Priority:    "high",
		RequesterID: requesterID.String(),
	})
	require.Equal(t, stdhttp.StatusCreated, recorder.Code, recorder.Body.String())

	var created TicketDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&created))
	assert.Equal(t, tenantID.String(), created.TenantID)
	assert.Equal(t, "new", created.WorkflowState)
	assert.Equal(t, "open", created.Status)
	require.NotNil(t, created.WorkflowID)
	assert.Equal(t, workflowID, *created.WorkflowID)

	ticketPath := "/tickets/" + itoa(created.ID)

	// Fetch it back
	recorder = doJSON(t, router, stdhttp.MethodGet, ticketPath, token, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	// Move it forward
	recorder = doJSON(t, router, stdhttp.MethodPost, ticketPath+"/transition", token, TransitionTicketRequest{
		TargetState: "open",
	})
	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())

	var moved TicketDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&moved))
	assert.Equal(t, "open", moved.WorkflowState)

	// Resolving without a comment is rejected by the edge
	recorder = doJSON(t, router, stdhttp.MethodPost, ticketPath+"/transition", token, TransitionTicketRequest{
		TargetState: "resolved",
	})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, recorder.Code)

	var rejected ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&rejected))
	assert.Equal(t, "COMMENT_REQUIRED", rejected.Code)

	// With a comment the guard and entry hook let it through
	recorder = doJSON(t, router, stdhttp.MethodPost, ticketPath+"/transition", token, TransitionTicketRequest{
		TargetState: "resolved",
		Comment:     "Replaced the fuser unit",
		Fields:      map[string]string{"resolution": "hardware swap"},
	})
	require.Equal(t, stdhttp.StatusOK, recorder.Code, recorder.Body.String())

	var resolved TicketDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resolved))
	assert.Equal(t, "resolved", resolved.WorkflowState)
	assert.Equal(t, "resolved", resolved.Status)

	// The audit trail recorded the journey
	recorder = doJSON(t, router, stdhttp.MethodGet, ticketPath+"/audit", token, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var audit ListResponse[AuditEntryDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&audit))
	require.NotEmpty(t, audit.Data)

	toStates := make([]string, 0, len(audit.Data))
	for _, entry := range audit.Data {
		toStates = append(toStates, entry.ToState)
	}
	assert.Contains(t, toStates, "open")
	assert.Contains(t, toStates, "resolved")
}

func TestCreateTicket_Validation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	seedDefaultWorkflow(t, ctx, tenantID)

	router, tokenManager := newTicketRouter()
	token, err := tokenManager.GenerateToken(uuid.New(), tenantID, nil)
	require.NoError(t, err)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets", token, CreateTicketRequest{
		Subject:     "Bad priority",
		Channel:     "email",
		Priority:    "apocalyptic",
		RequesterID: uuid.NewString(),
	})
	require.Equal(t, stdhttp.StatusBadRequest, recorder.Code)

	var response ValidationErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "VALIDATION_ERROR", response.Code)
	assert.Contains(t, response.Fields, "priority")
}

func TestGetTicket_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	seedDefaultWorkflow(t, ctx, tenantID)

	router, tokenManager := newTicketRouter()
	token, err := tokenManager.GenerateToken(uuid.New(), tenantID, nil)
	require.NoError(t, err)

	recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets", token, CreateTicketRequest{
		Subject:     "Private matter",
		Channel:     "web",
		Priority:    "normal",
		RequesterID: uuid.NewString(),
	})
	require.Equal(t, stdhttp.StatusCreated, recorder.Code)

	var created TicketDTO
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&created))

	foreignToken, err := tokenManager.GenerateToken(uuid.New(), uuid.New(), nil)
	require.NoError(t, err)

	recorder = doJSON(t, router, stdhttp.MethodGet, "/tickets/"+itoa(created.ID), foreignToken, nil)
	require.Equal(t, stdhttp.StatusNotFound, recorder.Code)
}

func TestListTickets_Pagination(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	seedDefaultWorkflow(t, ctx, tenantID)

	router, tokenManager := newTicketRouter()
	token, err := tokenManager.GenerateToken(uuid.New(), tenantID, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		recorder := doJSON(t, router, stdhttp.MethodPost, "/tickets", token, CreateTicketRequest{
			Subject:     "Ticket",
			Channel:     "web",
			Priority:    "normal",
			RequesterID: uuid.NewString(),
		})
		require.Equal(t, stdhttp.StatusCreated, recorder.Code)
	}

	recorder := doJSON(t, router, stdhttp.MethodGet, "/tickets?limit=2", token, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var page PaginatedResponse[TicketDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&page))
	assert.Len(t, page.Data, 2)
	assert.True(t, page.Pagination.HasMore)

	recorder = doJSON(t, router, stdhttp.MethodGet, "/tickets?status=resolved", token, nil)
	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var filtered PaginatedResponse[TicketDTO]
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&filtered))
	assert.Empty(t, filtered.Data)
}

func TestTickets_Unauthorized(t *testing.T) {
	router, _ := newTicketRouter()

	recorder := doJSON(t, router, stdhttp.MethodGet, "/tickets", "", nil)
	require.Equal(t, stdhttp.StatusUnauthorized, recorder.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
