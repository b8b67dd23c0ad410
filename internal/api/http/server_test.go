package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-desk/internal/api/http"
	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/service"
)

const cookieName = "session_id"

type ticketBody struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	ReporterName  string  `json:"reporter_name"`
	AssignedAdmin *string `json:"assigned_admin"`
	CreatedAt     *string `json:"created_at"`
	UpdatedAt     *string `json:"updated_at"`
}

type errorsBody struct {
	Errors []string `json:"errors"`
}

type messageBody struct {
	Message string `json:"message"`
}

type sessionBody struct {
	UserName string `json:"user_name"`
	UserRole string `json:"user_role"`
	Token    string `json:"token"`
}

type response struct {
	status  int
	body    []byte
	cookie  string
	headers http.Header
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	t      *testing.T
	app    *fiber.App
	cookie string
	token  string
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return newTestAppWithSessions(t, auth.NewMemorySessionStore())
}

func newTestAppWithSessions(t *testing.T, sessions auth.SessionStore) *fiber.App {
	t.Helper()
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewMemoryTicketRepository(),
		Dispatcher: events.NewInMemoryDispatcher(),
	})
	app, err := httptransport.NewServer(httptransport.ServerDependencies{
		App:        config.AppConfig{Name: "ticket-desk", Version: "test", RequestTimeoutSeconds: 5},
		Session:    config.SessionConfig{CookieName: cookieName, TTLMinutes: 60},
		Logger:     zap.NewNop(),
		Metrics:    observability.NewMetrics("ticket_desk"),
		Tickets:    tickets,
		Identities: service.NewIdentityService(domain.DefaultDirectory()),
		Tokens:     auth.NewTokenManager("test-secret", 15),
		Sessions:   sessions,
		Health:     map[string]handlers.Pinger{},
	})
	require.NoError(t, err)
	return app
}

func newClient(t *testing.T, app *fiber.App) *client {
	return &client{t: t, app: app}
}

func (c *client) do(method, path, contentType, body string) response {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	out := response{status: resp.StatusCode, body: raw, headers: resp.Header}
	for _, cookie := range resp.Cookies() {
		if cookie.Name == cookieName {
			out.cookie = cookie.Value
			c.cookie = cookie.Value
		}
	}
	return out
}

func (c *client) json(method, path, body string) response {
	c.t.Helper()
	return c.do(method, path, fiber.MIMEApplicationJSON, body)
}

func (c *client) form(path string, values url.Values) response {
	c.t.Helper()
	return c.do(http.MethodPost, path, fiber.MIMEApplicationForm, values.Encode())
}

func (c *client) actAs(name, role string) sessionBody {
	c.t.Helper()
	resp := c.json(http.MethodPost, "/api/session", `{"user_name":"`+name+`","user_role":"`+role+`"}`)
	require.Equal(c.t, http.StatusOK, resp.status, string(resp.body))
	var session sessionBody
	resp.decode(c.t, &session)
	return session
}

func (c *client) createTicket(title string) ticketBody {
	c.t.Helper()
	resp := c.json(http.MethodPost, "/api/tickets", `{"title":"`+title+`","description":"Details","priority":"high"}`)
	require.Equal(c.t, http.StatusCreated, resp.status, string(resp.body))
	var ticket ticketBody
	resp.decode(c.t, &ticket)
	return ticket
}

func ticketPath(id int64, suffix string) string {
	return "/api/tickets/" + strconv.FormatInt(id, 10) + suffix
}

func TestCreateTicketAsDefaultReporter(t *testing.T) {
	c := newClient(t, newTestApp(t))

	ticket := c.createTicket("Printer jammed")
	assert.NotZero(t, ticket.ID)
	assert.Equal(t, "Printer jammed", ticket.Title)
	assert.Equal(t, "high", ticket.Priority)
	assert.Equal(t, "open", ticket.Status)
	assert.Equal(t, "Alice", ticket.ReporterName)
	assert.Nil(t, ticket.AssignedAdmin)
	require.NotNil(t, ticket.CreatedAt)
	require.NotNil(t, ticket.UpdatedAt)

	resp := c.json(http.MethodGet, "/api/tickets", "")
	require.Equal(t, http.StatusOK, resp.status)
	var list []ticketBody
	resp.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, ticket.ID, list[0].ID)
}

func TestCreateTicketPayloadErrors(t *testing.T) {
	c := newClient(t, newTestApp(t))

	for _, body := range []string{"", "{}", "not json"} {
		resp := c.json(http.MethodPost, "/api/tickets", body)
		require.Equal(t, http.StatusBadRequest, resp.status, body)
		var errs errorsBody
		resp.decode(t, &errs)
		assert.Equal(t, []string{"No data provided"}, errs.Errors)
	}

	resp := c.json(http.MethodPost, "/api/tickets", `{"title":"ab","description":"","priority":"urgent"}`)
	require.Equal(t, http.StatusBadRequest, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{
		"Title must be between 3 and 120 characters",
		"Description is required",
		"Priority must be one of: low, medium, high",
	}, errs.Errors)
}

func TestCreateTicketForbiddenForAdmin(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.actAs("Admin1", "Admin")

	resp := c.json(http.MethodPost, "/api/tickets", `{"title":"abc","description":"d","priority":"low"}`)
	require.Equal(t, http.StatusForbidden, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Only reporters can create tickets"}, errs.Errors)

	list := c.json(http.MethodGet, "/api/tickets", "")
	assert.JSONEq(t, "[]", string(list.body))
}

func TestSessionSwitchesIdentity(t *testing.T) {
	c := newClient(t, newTestApp(t))

	resp := c.json(http.MethodGet, "/api/session", "")
	var current sessionBody
	resp.decode(t, &current)
	assert.Equal(t, "Alice", current.UserName)
	assert.Equal(t, "Reporter", current.UserRole)

	switched := c.actAs("Bob", "Admin")
	assert.Equal(t, "Admin1", switched.UserName)
	assert.Equal(t, "Admin", switched.UserRole)
	assert.NotEmpty(t, switched.Token)
	assert.NotEmpty(t, c.cookie)

	resp = c.json(http.MethodGet, "/api/session", "")
	resp.decode(t, &current)
	assert.Equal(t, "Admin1", current.UserName)
	assert.Equal(t, "Admin", current.UserRole)

	resp = c.json(http.MethodPost, "/api/session", `{"user_name":"Alice","user_role":"Owner"}`)
	require.Equal(t, http.StatusBadRequest, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Invalid user or role"}, errs.Errors)

	resp = c.json(http.MethodGet, "/api/session", "")
	resp.decode(t, &current)
	assert.Equal(t, "Admin1", current.UserName)
}

func TestAssignSelfFlow(t *testing.T) {
	app := newTestApp(t)
	reporter := newClient(t, app)
	ticket := reporter.createTicket("Laptop")

	resp := reporter.json(http.MethodPatch, ticketPath(ticket.ID, "/assign-self"), "")
	require.Equal(t, http.StatusForbidden, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Only admins can assign tickets"}, errs.Errors)

	first := newClient(t, app)
	first.actAs("Admin1", "Admin")
	resp = first.json(http.MethodPatch, ticketPath(ticket.ID, "/assign-self"), "")
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	var assigned ticketBody
	resp.decode(t, &assigned)
	require.NotNil(t, assigned.AssignedAdmin)
	assert.Equal(t, "Admin1", *assigned.AssignedAdmin)

	// a second admin authenticates with a bearer token instead of a cookie
	second := newClient(t, app)
	second.token = second.actAs("Admin2", "Admin").Token
	second.cookie = ""
	resp = second.json(http.MethodPatch, ticketPath(ticket.ID, "/assign-self"), "")
	require.Equal(t, http.StatusBadRequest, resp.status)
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Ticket is already assigned"}, errs.Errors)

	resp = second.json(http.MethodGet, "/api/tickets?assigned_admin=Admin1", "")
	var list []ticketBody
	resp.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Admin1", *list[0].AssignedAdmin)
}

func TestUpdateStatusFlow(t *testing.T) {
	app := newTestApp(t)
	reporter := newClient(t, app)
	ticket := reporter.createTicket("Mailbox full")

	resp := reporter.json(http.MethodPatch, ticketPath(ticket.ID, "/status"), `{"status":"closed"}`)
	require.Equal(t, http.StatusForbidden, resp.status)

	admin := newClient(t, app)
	admin.actAs("Admin2", "Admin")

	cases := []struct {
		body    string
		message string
	}{
		{body: ``, message: "Status is required"},
		{body: `{"priority":"low"}`, message: "Status is required"},
		{body: `{"status":"resolved"}`, message: "Status must be one of: open, in_progress, closed"},
		{body: `{"status":null}`, message: "Status must be one of: open, in_progress, closed"},
		{body: `{"status":3}`, message: "Status must be one of: open, in_progress, closed"},
	}
	for _, tc := range cases {
		resp = admin.json(http.MethodPatch, ticketPath(ticket.ID, "/status"), tc.body)
		require.Equal(t, http.StatusBadRequest, resp.status, tc.body)
		var errs errorsBody
		resp.decode(t, &errs)
		assert.Equal(t, []string{tc.message}, errs.Errors, tc.body)
	}

	resp = admin.json(http.MethodPatch, ticketPath(ticket.ID, "/status"), `{"status":"closed"}`)
	require.Equal(t, http.StatusOK, resp.status)
	var updated ticketBody
	resp.decode(t, &updated)
	assert.Equal(t, "closed", updated.Status)

	resp = admin.json(http.MethodPatch, ticketPath(ticket.ID, "/status"), `{"status":"open"}`)
	require.Equal(t, http.StatusOK, resp.status)

	resp = admin.json(http.MethodGet, "/api/tickets/stats", "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.JSONEq(t, `{"open":1,"in_progress":0,"closed":0}`, string(resp.body))
}

func TestMissingTicketsAreNotFound(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.actAs("Admin1", "Admin")

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/tickets/999"},
		{http.MethodGet, "/api/tickets/abc"},
		{http.MethodPatch, "/api/tickets/999/assign-self"},
		{http.MethodPatch, "/api/tickets/999/status"},
		{http.MethodDelete, "/api/tickets/999"},
		{http.MethodGet, "/api/nowhere"},
	} {
		resp := c.json(req.method, req.path, `{"status":"closed"}`)
		require.Equal(t, http.StatusNotFound, resp.status, req.path)
		var msg messageBody
		resp.decode(t, &msg)
		assert.Equal(t, "Resource not found", msg.Message)
	}
}

func TestDeleteTicket(t *testing.T) {
	c := newClient(t, newTestApp(t))
	ticket := c.createTicket("Remove me")

	resp := c.json(http.MethodDelete, ticketPath(ticket.ID, ""), "")
	require.Equal(t, http.StatusOK, resp.status)
	var msg messageBody
	resp.decode(t, &msg)
	assert.Equal(t, "Ticket deleted successfully", msg.Message)

	resp = c.json(http.MethodGet, ticketPath(ticket.ID, ""), "")
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestInvalidBearerToken(t *testing.T) {
	c := newClient(t, newTestApp(t))
	c.token = "forged"

	resp := c.json(http.MethodGet, "/api/tickets", "")
	require.Equal(t, http.StatusUnauthorized, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Invalid token"}, errs.Errors)
}

func TestPagesGuardAndFlash(t *testing.T) {
	c := newClient(t, newTestApp(t))

	resp := c.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), "Acting as Alice (Reporter)")

	resp = c.do(http.MethodGet, "/admin", "", "")
	require.Equal(t, http.StatusFound, resp.status)
	assert.Equal(t, "/", resp.headers.Get("Location"))

	resp = c.do(http.MethodGet, "/", "", "")
	assert.Contains(t, string(resp.body), "Only admins can access admin dashboard")

	// flashes are shown once
	resp = c.do(http.MethodGet, "/", "", "")
	assert.NotContains(t, string(resp.body), "Only admins can access admin dashboard")

	resp = c.form("/set_role", url.Values{"user_name": {"Admin2"}, "user_role": {"Admin"}})
	require.Equal(t, http.StatusFound, resp.status)

	resp = c.do(http.MethodGet, "/new_ticket", "", "")
	require.Equal(t, http.StatusFound, resp.status)
	resp = c.do(http.MethodGet, "/", "", "")
	assert.Contains(t, string(resp.body), "Only reporters can create tickets")
	assert.Contains(t, string(resp.body), "Acting as Admin2 (Admin)")

	resp = c.do(http.MethodGet, "/admin", "", "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), "Admin dashboard")
}

func TestPageFormsRedirectWithFlash(t *testing.T) {
	c := newClient(t, newTestApp(t))

	resp := c.form("/tickets", url.Values{"title": {"ab"}, "description": {"x"}, "priority": {"low"}})
	require.Equal(t, http.StatusFound, resp.status)
	assert.Equal(t, "/new_ticket", resp.headers.Get("Location"))

	resp = c.do(http.MethodGet, "/new_ticket", "", "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), "Title must be between 3 and 120 characters")

	resp = c.form("/tickets", url.Values{"title": {"Broken chair"}, "description": {"Wobbles"}, "priority": {"low"}})
	require.Equal(t, http.StatusFound, resp.status)
	assert.Equal(t, "/", resp.headers.Get("Location"))

	resp = c.do(http.MethodGet, "/", "", "")
	body := string(resp.body)
	assert.Contains(t, body, "Ticket created successfully")
	assert.Contains(t, body, "Broken chair")

	resp = c.form("/tickets/abc/delete", url.Values{})
	require.Equal(t, http.StatusFound, resp.status)
	resp = c.do(http.MethodGet, "/", "", "")
	assert.Contains(t, string(resp.body), "Ticket not found")

	resp = c.do(http.MethodGet, "/missing-page", "", "")
	require.Equal(t, http.StatusFound, resp.status)
	resp = c.do(http.MethodGet, "/", "", "")
	assert.Contains(t, string(resp.body), "Page not found")
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t, newTestApp(t))

	resp := c.do(http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), `"status":"alive"`)

	resp = c.do(http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, resp.status)

	c.json(http.MethodGet, "/api/tickets", "")
	resp = c.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), "ticket_desk_http_requests_total")
}

func TestWrongMethodIsNotAllowed(t *testing.T) {
	c := newClient(t, newTestApp(t))
	ticket := c.createTicket("Method check")

	resp := c.json(http.MethodGet, ticketPath(ticket.ID, "/assign-self"), "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Method not allowed"}, errs.Errors)
}

func TestFormValuesDoNotChangeAfterRequest(t *testing.T) {
	app := newTestApp(t)
	reporter := newClient(t, app)

	resp := reporter.form("/tickets", url.Values{
		"title":       {"Keyboard sticks"},
		"description": {"Spilled coffee on it"},
		"priority":    {"low"},
	})
	require.Equal(t, http.StatusFound, resp.status)

	switcher := newClient(t, app)
	resp = switcher.form("/set_role", url.Values{"user_name": {"Bob"}, "user_role": {"Reporter"}})
	require.Equal(t, http.StatusFound, resp.status)

	// an admin's form posts are rejected but still parsed
	noise := newClient(t, app)
	for i := 0; i < 20; i++ {
		noise.form("/set_role", url.Values{"user_name": {"Admin2-and-more"}, "user_role": {"Admin"}})
		noise.form("/tickets", url.Values{
			"title":       {"XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"},
			"description": {"YYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYYY"},
			"priority":    {"high"},
		})
	}

	resp = reporter.json(http.MethodGet, "/api/tickets", "")
	var list []ticketBody
	resp.decode(t, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Keyboard sticks", list[0].Title)
	assert.Equal(t, "Spilled coffee on it", list[0].Description)
	assert.Equal(t, "low", list[0].Priority)
	assert.Equal(t, "Alice", list[0].ReporterName)

	resp = switcher.json(http.MethodGet, "/api/session", "")
	var current sessionBody
	resp.decode(t, &current)
	assert.Equal(t, "Bob", current.UserName)
	assert.Equal(t, "Reporter", current.UserRole)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Load(ctx context.Context, id string) (*auth.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockSessionStore) Save(ctx context.Context, session *auth.Session, ttl time.Duration) error {
	args := m.Called(ctx, session, ttl)
	return args.Error(0)
}

func TestSessionSaveFailureIsReported(t *testing.T) {
	store := new(MockSessionStore)
	store.On("Save", mock.Anything, mock.Anything, time.Hour).Return(errors.New("dial tcp 127.0.0.1:1: connection refused"))
	c := newClient(t, newTestAppWithSessions(t, store))

	resp := c.form("/set_role", url.Values{"user_name": {"Admin2"}, "user_role": {"Admin"}})
	assert.Equal(t, http.StatusInternalServerError, resp.status)
	assert.Empty(t, resp.headers.Get("Location"))
	assert.Empty(t, c.cookie)

	resp = c.json(http.MethodPost, "/api/session", `{"user_name":"Admin2","user_role":"Admin"}`)
	require.Equal(t, http.StatusInternalServerError, resp.status)
	var errs errorsBody
	resp.decode(t, &errs)
	assert.Equal(t, []string{"Internal server error"}, errs.Errors)
	assert.Empty(t, c.cookie)

	// reads that leave the session untouched never hit the store
	resp = c.json(http.MethodGet, "/api/tickets", "")
	assert.Equal(t, http.StatusOK, resp.status)
	store.AssertNumberOfCalls(t, "Save", 2)
}
