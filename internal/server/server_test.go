package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smallbiznis/invoicenexus/internal/auth/repository"
	authservice "github.com/smallbiznis/invoicenexus/internal/auth/service"
	"github.com/smallbiznis/invoicenexus/internal/auth/session"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	"github.com/smallbiznis/invoicenexus/internal/config"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/gateway/gatewaytest"
	"github.com/smallbiznis/invoicenexus/internal/observability"
	"github.com/smallbiznis/invoicenexus/internal/ratelimit"
	"github.com/smallbiznis/invoicenexus/internal/render"
	"github.com/smallbiznis/invoicenexus/internal/workspace"
)

type harness struct {
	t        *testing.T
	clock    *clock.FakeClock
	engine   *gin.Engine
	faulty   *gatewaytest.Faulty
	registry *workspace.Registry
	cookie   *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw, conn := gatewaytest.NewGateway(t)
	faulty := gatewaytest.NewFaulty(gw)
	fake := clock.NewFakeClock(gatewaytest.Epoch)
	cfg := config.Config{DashboardRecentLimit: 5, NotificationInboxSize: 50}

	repo, sessionRepo := repository.New(conn)
	authsvc := authservice.New(authservice.Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       gatewaytest.NewNode(t),
		Clock:       fake,
	})
	registry := workspace.NewRegistry(workspace.RegistryParams{
		Gateway: faulty,
		Clock:   fake,
		Log:     zap.NewNop(),
		Config:  cfg,
	})

	engine := NewEngine(observability.Config{Environment: "test"})
	NewServer(ServerParams{
		Gin:      engine,
		Cfg:      cfg,
		Authsvc:  authsvc,
		Sessions: session.NewManager(cfg, fake),
		Limiter:  ratelimit.NewLoginLimiter(nil, cfg, zap.NewNop()),
		Registry: registry,
		Renderer: render.NewRenderer(zap.NewNop()),
		Company:  config.NewStaticCompanyHolder(config.DefaultCompany()),
		Clock:    fake,
		Log:      zap.NewNop(),
	})

	return &harness{t: t, clock: fake, engine: engine, faulty: faulty, registry: registry}
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func (h *harness) login() {
	h.t.Helper()

	w := h.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "owner@example.com", "password": "correct-password"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/api/auth/login", gin.H{"email": "owner@example.com", "password": "correct-password"})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			h.cookie = c
		}
	}
	require.NotNil(h.t, h.cookie, "expected session cookie")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	payload, ok := decode(t, w)["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return payload["type"].(string)
}

func employeeBody() gin.H {
	return gin.H{
		"name":    "Ayesha Khan",
		"email":   "ayesha@example.com",
		"address": "12 Mall Road, Lahore",
		"cnic":    "35202-1234567-1",
		"bankDetails": gin.H{
			"accountHolder": "Ayesha Khan",
			"swiftBic":      "HABBPKKA",
			"iban":          "PK36SCBL0000001123456702",
			"bankName":      "HBL",
			"bankAddress":   "Gulberg, Lahore",
		},
	}
}

func invoiceBody(employeeID string) gin.H {
	return gin.H{
		"invoiceNumber": "INV-001",
		"date":          "2024-01-15",
		"dueDate":       "2024-02-14",
		"employeeId":    employeeID,
		"status":        "draft",
		"currency":      "EUR",
		"serviceType":   "Software IT services",
		"items": []gin.H{
			{"description": "Development", "quantity": 10, "unitPrice": "150"},
		},
	}
}

func createEmployee(h *harness) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/employees", employeeBody())
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(h.t, w)["id"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/dashboard", "/api/employees", "/api/invoices", "/api/auth/session"} {
		w := h.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "unauthorized", errorType(t, w), path)
	}

	h.cookie = &http.Cookie{Name: session.DefaultCookieName, Value: "forged"}
	w := h.do(http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupLoginLogout(t *testing.T) {
	h := newHarness(t)
	h.login()
	assert.Equal(t, 1, h.registry.Len())

	w := h.do(http.MethodPost, "/api/auth/signup", gin.H{"email": "OWNER@example.com", "password": "another-password"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "owner@example.com", user["email"])
	assert.NotContains(t, w.Body.String(), "argon2id")

	w = h.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, h.registry.Len())

	w = h.do(http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.cookie = nil

	w := h.do(http.MethodPost, "/api/auth/login", gin.H{"email": "owner@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorType(t, w))
}

func TestEmployeeValidation(t *testing.T) {
	h := newHarness(t)
	h.login()

	body := employeeBody()
	body["name"] = "A"
	body["email"] = "nope"
	w := h.do(http.MethodPost, "/api/employees", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	payload := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, "validation_error", payload["type"])
	messages := map[string]string{}
	for _, raw := range payload["errors"].([]any) {
		e := raw.(map[string]any)
		messages[e["field"].(string)] = e["message"].(string)
	}
	assert.Equal(t, "Name must be at least 2 characters", messages["name"])
	assert.Equal(t, "Please enter a valid email", messages["email"])
}

func TestEmployeeAndInvoiceLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login()
	employeeID := createEmployee(h)

	w := h.do(http.MethodPost, "/api/invoices", invoiceBody(employeeID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	invoiceID := created["id"].(string)
	assert.Equal(t, float64(1500), created["total"])
	assert.Equal(t, "€1500.00", created["formattedTotal"])

	w = h.do(http.MethodGet, "/api/invoices/"+invoiceID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode(t, w)
	assert.Equal(t, "Ayesha Khan", detail["employee"].(map[string]any)["name"])

	w = h.do(http.MethodDelete, "/api/employees/"+employeeID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPatch, "/api/invoices/"+invoiceID+"/status", gin.H{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "paid", decode(t, w)["status"])

	w = h.do(http.MethodGet, "/api/invoices?status=paid&search=inv-0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["invoices"], 1)

	w = h.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode(t, w)
	assert.Equal(t, float64(1), dash["totalInvoices"])
	assert.Equal(t, float64(1), dash["totalEmployees"])

	w = h.do(http.MethodGet, "/api/invoices/"+invoiceID+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="inv-001.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = h.do(http.MethodDelete, "/api/invoices/"+invoiceID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(http.MethodDelete, "/api/employees/"+employeeID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	titles := []string{}
	for _, raw := range decode(t, w)["notifications"].([]any) {
		titles = append(titles, raw.(map[string]any)["title"].(string))
	}
	assert.Contains(t, titles, "Employee Added")
	assert.Contains(t, titles, "Invoice Created")
	assert.Contains(t, titles, "Employee Deleted")
}

func TestUpdateEmployeeUnknownIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodPut, "/api/employees/missing", employeeBody())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorType(t, w))
}

func TestInvoiceValidationAndUnknownEmployee(t *testing.T) {
	h := newHarness(t)
	h.login()

	body := invoiceBody("")
	body["items"] = []gin.H{{"description": "", "quantity": "abc", "unitPrice": -1}}
	w := h.do(http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Quantity must be at least 1")
	assert.Contains(t, w.Body.String(), "Unit price cannot be negative")
	assert.Contains(t, w.Body.String(), "items[0].description")

	w = h.do(http.MethodPost, "/api/invoices", invoiceBody("ghost"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/invoices?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartialWriteIsBadGateway(t *testing.T) {
	h := newHarness(t)
	h.login()
	employeeID := createEmployee(h)

	h.faulty.FailOn("insert_many", gateway.TableInvoiceItems, errors.New("connection reset"))
	w := h.do(http.MethodPost, "/api/invoices", invoiceBody(employeeID))
	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	assert.Equal(t, "partial_write", errorType(t, w))

	w = h.do(http.MethodGet, "/api/notifications", nil)
	assert.Contains(t, w.Body.String(), "invoice saved without items: connection reset")
}

func TestRefreshFailureIsBadGateway(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.faulty.FailOn("list", gateway.TableEmployees, errors.New("boom"))
	w := h.do(http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "remote_error", errorType(t, w))

	h.faulty.Heal()
	w = h.do(http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvoiceDefaultsAndCompany(t *testing.T) {
	h := newHarness(t)
	h.login()

	w := h.do(http.MethodGet, "/api/invoices/defaults", nil)
	require.Equal(t, http.StatusOK, w.Code)
	draft := decode(t, w)
	assert.True(t, strings.HasPrefix(draft["invoiceNumber"].(string), "INV-"))
	assert.Equal(t, "2024-01-15", draft["date"])
	assert.Equal(t, "2024-02-14", draft["dueDate"])
	assert.Equal(t, "0.00", draft["total"])
	assert.Len(t, draft["items"], 1)

	w = h.do(http.MethodGet, "/api/settings/company", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "InvoiceNexus Inc.", decode(t, w)["name"])
}

func itemIDs(t *testing.T, invoice map[string]any) []string {
	t.Helper()
	raw, ok := invoice["items"].([]any)
	require.True(t, ok, "items must be an array")
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	return ids
}

func TestDuplicateItemIDsAreRejectedBeforeAnyWrite(t *testing.T) {
	h := newHarness(t)
	h.login()
	employeeID := createEmployee(h)

	body := invoiceBody(employeeID)
	body["items"] = []gin.H{
		{"id": "dup", "description": "Development", "quantity": 1, "unitPrice": 100},
		{"id": "dup", "description": "Review", "quantity": 1, "unitPrice": 50},
	}
	w := h.do(http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Each item must have a distinct id")

	w = h.do(http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["invoices"])
}

func TestItemIDsOfAnotherInvoiceAreNotReused(t *testing.T) {
	h := newHarness(t)
	h.login()
	employeeID := createEmployee(h)

	w := h.do(http.MethodPost, "/api/invoices", invoiceBody(employeeID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)
	foreign := itemIDs(t, first)[0]

	body := invoiceBody(employeeID)
	body["invoiceNumber"] = "INV-002"
	body["items"] = []gin.H{{"id": foreign, "description": "Support", "quantity": 2, "unitPrice": 40}}
	w = h.do(http.MethodPost, "/api/invoices", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decode(t, w)
	own := itemIDs(t, second)[0]
	assert.NotEqual(t, foreign, own)

	body["items"] = []gin.H{
		{"id": foreign, "description": "Support", "quantity": 3, "unitPrice": 40},
		{"id": own, "description": "Hosting", "quantity": 1, "unitPrice": 10},
	}
	w = h.do(http.MethodPut, "/api/invoices/"+second["id"].(string), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := itemIDs(t, decode(t, w))
	require.Len(t, updated, 2)
	assert.NotEqual(t, foreign, updated[0])
	assert.Equal(t, own, updated[1])

	w = h.do(http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["invoices"])

	w = h.do(http.MethodGet, "/api/invoices/"+first["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{foreign}, itemIDs(t, decode(t, w)))

	w = h.do(http.MethodGet, "/api/invoices/"+second["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	reloaded := decode(t, w)
	assert.Len(t, itemIDs(t, reloaded), 2)
	assert.Equal(t, float64(130), reloaded["total"])
}

func TestExpiredSessionWorkspaceIsSwept(t *testing.T) {
	h := newHarness(t)
	h.login()
	createEmployee(h)
	require.Equal(t, 1, h.registry.Len())

	assert.Zero(t, h.registry.Sweep(context.Background(), h.clock.Now()))

	h.clock.Advance(7*24*time.Hour + time.Minute)
	assert.Equal(t, 1, h.registry.Sweep(context.Background(), h.clock.Now()))
	assert.Zero(t, h.registry.Len())
}
