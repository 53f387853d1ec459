package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/careportal/internal/admin"
	"github.com/sakif/careportal/internal/auth"
	"github.com/sakif/careportal/internal/handler"
	"github.com/sakif/careportal/internal/model"
	"github.com/sakif/careportal/internal/service"
)

// adminEnv routes admin requests through a chi router so URL params and
// the auth middleware behave as they do in the real server.
type adminEnv struct {
	*testEnv
	router http.Handler
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	env := newTestEnv(t)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	registry := admin.NewRegistry()
	if err := registry.Register(handler.AccountResource); err != nil {
		t.Fatalf("registering account resource: %v", err)
	}
	h := handler.NewAdminHandler(env.svc, registry, logger)

	r := chi.NewRouter()
	r.Use(auth.RequireAuth(env.tokens))
	r.Use(auth.RequireStaff(env.db))
	r.Get("/admin/resources", h.HandleResources)
	r.Get("/admin/accounts", h.HandleList)
	r.Post("/admin/accounts", h.HandleCreate)
	r.Get("/admin/accounts/{id}", h.HandleGet)
	r.Put("/admin/accounts/{id}", h.HandleUpdate)
	r.Delete("/admin/accounts/{id}", h.HandleDelete)

	return &adminEnv{testEnv: env, router: r}
}

// seedAccount registers an account directly through the service.
func (e *adminEnv) seedAccount(t *testing.T, username, email string, userType model.UserType) *model.Account {
	t.Helper()
	account, err := e.svc.Register(context.Background(), service.RegistrationInput{
		Username:     username,
		UserType:     string(userType),
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		Pincode:      "62704",
		Password1:    "Secret123!",
		Password2:    "Secret123!",
	})
	if err != nil {
		t.Fatalf("seeding account %q: %v", username, err)
	}
	return account
}

// seedStaff promotes a freshly seeded account to staff and returns a
// session token for it.
func (e *adminEnv) seedStaff(t *testing.T) string {
	t.Helper()
	account := e.seedAccount(t, "staffer", "staffer@example.com", model.UserTypeDoctor)
	account.IsStaff = true
	if err := e.db.Update(context.Background(), account); err != nil {
		t.Fatalf("promoting staff account: %v", err)
	}
	token, err := e.tokens.Generate(account.ID)
	if err != nil {
		t.Fatalf("generating staff token: %v", err)
	}
	return token
}

func (e *adminEnv) do(method, target, token string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestAdminAccess(t *testing.T) {
	env := newAdminEnv(t)
	staffToken := env.seedStaff(t)

	patient := env.seedAccount(t, "bob", "bob@example.com", model.UserTypePatient)
	patientToken, err := env.tokens.Generate(patient.ID)
	assert.NoError(t, err)

	t.Run("no token is unauthorized", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("non-staff account is forbidden", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts", patientToken, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("staff account gets through", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts", staffToken, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestAdminResources(t *testing.T) {
	env := newAdminEnv(t)
	token := env.seedStaff(t)

	rr := env.do(http.MethodGet, "/admin/resources", token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resources []admin.Resource
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resources))
	if assert.Len(t, resources, 1) {
		assert.Equal(t, "accounts", resources[0].Name)
		assert.Contains(t, resources[0].Filters, "user_type")
	}
}

func TestAdminList(t *testing.T) {
	env := newAdminEnv(t)
	token := env.seedStaff(t)

	env.seedAccount(t, "pat1", "pat1@example.com", model.UserTypePatient)
	env.seedAccount(t, "pat2", "pat2@example.com", model.UserTypePatient)
	env.seedAccount(t, "doc1", "doc1@example.com", model.UserTypeDoctor)

	decode := func(rr *httptest.ResponseRecorder) []map[string]any {
		var rows []map[string]any
		if err := json.NewDecoder(rr.Body).Decode(&rows); err != nil {
			t.Fatalf("decoding listing: %v", err)
		}
		return rows
	}

	t.Run("unfiltered listing includes every account", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts", token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		// staffer + pat1 + pat2 + doc1
		assert.Len(t, decode(rr), 4)
	})

	t.Run("user_type filter narrows the listing", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts?user_type=patient", token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		rows := decode(rr)
		assert.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, "patient", row["userType"])
		}
	})

	t.Run("is_staff filter finds the staffer", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts?is_staff=true", token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		rows := decode(rr)
		if assert.Len(t, rows, 1) {
			assert.Equal(t, "staffer", rows[0]["username"])
		}
	})

	t.Run("rows carry the display label", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts?user_type=doctor&is_staff=false", token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		rows := decode(rr)
		if assert.Len(t, rows, 1) {
			assert.Equal(t, "Test User (doctor)", rows[0]["label"])
		}
	})

	t.Run("unknown user_type filter is rejected", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts?user_type=nurse", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed is_staff filter is rejected", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts?is_staff=maybe", token, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAdminGet(t *testing.T) {
	env := newAdminEnv(t)
	token := env.seedStaff(t)
	account := env.seedAccount(t, "bob", "bob@example.com", model.UserTypePatient)

	t.Run("existing account", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts/"+account.ID, token, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var got model.Account
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, "bob", got.Username)
	})

	t.Run("unknown account", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/admin/accounts/does-not-exist", token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAdminCreate(t *testing.T) {
	env := newAdminEnv(t)
	token := env.seedStaff(t)

	form := registrationForm()
	form.Set("is_staff", "true")
	rr := env.do(http.MethodPost, "/admin/accounts", token, form)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var created model.Account
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.Equal(t, "alice", created.Username)
	assert.True(t, created.IsStaff)
	assert.False(t, created.IsSuperuser)
}

func TestAdminUpdate(t *testing.T) {
	env := newAdminEnv(t)
	token := env.seedStaff(t)
	account := env.seedAccount(t, "bob", "bob@example.com", model.UserTypePatient)

	form := url.Values{
		"city":      {"Chicago"},
		"is_active": {"false"},
	}
	rr := env.do(http.MethodPut, "/admin/accounts/"+account.ID, token, form)
	assert.Equal(t, http.StatusOK, rr.Code)

	var got model.Account
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "Chicago", got.City)
	assert.False(t, got.IsActive)
	assert.Equal(t, "bob@example.com", got.Email, "unsubmitted fields stay unchanged")
}

func TestAdminDelete(t *testing.T) {
	env := newAdminEnv(t)
	token := env.seedStaff(t)
	account := env.seedAccount(t, "bob", "bob@example.com", model.UserTypePatient)

	rr := env.do(http.MethodDelete, "/admin/accounts/"+account.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(http.MethodGet, "/admin/accounts/"+account.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
