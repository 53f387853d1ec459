package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/careportal/internal/admin"
	"github.com/sakif/careportal/internal/model"
	"github.com/sakif/careportal/internal/repository"
	"github.com/sakif/careportal/internal/service"
)

// AdminHandler serves the operator directory: list, filter, inspect,
// create, edit, and delete accounts. Every route is behind RequireAuth
// and RequireStaff.
type AdminHandler struct {
	svc      *service.AccountService
	registry *admin.Registry
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc *service.AccountService, registry *admin.Registry, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, registry: registry, logger: logger}
}

// AccountResource is the schema of the accounts type in the admin
// directory. The server registers it with the admin registry at startup.
var AccountResource = admin.Resource{
	Name:        "accounts",
	ListColumns: []string{"username", "first_name", "last_name", "email", "user_type", "is_staff"},
	Filters:     []string{"user_type", "is_staff", "is_superuser"},
	Fieldsets: []admin.Fieldset{
		{Label: "Identity", Fields: []string{"username", "is_staff", "is_superuser", "is_active"}},
		{Label: "Additional Info", Fields: []string{"user_type", "profile_picture",
			"address_line1", "city", "state", "pincode"}},
	},
	AddFieldsets: []admin.Fieldset{
		{Label: "Identity", Fields: []string{"username", "password1", "password2",
			"is_staff", "is_superuser", "is_active"}},
		{Label: "Additional Info", Fields: []string{"user_type", "first_name", "last_name",
			"email", "profile_picture", "address_line1", "city", "state", "pincode"}},
	},
}

// HandleResources lists the registered editable types and their schemas.
//
// HTTP: GET /admin/resources
func (h *AdminHandler) HandleResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// adminRow is one line of the directory listing: the declared list
// columns plus the display label and the row's ID for linking.
type adminRow struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	UserType  string `json:"userType"`
	IsStaff   bool   `json:"isStaff"`
}

// HandleList returns the account listing.
//
// HTTP: GET /admin/accounts?user_type=doctor&is_staff=true&limit=25&offset=0
//
// Unknown filter values are rejected rather than silently matching
// nothing.
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts := repository.ListOptions{}
	q := r.URL.Query()

	if v := q.Get("user_type"); v != "" {
		ut := model.UserType(v)
		if !ut.Valid() {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "user_type filter must be one of: patient, doctor",
			})
			return
		}
		opts.Filter.UserType = &ut
	}
	for _, f := range []struct {
		name string
		dest **bool
	}{
		{"is_staff", &opts.Filter.IsStaff},
		{"is_superuser", &opts.Filter.IsSuperuser},
	} {
		if v := q.Get(f.name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Error:   "validation_error",
					Message: f.name + " filter must be true or false",
				})
				return
			}
			*f.dest = &b
		}
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	accounts, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("admin list failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	rows := make([]adminRow, 0, len(accounts))
	for i := range accounts {
		a := &accounts[i]
		rows = append(rows, adminRow{
			ID:        a.ID,
			Label:     a.DisplayLabel(),
			Username:  a.Username,
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Email:     a.Email,
			UserType:  string(a.UserType),
			IsStaff:   a.IsStaff,
		})
	}

	writeJSON(w, http.StatusOK, rows)
}

// HandleGet returns the full record for one account.
//
// HTTP: GET /admin/accounts/{id}
func (h *AdminHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleCreate creates an account through the admin creation form: the
// registration field set plus the identity flags.
//
// HTTP: POST /admin/accounts
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	reg, err := parseRegistrationForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "could not parse form submission",
		})
		return
	}

	in := service.AdminCreateInput{RegistrationInput: reg}
	if v := formValue(r, "is_staff"); v != nil {
		in.IsStaff, _ = strconv.ParseBool(*v)
	}
	if v := formValue(r, "is_superuser"); v != nil {
		in.IsSuperuser, _ = strconv.ParseBool(*v)
	}
	if v := formValue(r, "is_active"); v != nil {
		if b, err := strconv.ParseBool(*v); err == nil {
			in.IsActive = &b
		}
	}

	account, err := h.svc.AdminCreate(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("admin created account",
		slog.String("accountID", account.ID),
		slog.String("username", account.Username),
	)

	writeJSON(w, http.StatusCreated, account)
}

// HandleUpdate applies an operator edit: the profile group plus the
// identity flags.
//
// HTTP: PUT /admin/accounts/{id}
func (h *AdminHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	upd, err := parseProfileUpdateForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "could not parse form submission",
		})
		return
	}

	in := service.AdminUpdateInput{ProfileUpdate: upd}
	for _, f := range []struct {
		name string
		dest **bool
	}{
		{"is_staff", &in.IsStaff},
		{"is_superuser", &in.IsSuperuser},
		{"is_active", &in.IsActive},
	} {
		if v := formValue(r, f.name); v != nil {
			if b, err := strconv.ParseBool(*v); err == nil {
				*f.dest = &b
			}
		}
	}

	account, err := h.svc.AdminUpdate(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// HandleDelete removes an account and its stored profile picture.
//
// HTTP: DELETE /admin/accounts/{id}
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("admin deleted account", slog.String("accountID", id))
	w.WriteHeader(http.StatusNoContent)
}
