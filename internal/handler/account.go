package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/careportal/internal/auth"
	"github.com/sakif/careportal/internal/service"
)

// maxUploadBytes caps a registration submission, profile picture
// included.
const maxUploadBytes = 5 << 20 // 5 MiB

// AccountHandler serves the public account endpoints: registration,
// login/logout, and the authenticated profile.
//
// Registration and profile edits arrive HTML-form-encoded (multipart
// when a profile picture is attached), matching what the signup and
// profile pages submit. Login also accepts JSON for non-browser clients.
type AccountHandler struct {
	svc    *service.AccountService
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(svc *service.AccountService, tokens *auth.TokenService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, tokens: tokens, logger: logger}
}

// HandleRegister creates a new account from a signup submission.
//
// HTTP: POST /auth/register
// Body: form fields username, user_type, first_name, last_name, email,
// address_line1, city, state, pincode, password1, password2, and an
// optional profile_picture file.
//
// 201 with the new account on success; 400/409 with the per-field error
// map otherwise. Registration does not log the account in — the client
// proceeds to /auth/login.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := parseRegistrationForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "could not parse form submission",
		})
		return
	}

	account, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// loginRequest is the JSON body accepted by HandleLogin.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and establishes a session.
//
// HTTP: POST /auth/login
//
// On success the session JWT is set as an HttpOnly cookie and also
// returned in the body for clients that prefer the Authorization header.
// Every failure gets the same 401 regardless of which credential was
// wrong.
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "bad_request",
				Message: "could not parse request body",
			})
			return
		}
		creds = service.Credentials{Username: req.Username, Password: req.Password}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "bad_request",
				Message: "could not parse form submission",
			})
			return
		}
		creds = service.Credentials{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}
	}

	account, err := h.svc.Login(r.Context(), creds)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(account.ID)
	if err != nil {
		h.logger.Error("login: token generation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("login succeeded",
		slog.String("accountID", account.ID),
		slog.String("username", account.Username),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  account,
	})
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Stateless sessions: "logout" deletes the client-side cookie; the token
// itself stays valid until expiry.
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated account.
//
// HTTP: GET /api/me (RequireAuth)
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	account, err := h.svc.GetByID(r.Context(), accountID)
	if err != nil {
		h.logger.Error("me: account lookup failed", slog.String("accountID", accountID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// HandleUpdateMe applies a self-service profile edit.
//
// HTTP: PUT /api/me (RequireAuth)
// Body: form fields from the profile group; only submitted fields
// change. An attached profile_picture file replaces the current one.
func (h *AccountHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
		return
	}

	upd, err := parseProfileUpdateForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "could not parse form submission",
		})
		return
	}

	account, err := h.svc.UpdateProfile(r.Context(), accountID, upd)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// parseRegistrationForm reads a signup submission, multipart or
// urlencoded.
func parseRegistrationForm(r *http.Request) (service.RegistrationInput, error) {
	picture, err := parseForm(r)
	if err != nil {
		return service.RegistrationInput{}, err
	}

	return service.RegistrationInput{
		Username:       r.PostFormValue("username"),
		UserType:       r.PostFormValue("user_type"),
		FirstName:      r.PostFormValue("first_name"),
		LastName:       r.PostFormValue("last_name"),
		Email:          r.PostFormValue("email"),
		AddressLine1:   r.PostFormValue("address_line1"),
		City:           r.PostFormValue("city"),
		State:          r.PostFormValue("state"),
		Pincode:        r.PostFormValue("pincode"),
		Password1:      r.PostFormValue("password1"),
		Password2:      r.PostFormValue("password2"),
		ProfilePicture: picture,
	}, nil
}

// parseProfileUpdateForm reads a profile edit; absent fields stay nil so
// the service leaves them unchanged.
func parseProfileUpdateForm(r *http.Request) (service.ProfileUpdate, error) {
	picture, err := parseForm(r)
	if err != nil {
		return service.ProfileUpdate{}, err
	}

	upd := service.ProfileUpdate{
		FirstName:      formValue(r, "first_name"),
		LastName:       formValue(r, "last_name"),
		Email:          formValue(r, "email"),
		AddressLine1:   formValue(r, "address_line1"),
		City:           formValue(r, "city"),
		State:          formValue(r, "state"),
		Pincode:        formValue(r, "pincode"),
		UserType:       formValue(r, "user_type"),
		ProfilePicture: picture,
	}
	return upd, nil
}

// parseForm parses the request body (multipart or urlencoded) and
// returns the attached profile picture, if any.
func parseForm(r *http.Request) (*service.PictureUpload, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		file, header, err := r.FormFile("profile_picture")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, nil
			}
			return nil, err
		}
		// The file handle stays open for the duration of the request;
		// net/http cleans up the multipart temp files afterwards.
		return &service.PictureUpload{Filename: header.Filename, Data: file}, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return nil, nil
}

// formValue returns a pointer to the submitted value, or nil when the
// field was not part of the submission at all.
func formValue(r *http.Request, key string) *string {
	values := r.PostForm[key]
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}
