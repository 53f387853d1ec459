// Package service contains the business logic layer of the application.
//
// AccountService sits between the HTTP handlers and the repository:
//
//	handlers (HTTP) → AccountService (validation, rules) → AccountRepository (DB)
//	                → PasswordService (bcrypt + policy)
//
// The registration and login operations carry the full form contract:
// structural validation accumulates every field error before returning,
// password checks come next, uniqueness last, and nothing is persisted on
// any failure.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/careportal/internal/apperror"
	"github.com/sakif/careportal/internal/auth"
	"github.com/sakif/careportal/internal/model"
	"github.com/sakif/careportal/internal/repository"
)

// InvalidCredentials is the single message returned for every login
// failure. Using one message for unknown usernames and wrong passwords
// alike keeps the endpoint from confirming which accounts exist.
const InvalidCredentials = "Invalid username or password"

// PictureStore is the slice of the upload store the service needs.
// *storage.Store satisfies it; tests substitute an in-memory fake.
type PictureStore interface {
	Save(originalName string, r io.Reader) (string, error)
	Remove(name string) error
}

// AccountService handles registration, login, and account maintenance.
type AccountService struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	pictures  PictureStore
	logger    *slog.Logger
}

// NewAccountService creates an AccountService with all required
// dependencies. pictures may be nil, in which case profile picture
// uploads are rejected.
func NewAccountService(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	pictures PictureStore,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		passwords: passwords,
		pictures:  pictures,
		logger:    logger,
	}
}

// PictureUpload is an optional profile picture attached to a submission.
// Filename is only consulted for its extension.
type PictureUpload struct {
	Filename string
	Data     io.Reader
}

// RegistrationInput is the untrusted field bag of a signup submission.
type RegistrationInput struct {
	Username       string
	UserType       string
	FirstName      string
	LastName       string
	Email          string
	AddressLine1   string
	City           string
	State          string
	Pincode        string
	Password1      string
	Password2      string
	ProfilePicture *PictureUpload
}

// Register validates a signup submission and creates the account.
//
// Validation runs in three stages, accumulating into one *apperror.FormError
// so the caller can report every problem at once:
//
//  1. structural checks per field (required-ness, length, enum
//     membership, email syntax)
//  2. password checks (the two fields match, strength policy)
//  3. uniqueness of username and email
//
// On success the account is persisted with a bcrypt hash — never the raw
// password — and returned. The profile picture commits atomically with
// the record: it is written first and removed again if the insert fails,
// so either the whole record (including the stored file reference) exists
// or nothing does.
//
// The repository's constraints remain authoritative for uniqueness: two
// submissions racing past stage 3 with the same username or email are
// serialized by the store, and the loser's conflict is folded into the
// returned FormError.
func (s *AccountService) Register(ctx context.Context, in RegistrationInput) (*model.Account, error) {
	return s.register(ctx, in, identityFlags{isActive: true})
}

// identityFlags are the identity switches stamped on a new account.
// Self-registration always creates a plain active account; the admin
// directory may set any combination.
type identityFlags struct {
	isStaff     bool
	isSuperuser bool
	isActive    bool
}

// register is the shared creation pipeline behind Register and
// AdminCreate. The flags go into the single insert, so a failed create
// never leaves a half-flagged row behind.
func (s *AccountService) register(ctx context.Context, in RegistrationInput, flags identityFlags) (*model.Account, error) {
	form := apperror.NewFormError()

	// Stage 1: structural validation.
	s.validateProfileFields(form, profileFields{
		Username:     in.Username,
		UserType:     in.UserType,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		AddressLine1: in.AddressLine1,
		City:         in.City,
		State:        in.State,
		Pincode:      in.Pincode,
	}, true)

	// Stage 2: password validation.
	if in.Password1 == "" {
		form.Add("password1", "password is required")
	}
	if in.Password2 == "" {
		form.Add("password2", "password confirmation is required")
	} else if in.Password1 != "" && in.Password1 != in.Password2 {
		form.Add(apperror.NonFieldErrors, "the two password fields did not match")
	}
	if in.Password1 != "" {
		for _, v := range s.passwords.CheckPolicy(in.Password1, in.Username) {
			form.AddError(v)
		}
	}

	// Stage 3: uniqueness. Skipped for fields that already failed, the
	// messages would be noise.
	if _, hasErr := form.Fields["username"]; !hasErr {
		if _, err := s.accounts.GetByUsername(ctx, in.Username); err == nil {
			form.AddError(apperror.Conflict("username", "an account with this username already exists"))
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: checking username %q: %w", in.Username, err)
		}
	}
	if _, hasErr := form.Fields["email"]; !hasErr {
		if _, err := s.accounts.GetByEmail(ctx, in.Email); err == nil {
			form.AddError(apperror.Conflict("email", "an account with this email already exists"))
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: checking email %q: %w", in.Email, err)
		}
	}

	if form.HasErrors() {
		return nil, form
	}

	hash, err := s.passwords.Hash(in.Password1)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	account := &model.Account{
		Identity: model.Identity{
			Username:     in.Username,
			PasswordHash: hash,
			IsStaff:      flags.isStaff,
			IsSuperuser:  flags.isSuperuser,
			IsActive:     flags.isActive,
		},
		Profile: model.Profile{
			UserType:     model.UserType(in.UserType),
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			AddressLine1: in.AddressLine1,
			City:         in.City,
			State:        in.State,
			Pincode:      in.Pincode,
		},
	}

	account.ProfilePicture = s.storePicture(in.ProfilePicture, form)
	if form.HasErrors() {
		return nil, form
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// The record did not commit; the stored file must not survive it.
		s.discardPicture(account.ProfilePicture)

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && errors.Is(err, apperror.ErrConflict) {
			form.AddError(appErr)
			return nil, form
		}
		return nil, fmt.Errorf("service/account: creating account %q: %w", in.Username, err)
	}

	s.logger.Info("account registered",
		slog.String("accountID", account.ID),
		slog.String("username", account.Username),
		slog.String("userType", string(account.UserType)),
	)

	return account, nil
}

// Credentials is a login submission.
type Credentials struct {
	Username string
	Password string
}

// Login verifies a username/password pair and returns the matching
// active account.
//
// Missing fields fail with a FormError. Every verification failure —
// unknown username, wrong password, deactivated account — returns the
// identical apperror.Unauthorized message so the response never leaks
// which part was wrong. Login establishes no session; that is the
// caller's concern.
func (s *AccountService) Login(ctx context.Context, creds Credentials) (*model.Account, error) {
	form := apperror.NewFormError()
	if strings.TrimSpace(creds.Username) == "" {
		form.Add("username", "username is required")
	}
	if creds.Password == "" {
		form.Add("password", "password is required")
	}
	if form.HasErrors() {
		return nil, form
	}

	account, err := s.accounts.GetByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(InvalidCredentials)
		}
		return nil, fmt.Errorf("service/account: looking up %q: %w", creds.Username, err)
	}

	if err := s.passwords.Verify(account.PasswordHash, creds.Password); err != nil {
		return nil, apperror.Unauthorized(InvalidCredentials)
	}

	if !account.IsActive {
		return nil, apperror.Unauthorized(InvalidCredentials)
	}

	return account, nil
}

// GetByID returns the account for the given internal ID.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, fmt.Errorf("service/account: account ID must not be empty")
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching account %s: %w", id, err)
	}
	return account, nil
}

// ProfileUpdate carries the fields an account holder may change about
// themselves. Nil pointers mean "leave unchanged". Identity flags and
// username are deliberately absent — those are operator actions.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Email          *string
	AddressLine1   *string
	City           *string
	State          *string
	Pincode        *string
	UserType       *string
	ProfilePicture *PictureUpload
}

// UpdateProfile applies a self-service profile edit. Changed fields are
// validated with the same constraints as registration; a changed email
// must remain unique. A new profile picture replaces the old stored file
// only after the record commits.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: fetching account %s: %w", id, err)
	}

	form := apperror.NewFormError()

	if upd.FirstName != nil {
		account.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		account.LastName = *upd.LastName
	}
	if upd.Email != nil && *upd.Email != account.Email {
		if existing, err := s.accounts.GetByEmail(ctx, *upd.Email); err == nil && existing.ID != id {
			form.AddError(apperror.Conflict("email", "an account with this email already exists"))
		} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: checking email %q: %w", *upd.Email, err)
		}
		account.Email = *upd.Email
	}
	if upd.AddressLine1 != nil {
		account.AddressLine1 = *upd.AddressLine1
	}
	if upd.City != nil {
		account.City = *upd.City
	}
	if upd.State != nil {
		account.State = *upd.State
	}
	if upd.Pincode != nil {
		account.Pincode = *upd.Pincode
	}
	if upd.UserType != nil {
		// Whether user_type should be immutable after registration is an
		// open product question; until decided, edits are allowed and
		// validated like any other field.
		account.UserType = model.UserType(*upd.UserType)
	}

	s.validateProfileFields(form, profileFields{
		Username:     account.Username,
		UserType:     string(account.UserType),
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Email:        account.Email,
		AddressLine1: account.AddressLine1,
		City:         account.City,
		State:        account.State,
		Pincode:      account.Pincode,
	}, false)

	// The existing stored file is never touched on a failed edit; only a
	// file saved for this request may be discarded.
	oldPicture := account.ProfilePicture
	newPicture := s.storePicture(upd.ProfilePicture, form)
	if newPicture != "" {
		account.ProfilePicture = newPicture
	}

	if form.HasErrors() {
		s.discardPicture(newPicture)
		return nil, form
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		s.discardPicture(newPicture)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && errors.Is(err, apperror.ErrConflict) {
			form.AddError(appErr)
			return nil, form
		}
		return nil, fmt.Errorf("service/account: updating account %s: %w", id, err)
	}

	if newPicture != "" && oldPicture != "" {
		if err := s.pictures.Remove(oldPicture); err != nil {
			s.logger.Warn("could not remove replaced profile picture",
				slog.String("file", oldPicture),
				slog.String("error", err.Error()),
			)
		}
	}

	return account, nil
}

// Delete removes an account and its stored profile picture. The record
// is deleted first; a picture that cannot be removed afterwards is
// logged, not surfaced — the account is already gone.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/account: fetching account %s: %w", id, err)
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/account: deleting account %s: %w", id, err)
	}

	if account.ProfilePicture != "" && s.pictures != nil {
		if err := s.pictures.Remove(account.ProfilePicture); err != nil {
			s.logger.Warn("could not remove profile picture of deleted account",
				slog.String("accountID", id),
				slog.String("file", account.ProfilePicture),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("account deleted", slog.String("accountID", id))
	return nil
}

// List returns accounts matching the given filters and pagination.
func (s *AccountService) List(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	accounts, err := s.accounts.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing accounts: %w", err)
	}
	return accounts, nil
}

// Listing limits.
const (
	DefaultListLimit = 25
	MaxListLimit     = 100
)

// profileFields groups the validated text fields shared by registration
// and profile edits.
type profileFields struct {
	Username     string
	UserType     string
	FirstName    string
	LastName     string
	Email        string
	AddressLine1 string
	City         string
	State        string
	Pincode      string
}

// validateProfileFields applies the structural constraints from the data
// model, accumulating into form. checkUsername is false for edits, where
// the username is not part of the submission.
func (s *AccountService) validateProfileFields(form *apperror.FormError, f profileFields, checkUsername bool) {
	if checkUsername {
		requireText(form, "username", f.Username, model.MaxUsernameLength)
	}

	if f.UserType == "" {
		form.Add("user_type", "user type is required")
	} else if !model.UserType(f.UserType).Valid() {
		form.Add("user_type", "user type must be one of: patient, doctor")
	}

	requireText(form, "first_name", f.FirstName, model.MaxNameLength)
	requireText(form, "last_name", f.LastName, model.MaxNameLength)
	requireText(form, "address_line1", f.AddressLine1, model.MaxAddressLength)
	requireText(form, "city", f.City, model.MaxNameLength)
	requireText(form, "state", f.State, model.MaxNameLength)
	requireText(form, "pincode", f.Pincode, model.MaxPincodeLength)

	if f.Email == "" {
		form.Add("email", "email is required")
	} else {
		if len(f.Email) > model.MaxEmailLength {
			form.Add("email", fmt.Sprintf("email must be at most %d characters", model.MaxEmailLength))
		}
		if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != f.Email {
			form.Add("email", "enter a valid email address")
		}
	}
}

func requireText(form *apperror.FormError, field, value string, maxLen int) {
	if strings.TrimSpace(value) == "" {
		form.Add(field, strings.ReplaceAll(field, "_", " ")+" is required")
		return
	}
	if len(value) > maxLen {
		form.Add(field, fmt.Sprintf("%s must be at most %d characters",
			strings.ReplaceAll(field, "_", " "), maxLen))
	}
}

// storePicture writes an uploaded picture and returns the stored name,
// or "" when nothing was saved. Store-side rejections (bad extension)
// are reported as a field error; infrastructure failures propagate.
func (s *AccountService) storePicture(upload *PictureUpload, form *apperror.FormError) string {
	if upload == nil {
		return ""
	}
	if s.pictures == nil {
		form.Add("profile_picture", "profile picture uploads are not available")
		return ""
	}

	name, err := s.pictures.Save(upload.Filename, upload.Data)
	if err != nil {
		form.Add("profile_picture", "upload a valid image file (jpg, png, gif, webp)")
		return ""
	}
	return name
}

// discardPicture removes a freshly stored file that no record will
// reference. A blank name or unconfigured store is a no-op.
func (s *AccountService) discardPicture(name string) {
	if name == "" || s.pictures == nil {
		return
	}
	if err := s.pictures.Remove(name); err != nil {
		s.logger.Warn("could not remove unreferenced profile picture",
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
	}
}
