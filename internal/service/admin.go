package service

import (
	"context"
	"fmt"

	"github.com/sakif/careportal/internal/model"
)

// AdminCreateInput is the admin directory's creation form: the same
// field bag as registration plus the operator-only identity flags.
type AdminCreateInput struct {
	RegistrationInput
	IsStaff     bool
	IsSuperuser bool
	IsActive    *bool // nil defaults to active
}

// AdminCreate creates an account on behalf of an operator. Validation is
// identical to self-registration; the flags go into the same single
// insert, so the record exists with its final flags or not at all.
func (s *AccountService) AdminCreate(ctx context.Context, in AdminCreateInput) (*model.Account, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return s.register(ctx, in.RegistrationInput, identityFlags{
		isStaff:     in.IsStaff,
		isSuperuser: in.IsSuperuser,
		isActive:    active,
	})
}

// AdminUpdateInput is the admin directory's edit form: the profile group
// plus the identity flags. Nil pointers leave fields unchanged.
type AdminUpdateInput struct {
	ProfileUpdate
	IsStaff     *bool
	IsSuperuser *bool
	IsActive    *bool
}

// AdminUpdate applies an operator edit to an account.
func (s *AccountService) AdminUpdate(ctx context.Context, id string, in AdminUpdateInput) (*model.Account, error) {
	account, err := s.UpdateProfile(ctx, id, in.ProfileUpdate)
	if err != nil {
		return nil, err
	}

	if in.IsStaff == nil && in.IsSuperuser == nil && in.IsActive == nil {
		return account, nil
	}

	if in.IsStaff != nil {
		account.IsStaff = *in.IsStaff
	}
	if in.IsSuperuser != nil {
		account.IsSuperuser = *in.IsSuperuser
	}
	if in.IsActive != nil {
		account.IsActive = *in.IsActive
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("service/account: applying flags to %s: %w", id, err)
	}

	return account, nil
}
