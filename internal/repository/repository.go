// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/careportal/internal/model"
)

// ListFilter narrows an account listing. Nil pointer fields mean "no
// filter on this attribute" — the filterable set matches the admin
// directory: user_type, is_staff, is_superuser.
type ListFilter struct {
	UserType    *model.UserType
	IsStaff     *bool
	IsSuperuser *bool
}

// ListOptions carries filtering and pagination for List.
type ListOptions struct {
	Filter ListFilter
	Limit  int
	Offset int
}

// AccountRepository reads and writes Account records.
//
// Create relies on the store's UNIQUE constraints on username and email:
// a duplicate insert returns an apperror conflict naming the offending
// field. GetBy* return apperror.ErrNotFound when no record matches.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	List(ctx context.Context, opts ListOptions) ([]model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, id string) error
}
