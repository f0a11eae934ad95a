// Package users declares the user persistence contract and its Postgres,
// MongoDB and in-memory implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/blogauth/internal/server/models"
)

// Repository stores user accounts. Lookups return common.ErrorNotFound when
// nothing matches; Create returns common.ErrorAlreadyExists on a duplicate
// email or username.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
