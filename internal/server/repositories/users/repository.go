// Package users provides storage of user records.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophid/internal/server/models"
)

// Repository is the Identity Store. Email arguments are the lookup-encrypted
// form as stored.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	CountByEmail(ctx context.Context, email string) (int64, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
