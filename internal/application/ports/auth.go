package ports

import (
	"context"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
)

type AuthContext interface {
	// Caller returns errors.ErrUnauthorized when the request carries no identity.
	Caller(ctx context.Context) (*user.Caller, error)
}
