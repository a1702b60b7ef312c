// Package auth issues and checks the session tokens that guard meeting routes.
package auth

import (
	"context"

	"github.com/mmynk/nbbang/internal/models"
)

// Authenticator registers and signs in meeting owners.
type Authenticator interface {
	// Register creates an account. The credential format depends on the implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user owning email if credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	ValidateCredential(credential string) error
}
