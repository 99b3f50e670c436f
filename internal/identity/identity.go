// Package identity is the boundary to the external identity provider. It
// turns credentials into an Identity and creates or links provider accounts.
package identity

import (
	"context"
	"net/http"

	"github.com/abrezinsky/pizzarate/internal/errors"
)

// Identity is what the provider knows about the caller
type Identity struct {
	UID         string   `json:"uid"`
	IsAnonymous bool     `json:"is_anonymous"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Providers   []string `json:"providers,omitempty"`

	// PreviousUID is set when the provider replaced an anonymous uid during linking
	PreviousUID string `json:"previous_uid,omitempty"`
}

// LinkRequest carries the permanent credential to attach to an anonymous account
type LinkRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// Provider is implemented by identity backends
type Provider interface {
	// Verify validates a bearer credential
	Verify(ctx context.Context, token string) (Identity, error)
	// CreateAnonymous registers a guest account and returns a credential the
	// client can sign in with
	CreateAnonymous(ctx context.Context) (uid, token string, err error)
	// Link attaches a permanent credential to uid
	Link(ctx context.Context, uid string, req LinkRequest) (Identity, error)
}

// RequestVerifier is implemented by providers that read the identity straight
// from request headers instead of a bearer token
type RequestVerifier interface {
	VerifyRequest(r *http.Request) (Identity, bool, error)
}

// Validate checks the fields every link request needs
func (r LinkRequest) Validate() error {
	if r.Email == "" {
		return errors.Validation("email is required")
	}
	if len(r.Password) < 6 {
		return errors.Validation("password must be at least 6 characters")
	}
	return nil
}

func authError(code errors.AuthCode, msg string, err error) error {
	return errors.Auth(code, msg, err)
}
