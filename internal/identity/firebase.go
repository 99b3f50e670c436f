package identity

import (
	"context"
	"fmt"
	"slices"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/abrezinsky/pizzarate/internal/errors"
)

const (
	signInAnonymous  = "anonymous"
	providerPassword = "password"
)

// authClient is the subset of *auth.Client used here
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	CustomToken(ctx context.Context, uid string) (string, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

var _ authClient = (*auth.Client)(nil)

// FirebaseProvider verifies Firebase ID tokens and manages Firebase Auth users
type FirebaseProvider struct {
	client     authClient
	isNotFound func(error) bool
}

// NewFirebaseApp initializes the Firebase Admin SDK. An empty credentials
// path falls back to application default credentials.
func NewFirebaseApp(ctx context.Context, credentialsPath, projectID string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// NewFirebaseProvider creates a provider backed by app's Auth client
func NewFirebaseProvider(ctx context.Context, app *firebase.App) (*FirebaseProvider, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return newFirebaseProviderWithClient(client), nil
}

func newFirebaseProviderWithClient(client authClient) *FirebaseProvider {
	return &FirebaseProvider{client: client, isNotFound: auth.IsUserNotFound}
}

func (p *FirebaseProvider) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, authError(errors.AuthInvalidToken, "missing authorization token", nil)
	}

	decoded, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, authError(errors.AuthInvalidToken, "invalid token", err)
	}

	id := Identity{
		UID:         decoded.UID,
		IsAnonymous: decoded.Firebase.SignInProvider == signInAnonymous,
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if email, ok := decoded.Claims["email"].(string); ok {
		id.Email = email
	}
	for provider := range decoded.Firebase.Identities {
		id.Providers = append(id.Providers, provider)
	}
	slices.Sort(id.Providers)
	return id, nil
}

// CreateAnonymous creates a credential-less user. The returned custom token
// must be exchanged for an ID token by the client SDK.
func (p *FirebaseProvider) CreateAnonymous(ctx context.Context) (string, string, error) {
	user, err := p.client.CreateUser(ctx, &auth.UserToCreate{})
	if err != nil {
		return "", "", classify(err, "failed to create anonymous user")
	}

	token, err := p.client.CustomToken(ctx, user.UID)
	if err != nil {
		return "", "", classify(err, "failed to mint sign-in token")
	}
	return user.UID, token, nil
}

// Link attaches an email/password credential to uid, keeping the uid
func (p *FirebaseProvider) Link(ctx context.Context, uid string, req LinkRequest) (Identity, error) {
	if err := req.Validate(); err != nil {
		return Identity{}, err
	}

	current, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return Identity{}, classify(err, "failed to load account")
	}
	if hasProvider(current, providerPassword) {
		return Identity{}, authError(errors.AuthProviderAlreadyLinked, "an email credential is already linked to this account", nil)
	}

	existing, err := p.client.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil && existing.UID != uid:
		return Identity{}, authError(errors.AuthEmailInUse, "email address is already in use", nil)
	case err != nil && !p.isNotFound(err):
		return Identity{}, classify(err, "failed to check email")
	}

	update := (&auth.UserToUpdate{}).Email(req.Email).Password(req.Password)
	if req.DisplayName != "" {
		update = update.DisplayName(req.DisplayName)
	}
	updated, err := p.client.UpdateUser(ctx, uid, update)
	if err != nil {
		return Identity{}, classify(err, "failed to link credential")
	}
	return identityFromRecord(updated), nil
}

func hasProvider(u *auth.UserRecord, providerID string) bool {
	if u == nil {
		return false
	}
	for _, info := range u.ProviderUserInfo {
		if info != nil && info.ProviderID == providerID {
			return true
		}
	}
	return false
}

func identityFromRecord(u *auth.UserRecord) Identity {
	id := Identity{IsAnonymous: len(u.ProviderUserInfo) == 0}
	if u.UserInfo != nil {
		id.UID = u.UID
		id.DisplayName = u.DisplayName
		id.Email = u.Email
	}
	for _, info := range u.ProviderUserInfo {
		if info != nil {
			id.Providers = append(id.Providers, info.ProviderID)
		}
	}
	return id
}

// classify maps Firebase Auth errors onto the provider error codes
func classify(err error, msg string) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return authError(errors.AuthEmailInUse, "email address is already in use", err)
	case auth.IsUIDAlreadyExists(err), auth.IsPhoneNumberAlreadyExists(err):
		return authError(errors.AuthCredentialInUse, "credential is already in use", err)
	case auth.IsIDTokenInvalid(err), auth.IsIDTokenExpired(err):
		return authError(errors.AuthInvalidToken, "invalid token", err)
	}
	return authError(errors.AuthUnknown, msg, err)
}
