package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/abrezinsky/pizzarate/internal/errors"
)

// Development identity headers
const (
	HeaderUserID    = "X-User-Id"
	HeaderAnonymous = "X-User-Anonymous"
	HeaderName      = "X-User-Name"
	HeaderEmail     = "X-User-Email"
)

type linkedAccount struct {
	email       string
	displayName string
}

// HeaderProvider trusts the caller. The bearer token is the uid itself and
// linked credentials live in memory. Development and tests only.
type HeaderProvider struct {
	mu      sync.RWMutex
	linked  map[string]linkedAccount // uid -> credential
	byEmail map[string]string        // email -> uid
	newUID  func() string
}

func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{
		linked:  make(map[string]linkedAccount),
		byEmail: make(map[string]string),
		newUID:  func() string { return "anon-" + uuid.NewString() },
	}
}

func (p *HeaderProvider) Verify(_ context.Context, token string) (Identity, error) {
	uid := strings.TrimSpace(token)
	if uid == "" {
		return Identity{}, authError(errors.AuthInvalidToken, "missing authorization token", nil)
	}
	return p.identityFor(uid, true, "", ""), nil
}

// VerifyRequest reads the X-User-* headers. ok is false when no uid header is present.
func (p *HeaderProvider) VerifyRequest(r *http.Request) (Identity, bool, error) {
	uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if uid == "" {
		return Identity{}, false, nil
	}

	anonymous := true
	if v := r.Header.Get(HeaderAnonymous); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Identity{}, false, authError(errors.AuthInvalidToken, "invalid "+HeaderAnonymous+" header", err)
		}
		anonymous = b
	}
	return p.identityFor(uid, anonymous, r.Header.Get(HeaderName), r.Header.Get(HeaderEmail)), true, nil
}

func (p *HeaderProvider) identityFor(uid string, anonymous bool, name, email string) Identity {
	p.mu.RLock()
	acct, linked := p.linked[uid]
	p.mu.RUnlock()

	id := Identity{UID: uid, IsAnonymous: anonymous && !linked, DisplayName: name, Email: email}
	if linked {
		id.Email = acct.email
		if acct.displayName != "" {
			id.DisplayName = acct.displayName
		}
		id.Providers = []string{providerPassword}
	}
	return id
}

func (p *HeaderProvider) CreateAnonymous(_ context.Context) (string, string, error) {
	uid := p.newUID()
	return uid, uid, nil
}

func (p *HeaderProvider) Link(_ context.Context, uid string, req LinkRequest) (Identity, error) {
	if err := req.Validate(); err != nil {
		return Identity{}, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.linked[uid]; ok {
		return Identity{}, authError(errors.AuthProviderAlreadyLinked, "an email credential is already linked to this account", nil)
	}
	if owner, ok := p.byEmail[email]; ok && owner != uid {
		return Identity{}, authError(errors.AuthEmailInUse, "email address is already in use", nil)
	}

	p.linked[uid] = linkedAccount{email: email, displayName: req.DisplayName}
	p.byEmail[email] = uid

	return Identity{
		UID:         uid,
		IsAnonymous: false,
		DisplayName: req.DisplayName,
		Email:       email,
		Providers:   []string{providerPassword},
	}, nil
}
