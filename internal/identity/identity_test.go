package identity

import (
	"context"
	stderrors "errors"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/pizzarate/internal/errors"
)

func authCode(t *testing.T, err error) errors.AuthCode {
	t.Helper()
	var appErr *errors.Error
	require.True(t, stderrors.As(err, &appErr), "expected *errors.Error, got %v", err)
	require.Equal(t, errors.ErrAuth, appErr.Kind)
	return appErr.Code
}

// ===== HeaderProvider =====

func TestHeaderProvider_Verify(t *testing.T) {
	p := NewHeaderProvider()

	id, err := p.Verify(context.Background(), "guest-1")
	require.NoError(t, err)
	assert.Equal(t, "guest-1", id.UID)
	assert.True(t, id.IsAnonymous)

	_, err = p.Verify(context.Background(), "  ")
	assert.Equal(t, errors.AuthInvalidToken, authCode(t, err))
}

func TestHeaderProvider_VerifyRequest(t *testing.T) {
	p := NewHeaderProvider()

	r := httptest.NewRequest("GET", "/", nil)
	_, ok, err := p.VerifyRequest(r)
	require.NoError(t, err)
	assert.False(t, ok)

	r.Header.Set(HeaderUserID, "u1")
	r.Header.Set(HeaderAnonymous, "false")
	r.Header.Set(HeaderName, "Pat")
	r.Header.Set(HeaderEmail, "pat@example.com")
	id, ok, err := p.VerifyRequest(r)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Identity{UID: "u1", DisplayName: "Pat", Email: "pat@example.com"}, id)

	r.Header.Set(HeaderAnonymous, "maybe")
	_, _, err = p.VerifyRequest(r)
	assert.Equal(t, errors.AuthInvalidToken, authCode(t, err))
}

func TestHeaderProvider_CreateAnonymousAndLink(t *testing.T) {
	p := NewHeaderProvider()
	ctx := context.Background()

	uid, token, err := p.CreateAnonymous(ctx)
	require.NoError(t, err)
	assert.Equal(t, uid, token)
	assert.Contains(t, uid, "anon-")

	id, err := p.Link(ctx, uid, LinkRequest{Email: "Cook@Example.com", Password: "secret1", DisplayName: "Cook"})
	require.NoError(t, err)
	assert.False(t, id.IsAnonymous)
	assert.Equal(t, "cook@example.com", id.Email)

	verified, err := p.Verify(ctx, uid)
	require.NoError(t, err)
	assert.False(t, verified.IsAnonymous, "linked accounts verify as permanent")
	assert.Equal(t, "Cook", verified.DisplayName)

	_, err = p.Link(ctx, uid, LinkRequest{Email: "other@example.com", Password: "secret1"})
	assert.Equal(t, errors.AuthProviderAlreadyLinked, authCode(t, err))

	_, err = p.Link(ctx, "someone-else", LinkRequest{Email: "cook@example.com", Password: "secret1"})
	assert.Equal(t, errors.AuthEmailInUse, authCode(t, err))
}

func TestLinkRequest_Validate(t *testing.T) {
	assert.True(t, errors.Is(LinkRequest{Password: "secret1"}.Validate(), errors.ErrValidation))
	assert.True(t, errors.Is(LinkRequest{Email: "a@b.c", Password: "123"}.Validate(), errors.ErrValidation))
	assert.NoError(t, LinkRequest{Email: "a@b.c", Password: "123456"}.Validate())
}

// ===== FirebaseProvider =====

type fakeAuthClient struct {
	token       *auth.Token
	verifyErr   error
	users       map[string]*auth.UserRecord
	createErr   error
	updateErr   error
	lastUpdated string
}

func newFakeAuthClient() *fakeAuthClient {
	return &fakeAuthClient{users: make(map[string]*auth.UserRecord)}
}

func (f *fakeAuthClient) VerifyIDToken(_ context.Context, _ string) (*auth.Token, error) {
	return f.token, f.verifyErr
}

func (f *fakeAuthClient) CreateUser(_ context.Context, _ *auth.UserToCreate) (*auth.UserRecord, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u := &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "fb-anon"}}
	f.users[u.UID] = u
	return u, nil
}

func (f *fakeAuthClient) CustomToken(_ context.Context, uid string) (string, error) {
	return "custom-" + uid, nil
}

func (f *fakeAuthClient) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	if u, ok := f.users[uid]; ok {
		return u, nil
	}
	return nil, stderrors.New("no such user")
}

func (f *fakeAuthClient) GetUserByEmail(_ context.Context, email string) (*auth.UserRecord, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errNotFoundForTest
}

func (f *fakeAuthClient) UpdateUser(_ context.Context, uid string, _ *auth.UserToUpdate) (*auth.UserRecord, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.lastUpdated = uid
	u := f.users[uid]
	u.ProviderUserInfo = append(u.ProviderUserInfo, &auth.UserInfo{ProviderID: providerPassword})
	return u, nil
}

var errNotFoundForTest = stderrors.New("user not found")

func TestFirebaseProvider_Verify(t *testing.T) {
	fake := newFakeAuthClient()
	fake.token = &auth.Token{
		UID: "abc",
		Firebase: auth.FirebaseInfo{
			SignInProvider: "anonymous",
			Identities:     map[string]interface{}{},
		},
		Claims: map[string]interface{}{"name": "Guest"},
	}
	p := newFirebaseProviderWithClient(fake)

	id, err := p.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "abc", id.UID)
	assert.True(t, id.IsAnonymous)
	assert.Equal(t, "Guest", id.DisplayName)

	fake.token = &auth.Token{
		UID: "abc",
		Firebase: auth.FirebaseInfo{
			SignInProvider: "google.com",
			Identities:     map[string]interface{}{"google.com": []interface{}{"1"}, "email": []interface{}{"a@b.c"}},
		},
		Claims: map[string]interface{}{"email": "a@b.c"},
	}
	id, err = p.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, id.IsAnonymous)
	assert.Equal(t, "a@b.c", id.Email)
	assert.Equal(t, []string{"email", "google.com"}, id.Providers)
}

func TestFirebaseProvider_VerifyErrors(t *testing.T) {
	fake := newFakeAuthClient()
	fake.verifyErr = stderrors.New("bad signature")
	p := newFirebaseProviderWithClient(fake)

	_, err := p.Verify(context.Background(), "")
	assert.Equal(t, errors.AuthInvalidToken, authCode(t, err))

	_, err = p.Verify(context.Background(), "tok")
	assert.Equal(t, errors.AuthInvalidToken, authCode(t, err))
}

func TestFirebaseProvider_CreateAnonymous(t *testing.T) {
	fake := newFakeAuthClient()
	p := newFirebaseProviderWithClient(fake)

	uid, token, err := p.CreateAnonymous(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fb-anon", uid)
	assert.Equal(t, "custom-fb-anon", token)

	fake.createErr = stderrors.New("quota")
	_, _, err = p.CreateAnonymous(context.Background())
	assert.Equal(t, errors.AuthUnknown, authCode(t, err))
}

func TestFirebaseProvider_LinkAlreadyLinked(t *testing.T) {
	fake := newFakeAuthClient()
	fake.users["u1"] = &auth.UserRecord{
		UserInfo:         &auth.UserInfo{UID: "u1", Email: "a@b.c"},
		ProviderUserInfo: []*auth.UserInfo{{ProviderID: providerPassword}},
	}
	p := newFirebaseProviderWithClient(fake)

	_, err := p.Link(context.Background(), "u1", LinkRequest{Email: "new@b.c", Password: "secret1"})
	assert.Equal(t, errors.AuthProviderAlreadyLinked, authCode(t, err))
}

func TestFirebaseProvider_LinkEmailTakenMatchesHeaderProvider(t *testing.T) {
	fake := newFakeAuthClient()
	fake.users["u1"] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u1"}}
	fake.users["u2"] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u2", Email: "taken@b.c"}}
	p := newFirebaseProviderWithClient(fake)

	_, err := p.Link(context.Background(), "u1", LinkRequest{Email: "taken@b.c", Password: "secret1"})
	assert.Equal(t, errors.AuthEmailInUse, authCode(t, err))

	header := NewHeaderProvider()
	_, err = header.Link(context.Background(), "u2", LinkRequest{Email: "taken@b.c", Password: "secret1"})
	require.NoError(t, err)
	_, err = header.Link(context.Background(), "u1", LinkRequest{Email: "taken@b.c", Password: "secret1"})
	assert.Equal(t, errors.AuthEmailInUse, authCode(t, err), "both providers report the same code")
}

func TestFirebaseProvider_LinkLookupFailure(t *testing.T) {
	fake := newFakeAuthClient()
	fake.users["u1"] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u1"}}
	p := newFirebaseProviderWithClient(fake)

	// the fake's not-found is a plain error, so the lookup counts as a failure
	_, err := p.Link(context.Background(), "u1", LinkRequest{Email: "fresh@b.c", Password: "secret1"})
	assert.Equal(t, errors.AuthUnknown, authCode(t, err))
	assert.Empty(t, fake.lastUpdated, "no update after a failed lookup")
}

func TestFirebaseProvider_Link(t *testing.T) {
	fake := newFakeAuthClient()
	fake.users["u1"] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u1", Email: "fresh@b.c"}}
	p := newFirebaseProviderWithClient(fake)
	p.isNotFound = func(err error) bool { return stderrors.Is(err, errNotFoundForTest) }

	id, err := p.Link(context.Background(), "u1", LinkRequest{Email: "brand-new@b.c", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", fake.lastUpdated)
	assert.Equal(t, "u1", id.UID)
	assert.False(t, id.IsAnonymous)

	fake.users["u3"] = &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "u3"}}
	fake.updateErr = stderrors.New("backend down")
	_, err = p.Link(context.Background(), "u3", LinkRequest{Email: "other@b.c", Password: "secret1"})
	assert.Equal(t, errors.AuthUnknown, authCode(t, err))
}

func TestFirebaseProvider_LinkValidates(t *testing.T) {
	p := newFirebaseProviderWithClient(newFakeAuthClient())
	_, err := p.Link(context.Background(), "u1", LinkRequest{Email: "a@b.c"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestIdentityFromRecord(t *testing.T) {
	anon := identityFromRecord(&auth.UserRecord{UserInfo: &auth.UserInfo{UID: "x"}})
	assert.True(t, anon.IsAnonymous)

	linked := identityFromRecord(&auth.UserRecord{
		UserInfo:         &auth.UserInfo{UID: "x", Email: "a@b.c", DisplayName: "A"},
		ProviderUserInfo: []*auth.UserInfo{{ProviderID: "password"}},
	})
	assert.False(t, linked.IsAnonymous)
	assert.Equal(t, []string{"password"}, linked.Providers)
	assert.Equal(t, "A", linked.DisplayName)
}
