package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/abrezinsky/pizzarate/internal/auth"
	"github.com/abrezinsky/pizzarate/internal/handlers"
	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
	"github.com/abrezinsky/pizzarate/internal/repository/mock"
	"github.com/abrezinsky/pizzarate/internal/services"
	"github.com/abrezinsky/pizzarate/internal/testutil"
	"github.com/abrezinsky/pizzarate/internal/websocket"
)

type testServer struct {
	router http.Handler
	repo   *mock.Repository
	hub    *websocket.Hub
	auth   *auth.Auth
	h      *handlers.Handlers
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func setupServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	repo := mock.NewRepository(testutil.NewTestRepository(t))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.New(log, nil)
	hub.Start(ctx)

	identitySvc := services.NewIdentityService(log, repo, hub)
	provider := identity.NewHeaderProvider()
	a := auth.New(log, provider, identitySvc)

	h := handlers.New(handlers.Deps{
		Identity:   identitySvc,
		Membership: services.NewMembershipService(log, repo, hub),
		Events:     services.NewEventService(log, repo, hub),
		Pizzas:     services.NewPizzaService(log, repo, hub),
		Ratings:    services.NewRatingService(log, repo, hub),
		Provider:   provider,
		Auth:       a,
		Hub:        hub,
		Store:      stubPinger{},
		Log:        log,
		BaseURL:    "http://pizza.test",
	})
	return &testServer{router: h.Router(), repo: repo, hub: hub, auth: a, h: h}
}

// do sends a request as uid (anonymous=false) and returns the recorder
func (s *testServer) do(t *testing.T, method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set(identity.HeaderUserID, uid)
		req.Header.Set(identity.HeaderAnonymous, "false")
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return v
}

type errorBody struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

type eventBody struct {
	Event models.Event `json:"event"`
	Role  string       `json:"role"`
}

func scores(v int) map[string]int {
	return testutil.UniformCriteria(v)
}

// createEvent creates a gated event as creator and returns its id
func (s *testServer) createEvent(t *testing.T, creator string) string {
	t.Helper()
	rr := s.do(t, "POST", "/api/events", creator, handlers.EventCreateRequest{Title: "Friday Slice Off"})
	expectStatus(t, rr, http.StatusCreated)
	return decode[eventBody](t, rr).Event.ID
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "GET", "/healthz", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[handlers.HealthResponse](t, rr); body.Status != "ok" {
		t.Errorf("expected ok, got %+v", body)
	}

	s.h.Store = stubPinger{err: stderrors.New("down")}
	rr = s.do(t, "GET", "/healthz", "", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)
	if body := decode[handlers.HealthResponse](t, rr); body.Storage != "unavailable" {
		t.Errorf("expected unavailable storage, got %+v", body)
	}
}

func TestGetCriteria(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "GET", "/api/criteria", "", nil)
	expectStatus(t, rr, http.StatusOK)

	body := decode[handlers.CriteriaResponse](t, rr)
	if len(body.Criteria) != 13 {
		t.Errorf("expected 13 criteria, got %d", len(body.Criteria))
	}
	if body.Criteria[0].Key != "visualAppeal" {
		t.Errorf("expected visualAppeal first, got %s", body.Criteria[0].Key)
	}
	if body.DefaultScore != 5 {
		t.Errorf("expected default score 5, got %d", body.DefaultScore)
	}
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "GET", "/api/me", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
	if body := decode[errorBody](t, rr); body.Code != "AUTH_INVALID_TOKEN" {
		t.Errorf("expected AUTH_INVALID_TOKEN, got %+v", body)
	}
}

func TestAnonymousSessionLifecycle(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "POST", "/api/identity/anonymous", "", nil)
	expectStatus(t, rr, http.StatusCreated)
	anon := decode[handlers.AnonymousResponse](t, rr)
	if anon.UID == "" || anon.Token == "" {
		t.Fatalf("expected uid and token, got %+v", anon)
	}

	req := httptest.NewRequest("POST", "/api/session", nil)
	req.Header.Set("Authorization", "Bearer "+anon.Token)
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)

	session := decode[handlers.SessionResponse](t, rr)
	if session.Profile.UID != anon.UID || !session.Profile.IsAnonymous {
		t.Errorf("expected anonymous profile for %s, got %+v", anon.UID, session.Profile)
	}
	if session.Profile.DisplayName == "" || session.Profile.AvatarColor == "" {
		t.Error("expected generated display name and avatar colour")
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}

	req = httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)
	if me := decode[handlers.SessionResponse](t, rr); me.Profile.UID != anon.UID {
		t.Errorf("expected cookie to identify %s, got %s", anon.UID, me.Profile.UID)
	}

	req = httptest.NewRequest("POST", "/api/session/logout", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusNoContent)

	req = httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestCreateSession_RequiresToken(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "POST", "/api/session", "", handlers.SessionRequest{})
	expectStatus(t, rr, http.StatusUnauthorized)

	req := httptest.NewRequest("POST", "/api/session", strings.NewReader("{"))
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestUpdateMe(t *testing.T) {
	s := setupServer(t)

	name := "  Crust Lord "
	color := "teal"
	rr := s.do(t, "PUT", "/api/me", "u1", handlers.ProfileUpdateRequest{DisplayName: &name, AvatarColor: &color})
	expectStatus(t, rr, http.StatusOK)
	p := decode[handlers.SessionResponse](t, rr).Profile
	if p.DisplayName != "Crust Lord" || p.AvatarColor != "teal" {
		t.Errorf("unexpected profile %+v", p)
	}

	bad := "mauve"
	rr = s.do(t, "PUT", "/api/me", "u1", handlers.ProfileUpdateRequest{AvatarColor: &bad})
	expectStatus(t, rr, http.StatusBadRequest)
	if body := decode[errorBody](t, rr); body.Code != handlers.ErrCodeValidation {
		t.Errorf("expected validation code, got %+v", body)
	}
}

func TestLinkCredential(t *testing.T) {
	s := setupServer(t)

	anonHeaders := func(req *http.Request) {
		req.Header.Set(identity.HeaderUserID, "guest-1")
		req.Header.Set(identity.HeaderAnonymous, "true")
	}

	body, _ := json.Marshal(handlers.LinkRequest{Email: "dough@example.com", Password: "secret1", DisplayName: "Dough Boy"})
	req := httptest.NewRequest("POST", "/api/me/link", bytes.NewReader(body))
	anonHeaders(req)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusOK)

	p := decode[handlers.SessionResponse](t, rr).Profile
	if p.IsAnonymous || p.UpgradedAt == nil {
		t.Errorf("expected upgraded profile, got %+v", p)
	}
	if p.Email != "dough@example.com" || p.DisplayName != "Dough Boy" {
		t.Errorf("expected credential details on profile, got %+v", p)
	}
	if p.OriginalAnonymousID != "guest-1" {
		t.Errorf("expected original anonymous id guest-1, got %s", p.OriginalAnonymousID)
	}

	req = httptest.NewRequest("POST", "/api/me/link", bytes.NewReader(body))
	anonHeaders(req)
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusUnauthorized)
	if eb := decode[errorBody](t, rr); eb.Code != "AUTH_PROVIDER_ALREADY_LINKED" {
		t.Errorf("expected AUTH_PROVIDER_ALREADY_LINKED, got %+v", eb)
	}
}

func TestUpgradeMe_AnonymousRejected(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest("POST", "/api/me/upgrade", nil)
	req.Header.Set(identity.HeaderUserID, "guest-2")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestEventTastingFlow(t *testing.T) {
	s := setupServer(t)
	eventID := s.createEvent(t, "host")

	// outsider sees the event but not its pizzas
	rr := s.do(t, "GET", "/api/events/"+eventID, "guest", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[eventBody](t, rr); body.Role != "outsider" {
		t.Errorf("expected outsider, got %s", body.Role)
	}
	expectStatus(t, s.do(t, "GET", "/api/events/"+eventID+"/pizzas", "guest", nil), http.StatusForbidden)

	// gated self-join is refused, a request is recorded instead
	expectStatus(t, s.do(t, "POST", "/api/events/"+eventID+"/participants", "guest", nil), http.StatusForbidden)
	rr = s.do(t, "POST", "/api/events/"+eventID+"/join-requests", "guest", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[eventBody](t, rr); body.Role != "pending" {
		t.Errorf("expected pending, got %s", body.Role)
	}

	// creator approves
	rr = s.do(t, "POST", "/api/events/"+eventID+"/participants", "host", handlers.ParticipantRequest{UID: "guest"})
	expectStatus(t, rr, http.StatusOK)
	ev := decode[eventBody](t, rr).Event
	if len(ev.PendingRequests) != 0 || len(ev.Participants) != 2 {
		t.Errorf("expected guest admitted, got participants=%v pending=%v", ev.Participants, ev.PendingRequests)
	}

	// only the creator adds pizzas
	expectStatus(t, s.do(t, "POST", "/api/events/"+eventID+"/pizzas", "guest", handlers.PizzaCreateRequest{Name: "Marg"}), http.StatusForbidden)
	rr = s.do(t, "POST", "/api/events/"+eventID+"/pizzas", "host", handlers.PizzaCreateRequest{Name: "Margherita"})
	expectStatus(t, rr, http.StatusCreated)
	pizza := decode[models.Pizza](t, rr)

	ratingPath := "/api/events/" + eventID + "/pizzas/" + pizza.ID + "/rating"
	expectStatus(t, s.do(t, "GET", ratingPath, "guest", nil), http.StatusNotFound)

	rr = s.do(t, "PUT", ratingPath, "guest", handlers.RatingRequest{Criteria: scores(10), Comments: "perfect"})
	expectStatus(t, rr, http.StatusOK)
	if got := decode[handlers.RatingResponse](t, rr).Score; got != 10 {
		t.Errorf("expected score 10, got %v", got)
	}
	expectStatus(t, s.do(t, "PUT", ratingPath, "host", handlers.RatingRequest{Criteria: scores(2)}), http.StatusOK)

	rr = s.do(t, "GET", ratingPath, "guest", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := decode[handlers.RatingResponse](t, rr).Rating.Comments; got != "perfect" {
		t.Errorf("expected stored comments, got %q", got)
	}

	rr = s.do(t, "GET", "/api/events/"+eventID+"/scores", "guest", nil)
	expectStatus(t, rr, http.StatusOK)
	board := decode[handlers.ScoresResponse](t, rr).Scores
	if len(board) != 1 || board[0].Average == nil || *board[0].Average != 6.0 || board[0].RatingCount != 2 {
		t.Fatalf("expected average 6.0 over 2 ratings, got %+v", board)
	}

	// first rating started the event
	rr = s.do(t, "GET", "/api/events/"+eventID, "host", nil)
	if got := decode[eventBody](t, rr).Event.Status; got != models.StatusInProgress {
		t.Errorf("expected in-progress, got %s", got)
	}

	// leaving
	expectStatus(t, s.do(t, "DELETE", "/api/events/"+eventID+"/participants/me", "host", nil), http.StatusForbidden)
	rr = s.do(t, "DELETE", "/api/events/"+eventID+"/participants/me", "guest", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[eventBody](t, rr); body.Role != "outsider" {
		t.Errorf("expected outsider after leaving, got %s", body.Role)
	}
}

func TestListEvents(t *testing.T) {
	s := setupServer(t)
	first := s.createEvent(t, "host")
	time.Sleep(2 * time.Millisecond)
	second := s.createEvent(t, "host")

	rr := s.do(t, "GET", "/api/events", "host", nil)
	expectStatus(t, rr, http.StatusOK)
	events := decode[handlers.EventListResponse](t, rr).Events
	if len(events) != 2 || events[0].ID != second || events[1].ID != first {
		t.Errorf("expected newest first, got %+v", events)
	}

	rr = s.do(t, "GET", "/api/events", "nobody", nil)
	expectStatus(t, rr, http.StatusOK)
	if events := decode[handlers.EventListResponse](t, rr).Events; len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestDenyAndWithdrawJoinRequests(t *testing.T) {
	s := setupServer(t)
	eventID := s.createEvent(t, "host")

	expectStatus(t, s.do(t, "POST", "/api/events/"+eventID+"/join-requests", "a", nil), http.StatusOK)
	expectStatus(t, s.do(t, "POST", "/api/events/"+eventID+"/join-requests", "b", nil), http.StatusOK)

	// only the creator may deny
	expectStatus(t, s.do(t, "DELETE", "/api/events/"+eventID+"/join-requests/a", "b", nil), http.StatusForbidden)

	rr := s.do(t, "DELETE", "/api/events/"+eventID+"/join-requests/a", "host", nil)
	expectStatus(t, rr, http.StatusOK)
	if pending := decode[eventBody](t, rr).Event.PendingRequests; len(pending) != 1 || pending[0] != "b" {
		t.Errorf("expected only b pending, got %v", pending)
	}

	rr = s.do(t, "DELETE", "/api/events/"+eventID+"/join-requests/b", "b", nil)
	expectStatus(t, rr, http.StatusOK)
	if pending := decode[eventBody](t, rr).Event.PendingRequests; len(pending) != 0 {
		t.Errorf("expected no pending requests, got %v", pending)
	}
}

func TestWithdrawJoinRequest_KeepsParticipant(t *testing.T) {
	s := setupServer(t)
	rr := s.do(t, "POST", "/api/events", "host", handlers.EventCreateRequest{Title: "Open Oven", JoinPolicy: models.JoinOpen})
	expectStatus(t, rr, http.StatusCreated)
	eventID := decode[eventBody](t, rr).Event.ID

	expectStatus(t, s.do(t, "POST", "/api/events/"+eventID+"/participants", "guest", nil), http.StatusOK)

	rr = s.do(t, "DELETE", "/api/events/"+eventID+"/join-requests/guest", "guest", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[eventBody](t, rr); body.Role != "participant" {
		t.Errorf("participant should stay after withdrawing, got role %s", body.Role)
	}
}

func TestOpenEventSelfJoin(t *testing.T) {
	s := setupServer(t)
	rr := s.do(t, "POST", "/api/events", "host", handlers.EventCreateRequest{Title: "Open Oven", JoinPolicy: models.JoinOpen})
	expectStatus(t, rr, http.StatusCreated)
	eventID := decode[eventBody](t, rr).Event.ID

	rr = s.do(t, "POST", "/api/events/"+eventID+"/participants", "walk-in", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[eventBody](t, rr); body.Role != "participant" {
		t.Errorf("expected participant, got %s", body.Role)
	}
}

func TestAdvanceStatus(t *testing.T) {
	s := setupServer(t)
	eventID := s.createEvent(t, "host")
	path := "/api/events/" + eventID + "/status"

	expectStatus(t, s.do(t, "PUT", path, "other", handlers.EventStatusRequest{Status: models.StatusCompleted}), http.StatusForbidden)
	expectStatus(t, s.do(t, "PUT", path, "host", handlers.EventStatusRequest{Status: "baking"}), http.StatusBadRequest)

	rr := s.do(t, "PUT", path, "host", handlers.EventStatusRequest{Status: models.StatusCompleted})
	expectStatus(t, rr, http.StatusOK)
	if got := decode[eventBody](t, rr).Event.Status; got != models.StatusCompleted {
		t.Errorf("expected completed, got %s", got)
	}

	rr = s.do(t, "PUT", path, "host", handlers.EventStatusRequest{Status: models.StatusUpcoming})
	expectStatus(t, rr, http.StatusConflict)
}

func TestInviteQR(t *testing.T) {
	s := setupServer(t)
	eventID := s.createEvent(t, "host")

	rr := s.do(t, "GET", "/api/events/"+eventID+"/invite.png", "host", nil)
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}

	expectStatus(t, s.do(t, "GET", "/api/events/"+eventID+"/invite.png", "stranger", nil), http.StatusForbidden)
}

func TestRequestValidation(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "POST", "/api/events", "host", handlers.EventCreateRequest{Title: "   "})
	expectStatus(t, rr, http.StatusBadRequest)
	if body := decode[errorBody](t, rr); body.Code != handlers.ErrCodeValidation {
		t.Errorf("expected validation code, got %+v", body)
	}

	req := httptest.NewRequest("POST", "/api/events", strings.NewReader("{not json"))
	req.Header.Set(identity.HeaderUserID, "host")
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusBadRequest)
	if body := decode[errorBody](t, rr); body.Code != handlers.ErrCodeBadRequest {
		t.Errorf("expected bad request code, got %+v", body)
	}

	eventID := s.createEvent(t, "host")
	rr = s.do(t, "POST", "/api/events/"+eventID+"/pizzas", "host", handlers.PizzaCreateRequest{Name: "Pepperoni"})
	pizza := decode[models.Pizza](t, rr)

	partial := map[string]int{"visualAppeal": 7}
	rr = s.do(t, "PUT", "/api/events/"+eventID+"/pizzas/"+pizza.ID+"/rating", "host", handlers.RatingRequest{Criteria: partial})
	expectStatus(t, rr, http.StatusBadRequest)

	expectStatus(t, s.do(t, "GET", "/api/events/missing", "host", nil), http.StatusNotFound)
}

func TestStorageFailureIsRetryable(t *testing.T) {
	s := setupServer(t)
	eventID := s.createEvent(t, "host")

	s.repo.GetEventError = stderrors.New("connection reset")
	rr := s.do(t, "GET", "/api/events/"+eventID, "host", nil)
	expectStatus(t, rr, http.StatusServiceUnavailable)

	body := decode[errorBody](t, rr)
	if body.Code != handlers.ErrCodeUnavailable || !body.Retryable {
		t.Errorf("expected retryable storage error, got %+v", body)
	}
	if strings.Contains(body.Error, "connection reset") {
		t.Error("internal error details should not leak")
	}
}

func TestDegradedProfileOnStorageFailure(t *testing.T) {
	s := setupServer(t)
	s.repo.GetUserProfileError = stderrors.New("unavailable")

	rr := s.do(t, "GET", "/api/me", "u1", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decode[handlers.SessionResponse](t, rr)
	if !body.Degraded || body.Profile.Persisted {
		t.Errorf("expected degraded fallback profile, got %+v", body)
	}
}

func TestWebSocketEventTopicAuthorization(t *testing.T) {
	s := setupServer(t)
	eventID := s.createEvent(t, "host")

	server := httptest.NewServer(s.router)
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	dial := func(uid string) *gorillaws.Conn {
		header := http.Header{}
		header.Set(identity.HeaderUserID, uid)
		conn, _, err := gorillaws.DefaultDialer.Dial(url, header)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	subscribe := func(conn *gorillaws.Conn) string {
		if err := conn.WriteJSON(models.WSMessage{Type: "subscribe", Topic: services.EventTopic(eventID)}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		for {
			var reply models.WSMessage
			if err := conn.ReadJSON(&reply); err != nil {
				t.Fatalf("read failed: %v", err)
			}
			// skip profile updates from signing in
			if reply.Type == "subscribed" || reply.Type == "error" {
				return reply.Type
			}
		}
	}

	if got := subscribe(dial("host")); got != "subscribed" {
		t.Errorf("expected creator to follow the event, got %s", got)
	}
	if got := subscribe(dial("stranger")); got != "error" {
		t.Errorf("expected outsider to be refused, got %s", got)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, "GET", "/ws", "", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

var _ repository.FullRepository = (*mock.Repository)(nil)
