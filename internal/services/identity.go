package services

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/pizzarate/internal/errors"
	"github.com/abrezinsky/pizzarate/internal/identity"
	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/repository"
)

// AvatarColors is the swatch profiles pick their avatar colour from
var AvatarColors = []string{"red", "blue", "green", "yellow", "purple", "pink", "indigo", "teal", "orange", "cyan"}

var (
	nameAdjectives = []string{"Cheesy", "Crispy", "Saucy", "Spicy", "Tasty", "Zesty", "Smoky", "Fresh"}
	nameNouns      = []string{"Pizza", "Slice", "Crust", "Topping", "Cheese", "Sauce", "Dough", "Bite"}
)

const maxDisplayName = 50

// IdentityService owns the application profile behind each provider identity
type IdentityService struct {
	log         logger.Logger
	repo        repository.UserRepository
	broadcaster Broadcaster
	randReader  io.Reader // for testing: defaults to crypto/rand.Reader
	now         func() time.Time

	mu        sync.Mutex
	observers map[string]map[int]chan models.UserProfile
	nextObs   int
	fallbacks map[string]*models.UserProfile // per uid while the store is down
}

// NewIdentityService creates a new IdentityService
func NewIdentityService(log logger.Logger, repo repository.UserRepository, b Broadcaster) *IdentityService {
	if b == nil {
		b = nopBroadcaster{}
	}
	return &IdentityService{
		log:         log,
		repo:        repo,
		broadcaster: b,
		randReader:  rand.Reader,
		now:         time.Now,
		observers:   make(map[string]map[int]chan models.UserProfile),
		fallbacks:   make(map[string]*models.UserProfile),
	}
}

// SetRandReader sets a custom random reader (for testing)
func (s *IdentityService) SetRandReader(reader io.Reader) {
	s.randReader = reader
}

// SetClock overrides the time source (for testing)
func (s *IdentityService) SetClock(now func() time.Time) {
	s.now = now
}

// ProfileUpdate holds the user-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	AvatarColor *string `json:"avatar_color,omitempty"`
}

// Resolve returns the stored profile for id, creating it on first sight
func (s *IdentityService) Resolve(ctx context.Context, id identity.Identity) (*models.UserProfile, error) {
	if id.UID == "" {
		return nil, errors.InvalidInput("uid is required")
	}

	p, err := s.repo.GetUserProfile(ctx, id.UID)
	if err == nil {
		return p, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.Storage(err)
	}

	p = s.newProfile(id)
	p.CreatedAt = s.now().UTC()
	if err := s.repo.CreateUserProfile(ctx, p); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			// another session for the same uid won the race
			existing, getErr := s.repo.GetUserProfile(ctx, id.UID)
			if getErr != nil {
				return nil, errors.Storage(getErr)
			}
			return existing, nil
		}
		return nil, errors.Storage(err)
	}

	s.log.Info("Profile created", "uid", p.UID, "name", p.DisplayName, "anonymous", p.IsAnonymous)
	s.publish(*p)
	return p, nil
}

// FallbackProfile synthesizes an unpersisted profile for use while the store is unavailable
func (s *IdentityService) FallbackProfile(id identity.Identity) *models.UserProfile {
	p := s.newProfile(id)
	p.CreatedAt = s.now().UTC()
	p.Persisted = false
	return p
}

func (s *IdentityService) newProfile(id identity.Identity) *models.UserProfile {
	name := strings.TrimSpace(id.DisplayName)
	if name == "" {
		name = s.randomName()
	}
	return &models.UserProfile{
		UID:         id.UID,
		DisplayName: name,
		Email:       id.Email,
		IsAnonymous: id.IsAnonymous,
		AvatarColor: AvatarColors[s.randIntn(len(AvatarColors))],
	}
}

func (s *IdentityService) randomName() string {
	adj := nameAdjectives[s.randIntn(len(nameAdjectives))]
	noun := nameNouns[s.randIntn(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, s.randIntn(999)+1)
}

func (s *IdentityService) randIntn(n int) int {
	v, err := rand.Int(s.randReader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// EnsureIdentity is called at session start. Storage failures degrade to a
// fallback profile instead of failing the session. The same fallback is
// returned for a uid until the store answers again.
func (s *IdentityService) EnsureIdentity(ctx context.Context, id identity.Identity) (*models.UserProfile, error) {
	p, err := s.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrStorage) {
			s.log.Warn("Profile store unavailable, using fallback profile", "uid", id.UID, "error", err)
			return s.cachedFallback(id), nil
		}
		return nil, err
	}
	s.dropFallback(id.UID)

	if p.IsAnonymous && !id.IsAnonymous {
		upgraded, err := s.Upgrade(ctx, id)
		if err != nil {
			s.log.Warn("Profile upgrade failed", "uid", id.UID, "error", err)
			return p, nil
		}
		return upgraded, nil
	}
	return p, nil
}

func (s *IdentityService) cachedFallback(id identity.Identity) *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.fallbacks[id.UID]
	if !ok {
		p = s.FallbackProfile(id)
		s.fallbacks[id.UID] = p
	}
	cp := *p
	return &cp
}

func (s *IdentityService) dropFallback(uid string) {
	s.mu.Lock()
	delete(s.fallbacks, uid)
	s.mu.Unlock()
}

// Upgrade records that an anonymous account now has a permanent credential.
// Calling it again for an upgraded profile returns the stored profile untouched.
func (s *IdentityService) Upgrade(ctx context.Context, id identity.Identity) (*models.UserProfile, error) {
	if id.IsAnonymous {
		return nil, errors.InvalidInput("identity has no permanent credential")
	}

	p, err := s.repo.GetUserProfile(ctx, id.UID)
	if err != nil {
		return nil, repoError(err, ErrUserNotFound)
	}
	if !p.IsAnonymous {
		return p, nil
	}

	now := s.now().UTC()
	p.IsAnonymous = false
	p.UpgradedAt = &now
	p.DisplayName = firstNonEmpty(strings.TrimSpace(id.DisplayName), p.DisplayName)
	p.Email = firstNonEmpty(id.Email, p.Email)
	p.OriginalAnonymousID = firstNonEmpty(id.PreviousUID, p.UID)

	if err := s.repo.UpdateUserProfile(ctx, p); err != nil {
		return nil, repoError(err, ErrUserNotFound)
	}

	s.log.Info("Profile upgraded", "uid", p.UID, "email", p.Email)
	s.publish(*p)
	return p, nil
}

// GetProfile returns the stored profile for uid
func (s *IdentityService) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	p, err := s.repo.GetUserProfile(ctx, uid)
	if err != nil {
		return nil, repoError(err, ErrUserNotFound)
	}
	return p, nil
}

// UpdateProfile applies user edits to the display name and avatar colour
func (s *IdentityService) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (*models.UserProfile, error) {
	var name string
	if update.DisplayName != nil {
		name = strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, errors.Validation("display name cannot be empty")
		}
		if len([]rune(name)) > maxDisplayName {
			return nil, errors.Validationf("display name must be at most %d characters", maxDisplayName)
		}
	}
	if update.AvatarColor != nil && !validAvatarColor(*update.AvatarColor) {
		return nil, errors.Validationf("unknown avatar color %q", *update.AvatarColor)
	}

	p, err := s.repo.GetUserProfile(ctx, uid)
	if err != nil {
		return nil, repoError(err, ErrUserNotFound)
	}
	if update.DisplayName != nil {
		p.DisplayName = name
	}
	if update.AvatarColor != nil {
		p.AvatarColor = *update.AvatarColor
	}

	if err := s.repo.UpdateUserProfile(ctx, p); err != nil {
		return nil, repoError(err, ErrUserNotFound)
	}
	s.publish(*p)
	return p, nil
}

func validAvatarColor(c string) bool {
	for _, v := range AvatarColors {
		if v == c {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Subscribe registers a local observer for uid's profile changes.
// The returned func unregisters it and closes the channel.
func (s *IdentityService) Subscribe(uid string) (<-chan models.UserProfile, func()) {
	ch := make(chan models.UserProfile, 8)

	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	if s.observers[uid] == nil {
		s.observers[uid] = make(map[int]chan models.UserProfile)
	}
	s.observers[uid][id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers[uid], id)
			if len(s.observers[uid]) == 0 {
				delete(s.observers, uid)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (s *IdentityService) publish(p models.UserProfile) {
	s.mu.Lock()
	for _, ch := range s.observers[p.UID] {
		select {
		case ch <- p:
		default:
			s.log.Debug("Profile observer is behind, dropping update", "uid", p.UID)
		}
	}
	s.mu.Unlock()

	s.broadcaster.Publish(models.WSMessage{Type: MsgProfileUpdated, Topic: UserTopic(p.UID), Payload: p})
}
