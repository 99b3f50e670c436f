package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
)

const (
	usersCollection   = "users"
	eventsCollection  = "events"
	pizzasCollection  = "pizzas"
	ratingsCollection = "ratings"
)

// FirestoreRepository stores documents in Cloud Firestore.
// Set membership uses ArrayUnion/ArrayRemove so concurrent joins never
// overwrite each other.
type FirestoreRepository struct {
	client *firestore.Client
}

var _ FullRepository = (*FirestoreRepository)(nil)

// NewFirestore opens a Firestore client from an initialised Firebase app.
// FIRESTORE_EMULATOR_HOST is honoured by the client library.
func NewFirestore(ctx context.Context, app *firebase.App) (*FirestoreRepository, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	return &FirestoreRepository{client: client}, nil
}

// NewFirestoreWithClient wraps an existing client
func NewFirestoreWithClient(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{client: client}
}

func (r *FirestoreRepository) Close() error {
	return r.client.Close()
}

// Ping issues a cheap read to confirm the backend is reachable
func (r *FirestoreRepository) Ping(ctx context.Context) error {
	_, err := r.client.Collection(eventsCollection).Limit(1).Documents(ctx).GetAll()
	return err
}

func translate(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrDuplicate
	}
	return err
}

// ==================== User Methods ====================

func (r *FirestoreRepository) GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	snap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var p models.UserProfile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.UID = uid
	p.Persisted = true
	return &p, nil
}

func (r *FirestoreRepository) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	if _, err := r.client.Collection(usersCollection).Doc(p.UID).Create(ctx, p); err != nil {
		return translate(err)
	}
	p.Persisted = true
	return nil
}

// UpdateUserProfile writes the mutable profile fields. Missing documents are not created.
func (r *FirestoreRepository) UpdateUserProfile(ctx context.Context, p *models.UserProfile) error {
	updates := []firestore.Update{
		{Path: "displayName", Value: p.DisplayName},
		{Path: "email", Value: p.Email},
		{Path: "isAnonymous", Value: p.IsAnonymous},
		{Path: "avatarColor", Value: p.AvatarColor},
		{Path: "originalAnonymousId", Value: p.OriginalAnonymousID},
	}
	if p.UpgradedAt != nil {
		updates = append(updates, firestore.Update{Path: "upgradedAt", Value: *p.UpgradedAt})
	}
	_, err := r.client.Collection(usersCollection).Doc(p.UID).Update(ctx, updates)
	return translate(err)
}

// ==================== Event Methods ====================

func (r *FirestoreRepository) CreateEvent(ctx context.Context, e *models.Event) error {
	e.Normalize()
	_, err := r.client.Collection(eventsCollection).Doc(e.ID).Create(ctx, e)
	return translate(err)
}

func (r *FirestoreRepository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	snap, err := r.client.Collection(eventsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return eventFromSnapshot(snap)
}

func eventFromSnapshot(snap *firestore.DocumentSnapshot) (*models.Event, error) {
	var e models.Event
	if err := snap.DataTo(&e); err != nil {
		return nil, err
	}
	e.ID = snap.Ref.ID
	e.Normalize()
	return &e, nil
}

func (r *FirestoreRepository) ListEventsCreatedBy(ctx context.Context, uid string) ([]models.Event, error) {
	return r.queryEvents(ctx, r.client.Collection(eventsCollection).Where("createdBy", "==", uid))
}

func (r *FirestoreRepository) ListEventsWithParticipant(ctx context.Context, uid string) ([]models.Event, error) {
	return r.queryEvents(ctx, r.client.Collection(eventsCollection).Where("participants", "array-contains", uid))
}

// queryEvents sorts client-side so no composite index is required
func (r *FirestoreRepository) queryEvents(ctx context.Context, q firestore.Query) ([]models.Event, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	events := make([]models.Event, 0, len(snaps))
	for _, snap := range snaps {
		e, err := eventFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// ApplyMembership sends every set edit in a single document update
func (r *FirestoreRepository) ApplyMembership(ctx context.Context, eventID, uid string, change membership.Change) error {
	var updates []firestore.Update
	if change.AddParticipant {
		updates = append(updates, firestore.Update{Path: "participants", Value: firestore.ArrayUnion(uid)})
	}
	if change.RemoveParticipant {
		updates = append(updates, firestore.Update{Path: "participants", Value: firestore.ArrayRemove(uid)})
	}
	if change.AddPending {
		updates = append(updates, firestore.Update{Path: "pendingRequests", Value: firestore.ArrayUnion(uid)})
	}
	if change.RemovePending {
		updates = append(updates, firestore.Update{Path: "pendingRequests", Value: firestore.ArrayRemove(uid)})
	}
	ref := r.client.Collection(eventsCollection).Doc(eventID)
	if len(updates) == 0 {
		_, err := ref.Get(ctx)
		return translate(err)
	}
	_, err := ref.Update(ctx, updates)
	return translate(err)
}

func (r *FirestoreRepository) AdvanceEventStatus(ctx context.Context, eventID string, next models.EventStatus) (bool, error) {
	ref := r.client.Collection(eventsCollection).Doc(eventID)
	var changed bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		changed = false
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, _ := snap.DataAt("status")
		cur, _ := current.(string)
		if models.EventStatus(cur).Rank() >= next.Rank() {
			return nil
		}
		changed = true
		return tx.Update(ref, []firestore.Update{{Path: "status", Value: string(next)}})
	})
	if err != nil {
		return false, translate(err)
	}
	return changed, nil
}

// ==================== Pizza Methods ====================

func (r *FirestoreRepository) CreatePizza(ctx context.Context, p *models.Pizza) error {
	_, err := r.client.Collection(pizzasCollection).Doc(p.ID).Create(ctx, p)
	return translate(err)
}

func (r *FirestoreRepository) GetPizza(ctx context.Context, id string) (*models.Pizza, error) {
	snap, err := r.client.Collection(pizzasCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	var p models.Pizza
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *FirestoreRepository) ListPizzasForEvent(ctx context.Context, eventID string) ([]models.Pizza, error) {
	snaps, err := r.client.Collection(pizzasCollection).Where("eventId", "==", eventID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	pizzas := make([]models.Pizza, 0, len(snaps))
	for _, snap := range snaps {
		var p models.Pizza
		if err := snap.DataTo(&p); err != nil {
			return nil, err
		}
		p.ID = snap.Ref.ID
		pizzas = append(pizzas, p)
	}
	sort.SliceStable(pizzas, func(i, j int) bool {
		return pizzas[i].CreatedAt.Before(pizzas[j].CreatedAt)
	})
	return pizzas, nil
}

// ==================== Rating Methods ====================

// ratingDocID keys ratings by (event, pizza, user) so Create enforces uniqueness
func ratingDocID(eventID, pizzaID, userID string) string {
	return eventID + "_" + pizzaID + "_" + userID
}

func ratingFromSnapshot(snap *firestore.DocumentSnapshot) (*models.Rating, error) {
	var rt models.Rating
	if err := snap.DataTo(&rt); err != nil {
		return nil, err
	}
	rt.ID = snap.Ref.ID
	return &rt, nil
}

func (r *FirestoreRepository) FindRating(ctx context.Context, eventID, pizzaID, userID string) (*models.Rating, error) {
	snap, err := r.client.Collection(ratingsCollection).Doc(ratingDocID(eventID, pizzaID, userID)).Get(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return ratingFromSnapshot(snap)
}

// CreateRating stores the rating under its composite key and rewrites rt.ID to match
func (r *FirestoreRepository) CreateRating(ctx context.Context, rt *models.Rating) error {
	id := ratingDocID(rt.EventID, rt.PizzaID, rt.UserID)
	if _, err := r.client.Collection(ratingsCollection).Doc(id).Create(ctx, rt); err != nil {
		return translate(err)
	}
	rt.ID = id
	return nil
}

func (r *FirestoreRepository) UpdateRating(ctx context.Context, rt *models.Rating) error {
	updates := []firestore.Update{
		{Path: "criteria", Value: rt.Criteria},
		{Path: "comments", Value: rt.Comments},
	}
	if rt.UpdatedAt != nil {
		updates = append(updates, firestore.Update{Path: "updatedAt", Value: *rt.UpdatedAt})
	}
	_, err := r.client.Collection(ratingsCollection).Doc(rt.ID).Update(ctx, updates)
	return translate(err)
}

func (r *FirestoreRepository) ListRatingsForEvent(ctx context.Context, eventID string) ([]models.Rating, error) {
	snaps, err := r.client.Collection(ratingsCollection).Where("eventId", "==", eventID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	ratings := make([]models.Rating, 0, len(snaps))
	for _, snap := range snaps {
		rt, err := ratingFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rt)
	}
	sort.SliceStable(ratings, func(i, j int) bool {
		return ratings[i].CreatedAt.Before(ratings[j].CreatedAt)
	})
	return ratings, nil
}
