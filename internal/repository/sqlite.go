package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/pizzarate/internal/membership"
	"github.com/abrezinsky/pizzarate/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository provides data access methods backed by SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// SQLite works best with a single connection; it also keeps :memory: alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate applies the embedded schema migrations
func (r *Repository) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	// m.Close would close r.db through the driver, so it is not called
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// ==================== User Methods ====================

// GetUserProfile retrieves a profile by uid
func (r *Repository) GetUserProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var (
		p          models.UserProfile
		email      sql.NullString
		upgradedAt sql.NullTime
		originalID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT uid, display_name, email, is_anonymous, avatar_color, created_at, upgraded_at, original_anonymous_id
		FROM users WHERE uid = ?
	`, uid).Scan(&p.UID, &p.DisplayName, &email, &p.IsAnonymous, &p.AvatarColor, &p.CreatedAt, &upgradedAt, &originalID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Email = email.String
	p.UpgradedAt = timePtr(upgradedAt)
	p.OriginalAnonymousID = originalID.String
	p.Persisted = true
	return &p, nil
}

// CreateUserProfile inserts a new profile
func (r *Repository) CreateUserProfile(ctx context.Context, p *models.UserProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (uid, display_name, email, is_anonymous, avatar_color, created_at, upgraded_at, original_anonymous_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.UID, p.DisplayName, nullString(p.Email), p.IsAnonymous, p.AvatarColor, p.CreatedAt.UTC(),
		nullTime(p.UpgradedAt), nullString(p.OriginalAnonymousID))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	p.Persisted = true
	return nil
}

// UpdateUserProfile overwrites the mutable profile fields
func (r *Repository) UpdateUserProfile(ctx context.Context, p *models.UserProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET display_name = ?, email = ?, is_anonymous = ?, avatar_color = ?, upgraded_at = ?, original_anonymous_id = ?
		WHERE uid = ?
	`, p.DisplayName, nullString(p.Email), p.IsAnonymous, p.AvatarColor, nullTime(p.UpgradedAt),
		nullString(p.OriginalAnonymousID), p.UID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ==================== Event Methods ====================

const eventColumns = `e.id, e.created_by, e.title, e.description, e.date, e.location, e.status, e.join_policy, e.created_at`

// CreateEvent inserts the event with its participant and pending sets
func (r *Repository) CreateEvent(ctx context.Context, e *models.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, created_by, title, description, date, location, status, join_policy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.CreatedBy, e.Title, e.Description, e.Date, e.Location, string(e.Status), string(e.JoinPolicy), e.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, uid := range e.Participants {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO event_participants (event_id, uid, added_at) VALUES (?, ?, ?)`, e.ID, uid, now); err != nil {
			return err
		}
	}
	for _, uid := range e.PendingRequests {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO event_pending_requests (event_id, uid, added_at) VALUES (?, ?, ?)`, e.ID, uid, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetEvent retrieves an event with its membership sets
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	var status, policy string
	err := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id).
		Scan(&e.ID, &e.CreatedBy, &e.Title, &e.Description, &e.Date, &e.Location, &status, &policy, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Status = models.EventStatus(status)
	e.JoinPolicy = models.JoinPolicy(policy)

	if err := r.loadMembers(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEventsCreatedBy returns events created by uid, newest first
func (r *Repository) ListEventsCreatedBy(ctx context.Context, uid string) ([]models.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.created_by = ? ORDER BY e.created_at DESC`, uid)
}

// ListEventsWithParticipant returns events whose participants include uid, newest first
func (r *Repository) ListEventsWithParticipant(ctx context.Context, uid string) ([]models.Event, error) {
	return r.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN event_participants p ON p.event_id = e.id
		WHERE p.uid = ?
		ORDER BY e.created_at DESC
	`, uid)
}

func (r *Repository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	events := []models.Event{}
	for rows.Next() {
		var e models.Event
		var status, policy string
		if err := rows.Scan(&e.ID, &e.CreatedBy, &e.Title, &e.Description, &e.Date, &e.Location, &status, &policy, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		e.Status = models.EventStatus(status)
		e.JoinPolicy = models.JoinPolicy(policy)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the single connection before loading member sets
	rows.Close()

	for i := range events {
		if err := r.loadMembers(ctx, &events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (r *Repository) loadMembers(ctx context.Context, e *models.Event) error {
	var err error
	if e.Participants, err = r.memberSet(ctx, "event_participants", e.ID); err != nil {
		return err
	}
	if e.PendingRequests, err = r.memberSet(ctx, "event_pending_requests", e.ID); err != nil {
		return err
	}
	e.Normalize()
	return nil
}

// memberSet reads one membership table. table is always one of two constants.
func (r *Repository) memberSet(ctx context.Context, table, eventID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT uid FROM `+table+` WHERE event_id = ? ORDER BY added_at, rowid`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uids := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// ApplyMembership applies all edits of change in one transaction
func (r *Repository) ApplyMembership(ctx context.Context, eventID, uid string, change membership.Change) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	stmts := []struct {
		apply bool
		query string
		args  []interface{}
	}{
		{change.RemovePending, `DELETE FROM event_pending_requests WHERE event_id = ? AND uid = ?`, []interface{}{eventID, uid}},
		{change.RemoveParticipant, `DELETE FROM event_participants WHERE event_id = ? AND uid = ?`, []interface{}{eventID, uid}},
		{change.AddParticipant, `INSERT OR IGNORE INTO event_participants (event_id, uid, added_at) VALUES (?, ?, ?)`, []interface{}{eventID, uid, now}},
		{change.AddPending, `INSERT OR IGNORE INTO event_pending_requests (event_id, uid, added_at) VALUES (?, ?, ?)`, []interface{}{eventID, uid, now}},
	}
	for _, s := range stmts {
		if !s.apply {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AdvanceEventStatus moves the status forward in a single conditional update
func (r *Repository) AdvanceEventStatus(ctx context.Context, eventID string, status models.EventStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET status = ?
		WHERE id = ?
		AND (CASE status WHEN 'upcoming' THEN 0 WHEN 'in-progress' THEN 1 ELSE 2 END) < ?
	`, string(status), eventID, status.Rank())
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	return false, err
}

// ==================== Pizza Methods ====================

// CreatePizza inserts a pizza
func (r *Repository) CreatePizza(ctx context.Context, p *models.Pizza) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pizzas (id, event_id, name, description, image_url, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.EventID, p.Name, p.Description, nullString(p.ImageURL), p.CreatedBy, p.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetPizza retrieves a pizza by ID
func (r *Repository) GetPizza(ctx context.Context, id string) (*models.Pizza, error) {
	var p models.Pizza
	var imageURL sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, name, description, image_url, created_by, created_at FROM pizzas WHERE id = ?
	`, id).Scan(&p.ID, &p.EventID, &p.Name, &p.Description, &imageURL, &p.CreatedBy, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL.String
	return &p, nil
}

// ListPizzasForEvent returns an event's pizzas in the order they were added
func (r *Repository) ListPizzasForEvent(ctx context.Context, eventID string) ([]models.Pizza, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, name, description, image_url, created_by, created_at
		FROM pizzas WHERE event_id = ?
		ORDER BY created_at, rowid
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pizzas := []models.Pizza{}
	for rows.Next() {
		var p models.Pizza
		var imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.EventID, &p.Name, &p.Description, &imageURL, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ImageURL = imageURL.String
		pizzas = append(pizzas, p)
	}
	return pizzas, rows.Err()
}

// ==================== Rating Methods ====================

const ratingColumns = `id, event_id, pizza_id, user_id, criteria, comments, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRating(s rowScanner) (*models.Rating, error) {
	var (
		rt        models.Rating
		criteria  string
		updatedAt sql.NullTime
	)
	if err := s.Scan(&rt.ID, &rt.EventID, &rt.PizzaID, &rt.UserID, &criteria, &rt.Comments, &rt.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(criteria), &rt.Criteria); err != nil {
		return nil, fmt.Errorf("rating %s: invalid criteria: %w", rt.ID, err)
	}
	rt.UpdatedAt = timePtr(updatedAt)
	return &rt, nil
}

// FindRating looks up the rating for one (event, pizza, user)
func (r *Repository) FindRating(ctx context.Context, eventID, pizzaID, userID string) (*models.Rating, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ratingColumns+` FROM ratings WHERE event_id = ? AND pizza_id = ? AND user_id = ?
	`, eventID, pizzaID, userID)
	rt, err := scanRating(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rt, err
}

// CreateRating inserts a rating
func (r *Repository) CreateRating(ctx context.Context, rt *models.Rating) error {
	criteria, err := json.Marshal(rt.Criteria)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ratings (`+ratingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rt.ID, rt.EventID, rt.PizzaID, rt.UserID, string(criteria), rt.Comments, rt.CreatedAt.UTC(), nullTime(rt.UpdatedAt))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// UpdateRating replaces a rating's scores and comments
func (r *Repository) UpdateRating(ctx context.Context, rt *models.Rating) error {
	criteria, err := json.Marshal(rt.Criteria)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE ratings SET criteria = ?, comments = ?, updated_at = ? WHERE id = ?
	`, string(criteria), rt.Comments, nullTime(rt.UpdatedAt), rt.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRatingsForEvent returns every rating in an event
func (r *Repository) ListRatingsForEvent(ctx context.Context, eventID string) ([]models.Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ratingColumns+` FROM ratings WHERE event_id = ? ORDER BY created_at, rowid
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := []models.Rating{}
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rt)
	}
	return ratings, rows.Err()
}
