// Package repository contains data access logic separated from HTTP handlers.
// This file defines the parking spot repository.  Reservation state is
// only ever changed through Reserve and Release, which use conditional
// updates so that two concurrent transitions on the same spot cannot
// both succeed.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parkall/internal/model"
)

// SpotRepo encapsulates all database queries related to parking spots.
type SpotRepo struct {
	db           *sql.DB
	reservations *ReservationRepo
}

// NewSpotRepo constructs a SpotRepo with the provided DB handle.
func NewSpotRepo(db *sql.DB) *SpotRepo {
	return &SpotRepo{db: db, reservations: NewReservationRepo(db)}
}

const spotColumns = `s.id, s.description, s.location, s.price, s.publisher_id,
	s.available, s.reserved_by, s.image, s.created_at, s.updated_at`

const spotViewSelect = `SELECT ` + spotColumns + `, u.id, u.name, u.email
	FROM parking_spots s
	LEFT JOIN users u ON u.id = s.publisher_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpot(row rowScanner, extra ...any) (*model.ParkingSpot, error) {
	var (
		s          model.ParkingSpot
		reservedBy sql.NullString
		image      sql.NullString
	)
	dest := []any{&s.ID, &s.Description, &s.Location, &s.Price, &s.PublisherID,
		&s.Available, &reservedBy, &image, &s.CreatedAt, &s.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if reservedBy.Valid {
		v := reservedBy.String
		s.ReservedBy = &v
	}
	if image.Valid {
		v := image.String
		s.Image = &v
	}
	return &s, nil
}

// Create inserts a new spot. ID and timestamps are filled in when empty.
func (r *SpotRepo) Create(ctx context.Context, s *model.ParkingSpot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = s.CreatedAt
	const q = `INSERT INTO parking_spots
	           (id, description, location, price, publisher_id, available, reserved_by, image, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Description, s.Location, s.Price, s.PublisherID,
		s.Available, nullString(s.ReservedBy), nullString(s.Image), s.CreatedAt, s.UpdatedAt)
	return err
}

// GetByID fetches a spot by id. It returns ErrNotFound if no row exists.
func (r *SpotRepo) GetByID(ctx context.Context, id string) (*model.ParkingSpot, error) {
	q := `SELECT ` + spotColumns + ` FROM parking_spots s WHERE s.id = ?`
	s, err := scanSpot(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns every spot with its publisher, in publication order.
func (r *SpotRepo) List(ctx context.Context) ([]model.SpotView, error) {
	return r.listViews(ctx, spotViewSelect+` ORDER BY s.created_at, s.id`)
}

// ListByPublisher returns the spots published by userID.
func (r *SpotRepo) ListByPublisher(ctx context.Context, userID string) ([]model.SpotView, error) {
	return r.listViews(ctx, spotViewSelect+` WHERE s.publisher_id = ? ORDER BY s.created_at, s.id`, userID)
}

// ListByReserver returns the spots currently reserved by userID.
func (r *SpotRepo) ListByReserver(ctx context.Context, userID string) ([]model.SpotView, error) {
	return r.listViews(ctx, spotViewSelect+` WHERE s.reserved_by = ? ORDER BY s.created_at, s.id`, userID)
}

func (r *SpotRepo) listViews(ctx context.Context, q string, args ...any) ([]model.SpotView, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SpotView{}
	for rows.Next() {
		var uid, uname, uemail sql.NullString
		s, err := scanSpot(rows, &uid, &uname, &uemail)
		if err != nil {
			return nil, err
		}
		v := model.SpotView{ParkingSpot: *s}
		if uid.Valid {
			v.Publisher = &model.User{ID: uid.String, Name: uname.String, Email: uemail.String}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the editable fields (description, location, price, image).
// Availability is deliberately not part of the statement so that an edit
// can never overwrite a concurrent reservation.
func (r *SpotRepo) Update(ctx context.Context, s *model.ParkingSpot) error {
	s.UpdatedAt = time.Now().UTC()
	const q = `UPDATE parking_spots
	           SET description = ?, location = ?, price = ?, image = ?, updated_at = ?
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, s.Description, s.Location, s.Price, nullString(s.Image), s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an unchanged row too; tell the two apart.
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a spot. It returns ErrNotFound when nothing was deleted.
func (r *SpotRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM parking_spots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Reserve claims an available spot for userID and appends rec to the
// reservation history in the same transaction.  The claim is a single
// conditional UPDATE; when it matches no row the spot was either missing
// or already reserved and ErrConflict is returned.
func (r *SpotRepo) Reserve(ctx context.Context, spotID, userID string, rec *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `UPDATE parking_spots
	           SET available = 0, reserved_by = ?, updated_at = ?
	           WHERE id = ? AND available = 1 AND publisher_id <> ?`
	res, err := tx.ExecContext(ctx, q, userID, time.Now().UTC(), spotID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}

	rec.UserID = userID
	rec.SpotID = spotID
	if err := r.reservations.CreateTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Release frees a spot reserved by userID.  It returns ErrConflict when
// the spot is not currently reserved by that user.
func (r *SpotRepo) Release(ctx context.Context, spotID, userID string) error {
	const q = `UPDATE parking_spots
	           SET available = 1, reserved_by = NULL, updated_at = ?
	           WHERE id = ? AND available = 0 AND reserved_by = ?`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), spotID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
