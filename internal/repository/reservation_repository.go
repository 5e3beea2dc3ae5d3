package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parkall/internal/model"
)

// ReservationRepo provides access to the append-only reservations table.
type ReservationRepo struct {
	db *sql.DB
}

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a reservation record within the provided transaction.
// ID and CreatedAt are filled in when empty.  The caller is responsible
// for committing or rolling back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (id, user_id, spot_id, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SpotID, rec.CreatedAt)
	return err
}

// ListBySpot returns the reservation history of a spot, newest first.
func (r *ReservationRepo) ListBySpot(ctx context.Context, spotID string) ([]model.Reservation, error) {
	const q = `SELECT id, user_id, spot_id, created_at
	           FROM reservations
	           WHERE spot_id = ?
	           ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, spotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		var rec model.Reservation
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SpotID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
