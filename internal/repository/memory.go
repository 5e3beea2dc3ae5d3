package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parkall/internal/model"
)

// MemoryStore keeps all records in process memory.  It backs the
// "memory" store driver used for local development and tests.  All
// repositories handed out by one MemoryStore share a single mutex, so
// check-and-set operations such as Reserve are atomic.
type MemoryStore struct {
	mu sync.Mutex

	users        map[string]model.User
	credentials  map[string]model.Credential // keyed by uid
	spots        map[string]model.ParkingSpot
	reservations []model.Reservation
	seq          int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       map[string]model.User{},
		credentials: map[string]model.Credential{},
		spots:       map[string]model.ParkingSpot{},
	}
}

// Users returns the user repository view of the store.
func (m *MemoryStore) Users() *MemoryUserRepo { return &MemoryUserRepo{m: m} }

// Credentials returns the credential repository view of the store.
func (m *MemoryStore) Credentials() *MemoryCredentialRepo { return &MemoryCredentialRepo{m: m} }

// Spots returns the spot repository view of the store.
func (m *MemoryStore) Spots() *MemorySpotRepo { return &MemorySpotRepo{m: m} }

// Reservations returns the reservation history view of the store.
func (m *MemoryStore) Reservations() *MemoryReservationRepo { return &MemoryReservationRepo{m: m} }

// now returns a strictly increasing timestamp so insertion order is
// preserved even when the clock does not advance between calls.
func (m *MemoryStore) now() time.Time {
	m.seq++
	return time.Now().UTC().Add(time.Duration(m.seq))
}

type MemoryUserRepo struct{ m *MemoryStore }

func (r *MemoryUserRepo) Create(ctx context.Context, u *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range r.m.users {
		if existing.Email == u.Email || (u.ExternalRef != "" && existing.ExternalRef == u.ExternalRef) {
			return ErrEmailExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.m.now()
	}
	r.m.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *MemoryUserRepo) GetByExternalRef(ctx context.Context, ref string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ExternalRef == ref })
}

func (r *MemoryUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

type MemoryCredentialRepo struct{ m *MemoryStore }

func (r *MemoryCredentialRepo) Create(ctx context.Context, c *model.Credential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	for _, existing := range r.m.credentials {
		if existing.Email == c.Email {
			return ErrEmailExists
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.m.now()
	}
	r.m.credentials[c.UID] = *c
	return nil
}

func (r *MemoryCredentialRepo) GetByEmail(ctx context.Context, email string) (*model.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.credentials {
		if c.Email == email {
			c := c
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryCredentialRepo) DeleteByUID(ctx context.Context, uid string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.credentials, uid)
	return nil
}

type MemorySpotRepo struct{ m *MemoryStore }

func (r *MemorySpotRepo) Create(ctx context.Context, s *model.ParkingSpot) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.m.now()
	}
	s.UpdatedAt = s.CreatedAt
	r.m.spots[s.ID] = cloneSpot(*s)
	return nil
}

func (r *MemorySpotRepo) GetByID(ctx context.Context, id string) (*model.ParkingSpot, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.spots[id]
	if !ok {
		return nil, ErrNotFound
	}
	s = cloneSpot(s)
	return &s, nil
}

func (r *MemorySpotRepo) List(ctx context.Context) ([]model.SpotView, error) {
	return r.views(func(model.ParkingSpot) bool { return true }), nil
}

func (r *MemorySpotRepo) ListByPublisher(ctx context.Context, userID string) ([]model.SpotView, error) {
	return r.views(func(s model.ParkingSpot) bool { return s.PublisherID == userID }), nil
}

func (r *MemorySpotRepo) ListByReserver(ctx context.Context, userID string) ([]model.SpotView, error) {
	return r.views(func(s model.ParkingSpot) bool { return s.ReservedBy != nil && *s.ReservedBy == userID }), nil
}

func (r *MemorySpotRepo) views(match func(model.ParkingSpot) bool) []model.SpotView {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []model.SpotView{}
	for _, s := range r.m.spots {
		if !match(s) {
			continue
		}
		v := model.SpotView{ParkingSpot: cloneSpot(s)}
		if u, ok := r.m.users[s.PublisherID]; ok {
			u := u
			v.Publisher = &u
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *MemorySpotRepo) Update(ctx context.Context, s *model.ParkingSpot) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	cur, ok := r.m.spots[s.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Description = s.Description
	cur.Location = s.Location
	cur.Price = s.Price
	cur.Image = s.Image
	cur.UpdatedAt = r.m.now()
	s.UpdatedAt = cur.UpdatedAt
	r.m.spots[s.ID] = cloneSpot(cur)
	return nil
}

func (r *MemorySpotRepo) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.spots[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.spots, id)
	return nil
}

func (r *MemorySpotRepo) Reserve(ctx context.Context, spotID, userID string, rec *model.Reservation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.spots[spotID]
	if !ok || !s.Available || s.PublisherID == userID {
		return ErrConflict
	}
	s.Available = false
	s.ReservedBy = &userID
	s.UpdatedAt = r.m.now()
	r.m.spots[spotID] = s

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UserID = userID
	rec.SpotID = spotID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.UpdatedAt
	}
	r.m.reservations = append(r.m.reservations, *rec)
	return nil
}

func (r *MemorySpotRepo) Release(ctx context.Context, spotID, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.spots[spotID]
	if !ok || !s.IsReservedBy(userID) {
		return ErrConflict
	}
	s.Available = true
	s.ReservedBy = nil
	s.UpdatedAt = r.m.now()
	r.m.spots[spotID] = s
	return nil
}

type MemoryReservationRepo struct{ m *MemoryStore }

// ListBySpot returns the reservation history of a spot, newest first.
func (r *MemoryReservationRepo) ListBySpot(ctx context.Context, spotID string) ([]model.Reservation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []model.Reservation{}
	for i := len(r.m.reservations) - 1; i >= 0; i-- {
		if r.m.reservations[i].SpotID == spotID {
			out = append(out, r.m.reservations[i])
		}
	}
	return out, nil
}

func cloneSpot(s model.ParkingSpot) model.ParkingSpot {
	if s.ReservedBy != nil {
		v := *s.ReservedBy
		s.ReservedBy = &v
	}
	if s.Image != nil {
		v := *s.Image
		s.Image = &v
	}
	return s
}
