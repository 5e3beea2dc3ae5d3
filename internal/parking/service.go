// Package parking implements the reservation lifecycle of parking spots:
// publishing, listing, reserving, cancelling, editing and deleting.
//
// A spot moves between two states.  Reserve takes an available spot to
// reserved and CancelReservation takes it back; Edit and Delete are
// allowed in either state.  Reserve and CancelReservation never perform a
// plain read-then-write: the store applies each transition as a
// conditional update, so concurrent attempts on one spot cannot both win.
package parking

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/parkall/internal/metrics"
	"github.com/iliyamo/parkall/internal/model"
	"github.com/iliyamo/parkall/internal/queue"
	"github.com/iliyamo/parkall/internal/repository"
)

// SpotStore persists spots.  Reserve and Release must be atomic
// check-and-set operations that return repository.ErrConflict when the
// stored state does not permit the transition.
type SpotStore interface {
	Create(ctx context.Context, s *model.ParkingSpot) error
	GetByID(ctx context.Context, id string) (*model.ParkingSpot, error)
	List(ctx context.Context) ([]model.SpotView, error)
	ListByPublisher(ctx context.Context, userID string) ([]model.SpotView, error)
	ListByReserver(ctx context.Context, userID string) ([]model.SpotView, error)
	Update(ctx context.Context, s *model.ParkingSpot) error
	Delete(ctx context.Context, id string) error
	Reserve(ctx context.Context, spotID, userID string, rec *model.Reservation) error
	Release(ctx context.Context, spotID, userID string) error
}

// UserDirectory resolves user profiles.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// ReservationLog reads the append-only reservation history.
type ReservationLog interface {
	ListBySpot(ctx context.Context, spotID string) ([]model.Reservation, error)
}

// ImageReleaser frees stored images that are no longer referenced.
type ImageReleaser interface {
	Release(ctx context.Context, ref string) error
}

// EventPublisher announces committed state changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.SpotEvent) error
}

// Recorder counts domain outcomes.
type Recorder interface {
	RecordReservation(result string)
	RecordCancellation(result string)
	RecordPublished()
	RecordDeleted()
}

// Deps bundles the collaborators of a Service.  Spots, Users and History
// are required; the rest may be nil.
type Deps struct {
	Spots   SpotStore
	Users   UserDirectory
	History ReservationLog
	Images  ImageReleaser
	Events  EventPublisher
	Metrics Recorder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Service is the reservation manager.
type Service struct {
	spots   SpotStore
	users   UserDirectory
	history ReservationLog
	images  ImageReleaser
	events  EventPublisher
	metrics Recorder
	log     *slog.Logger
	now     func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		spots:   d.Spots,
		users:   d.Users,
		history: d.History,
		images:  d.Images,
		events:  d.Events,
		metrics: d.Metrics,
		log:     d.Logger,
		now:     d.Now,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PublishInput holds the fields of a new listing.  Image is the reference
// returned by the image store, or nil.
type PublishInput struct {
	PublisherID string
	Description string
	Location    string
	Price       float64
	Image       *string
}

// Publish creates an available spot owned by in.PublisherID.
func (s *Service) Publish(ctx context.Context, in PublishInput) (*model.ParkingSpot, error) {
	if err := validID(in.PublisherID, "publisher id"); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	loc := strings.TrimSpace(in.Location)
	if desc == "" {
		return nil, model.InvalidInput("description is required")
	}
	if loc == "" {
		return nil, model.InvalidInput("location is required")
	}
	if err := validPrice(in.Price); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, in.PublisherID); err != nil {
		return nil, s.lookupErr(err, "publisher not found", "load publisher")
	}

	spot := &model.ParkingSpot{
		Description: desc,
		Location:    loc,
		Price:       in.Price,
		PublisherID: in.PublisherID,
		Available:   true,
		Image:       in.Image,
	}
	if err := s.spots.Create(ctx, spot); err != nil {
		return nil, s.internal("create spot", err)
	}

	s.metrics.RecordPublished()
	s.emit(ctx, queue.SpotEvent{Type: queue.SpotPublished, SpotID: spot.ID, PublisherID: spot.PublisherID})
	s.log.Info("spot published", "spot_id", spot.ID, "publisher_id", spot.PublisherID)
	return spot, nil
}

// Get returns a single spot.
func (s *Service) Get(ctx context.Context, spotID string) (*model.ParkingSpot, error) {
	if err := validID(spotID, "spot id"); err != nil {
		return nil, err
	}
	spot, err := s.spots.GetByID(ctx, spotID)
	if err != nil {
		return nil, s.lookupErr(err, "parking spot not found", "load spot")
	}
	return spot, nil
}

// List returns every spot in publication order with its publisher resolved.
func (s *Service) List(ctx context.Context) ([]model.SpotView, error) {
	views, err := s.spots.List(ctx)
	if err != nil {
		return nil, s.internal("list spots", err)
	}
	return views, nil
}

// Reserve claims an available spot for userID.
//
// Checks run in this order: the spot exists, it is available, userID is
// not its publisher, and userID is a known user.  The claim itself is a
// conditional write; losing a race to another reserver yields Conflict.
func (s *Service) Reserve(ctx context.Context, spotID, userID string) (spot *model.ParkingSpot, err error) {
	defer func() { s.metrics.RecordReservation(resultOf(err)) }()

	if err := validID(spotID, "spot id"); err != nil {
		return nil, err
	}
	if err := validID(userID, "user id"); err != nil {
		return nil, err
	}
	spot, err = s.spots.GetByID(ctx, spotID)
	if err != nil {
		return nil, s.lookupErr(err, "parking spot not found", "load spot")
	}
	if !spot.Available {
		return nil, model.Conflict("parking spot is already reserved")
	}
	if spot.PublisherID == userID {
		return nil, model.Forbidden("cannot reserve your own parking spot")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, s.lookupErr(err, "user not found", "load user")
	}

	var rec model.Reservation
	if err := s.spots.Reserve(ctx, spotID, userID, &rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.diagnose(ctx, spotID, userID, true)
		}
		return nil, s.internal("reserve spot", err)
	}

	spot.Available = false
	spot.ReservedBy = &userID
	if !rec.CreatedAt.IsZero() {
		spot.UpdatedAt = rec.CreatedAt
	}
	s.emit(ctx, queue.SpotEvent{Type: queue.SpotReserved, SpotID: spotID, UserID: userID, PublisherID: spot.PublisherID})
	s.log.Info("spot reserved", "spot_id", spotID, "user_id", userID, "reservation_id", rec.ID)
	return spot, nil
}

// CancelReservation releases a spot held by userID.
func (s *Service) CancelReservation(ctx context.Context, spotID, userID string) (spot *model.ParkingSpot, err error) {
	defer func() { s.metrics.RecordCancellation(resultOf(err)) }()

	if err := validID(spotID, "spot id"); err != nil {
		return nil, err
	}
	if err := validID(userID, "user id"); err != nil {
		return nil, err
	}
	spot, err = s.spots.GetByID(ctx, spotID)
	if err != nil {
		return nil, s.lookupErr(err, "parking spot not found", "load spot")
	}
	if spot.Available {
		return nil, model.Conflict("parking spot is already available")
	}
	if !spot.IsReservedBy(userID) {
		return nil, model.Forbidden("only the user holding the reservation can cancel it")
	}

	if err := s.spots.Release(ctx, spotID, userID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, s.diagnose(ctx, spotID, userID, false)
		}
		return nil, s.internal("release spot", err)
	}

	spot.Available = true
	spot.ReservedBy = nil
	spot.UpdatedAt = s.now().UTC()
	s.emit(ctx, queue.SpotEvent{Type: queue.SpotReservationCanceled, SpotID: spotID, UserID: userID, PublisherID: spot.PublisherID})
	s.log.Info("reservation cancelled", "spot_id", spotID, "user_id", userID)
	return spot, nil
}

// diagnose explains why a conditional write matched no row by looking at
// the spot as it is now.
func (s *Service) diagnose(ctx context.Context, spotID, userID string, reserving bool) error {
	cur, err := s.spots.GetByID(ctx, spotID)
	if err != nil {
		return s.lookupErr(err, "parking spot not found", "reload spot")
	}
	if reserving {
		if cur.PublisherID == userID {
			return model.Forbidden("cannot reserve your own parking spot")
		}
		return model.Conflict("parking spot is already reserved")
	}
	if cur.Available {
		return model.Conflict("parking spot is already available")
	}
	return model.Forbidden("only the user holding the reservation can cancel it")
}

// Edit applies patch to a spot and, when image is non-nil, replaces its
// image.  The replaced image is released on a best-effort basis.
func (s *Service) Edit(ctx context.Context, spotID string, patch model.SpotPatch, image *string) (*model.ParkingSpot, error) {
	if err := validID(spotID, "spot id"); err != nil {
		return nil, err
	}
	if err := validPatch(&patch); err != nil {
		return nil, err
	}
	spot, err := s.spots.GetByID(ctx, spotID)
	if err != nil {
		return nil, s.lookupErr(err, "parking spot not found", "load spot")
	}
	if patch.Empty() && image == nil {
		return spot, nil
	}

	patch.Apply(spot)
	old := spot.Image
	if image != nil {
		spot.Image = image
	}
	if err := s.spots.Update(ctx, spot); err != nil {
		return nil, s.lookupErr(err, "parking spot not found", "update spot")
	}

	if image != nil && old != nil && *old != *image {
		s.releaseImage(ctx, spotID, *old)
	}
	s.log.Info("spot edited", "spot_id", spotID)
	return spot, nil
}

// Delete removes a spot and releases its image, if any.
func (s *Service) Delete(ctx context.Context, spotID string) error {
	if err := validID(spotID, "spot id"); err != nil {
		return err
	}
	spot, err := s.spots.GetByID(ctx, spotID)
	if err != nil {
		return s.lookupErr(err, "parking spot not found", "load spot")
	}
	if err := s.spots.Delete(ctx, spotID); err != nil {
		return s.lookupErr(err, "parking spot not found", "delete spot")
	}
	if spot.Image != nil {
		s.releaseImage(ctx, spotID, *spot.Image)
	}

	s.metrics.RecordDeleted()
	s.emit(ctx, queue.SpotEvent{Type: queue.SpotDeleted, SpotID: spotID, PublisherID: spot.PublisherID})
	s.log.Info("spot deleted", "spot_id", spotID)
	return nil
}

// ListReservedBy returns the spots currently reserved by userID.  An empty
// result is not an error.
func (s *Service) ListReservedBy(ctx context.Context, userID string) ([]model.SpotView, error) {
	if err := validID(userID, "user id"); err != nil {
		return nil, err
	}
	views, err := s.spots.ListByReserver(ctx, userID)
	if err != nil {
		return nil, s.internal("list reserved spots", err)
	}
	return views, nil
}

// ListPublishedBy returns the spots published by userID.  Unlike
// ListReservedBy, an empty result is reported as NotFound.
func (s *Service) ListPublishedBy(ctx context.Context, userID string) ([]model.SpotView, error) {
	if err := validID(userID, "user id"); err != nil {
		return nil, err
	}
	views, err := s.spots.ListByPublisher(ctx, userID)
	if err != nil {
		return nil, s.internal("list published spots", err)
	}
	if len(views) == 0 {
		return nil, model.NotFound("no parking spots published by this user")
	}
	return views, nil
}

// History returns the reservation records of a spot, newest first.
func (s *Service) History(ctx context.Context, spotID string) ([]model.Reservation, error) {
	if _, err := s.Get(ctx, spotID); err != nil {
		return nil, err
	}
	recs, err := s.history.ListBySpot(ctx, spotID)
	if err != nil {
		return nil, s.internal("list reservations", err)
	}
	return recs, nil
}

func (s *Service) releaseImage(ctx context.Context, spotID, ref string) {
	if s.images == nil {
		return
	}
	if err := s.images.Release(ctx, ref); err != nil {
		s.log.Warn("image release failed", "spot_id", spotID, "image", ref, "error", err)
	}
}

func (s *Service) emit(ctx context.Context, ev queue.SpotEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed", "type", ev.Type, "spot_id", ev.SpotID, "error", err)
	}
}

// lookupErr maps a repository error to NotFound or Internal.
func (s *Service) lookupErr(err error, notFound, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return model.NotFound(notFound)
	}
	return s.internal(op, err)
}

func (s *Service) internal(op string, err error) error {
	s.log.Error("storage failure", "op", op, "error", err)
	return model.Internal(op+" failed", err)
}

func validID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.InvalidInput("invalid " + what)
	}
	return nil
}

func validPrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return model.InvalidInput("price must be a non-negative number")
	}
	return nil
}

// validPatch trims the text slots and rejects values that would break the
// spot invariants.
func validPatch(p *model.SpotPatch) error {
	if p.Description != nil {
		v := strings.TrimSpace(*p.Description)
		if v == "" {
			return model.InvalidInput("description cannot be empty")
		}
		p.Description = &v
	}
	if p.Location != nil {
		v := strings.TrimSpace(*p.Location)
		if v == "" {
			return model.InvalidInput("location cannot be empty")
		}
		p.Location = &v
	}
	if p.Price != nil {
		if err := validPrice(*p.Price); err != nil {
			return err
		}
	}
	return nil
}

func resultOf(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	switch model.KindOf(err) {
	case model.KindConflict:
		return metrics.ResultConflict
	case model.KindForbidden:
		return metrics.ResultForbidden
	case model.KindNotFound:
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordReservation(string)  {}
func (nopRecorder) RecordCancellation(string) {}
func (nopRecorder) RecordPublished()          {}
func (nopRecorder) RecordDeleted()            {}
