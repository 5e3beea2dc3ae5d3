package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/parkall/internal/model"
)

func seedSpot(t *testing.T, m *MemoryStore, publisherID string) *model.ParkingSpot {
	t.Helper()
	s := &model.ParkingSpot{Description: "garage", Location: "Main St 1", Price: 5, PublisherID: publisherID, Available: true}
	if err := m.Spots().Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return s
}

func TestMemorySpotRepo_ConcurrentReserve(t *testing.T) {
	m := NewMemoryStore()
	spot := seedSpot(t, m, "publisher")

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := m.Spots().Reserve(context.Background(), spot.ID, "user-"+string(rune('a'+i%26)), &model.Reservation{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 1 || conflicts != n-1 {
		t.Fatalf("ok=%d conflicts=%d, want 1 and %d", ok, conflicts, n-1)
	}
	hist, _ := m.Reservations().ListBySpot(context.Background(), spot.ID)
	if len(hist) != 1 {
		t.Errorf("history len = %d, want 1", len(hist))
	}
}

func TestMemorySpotRepo_ReserveOwnSpotConflicts(t *testing.T) {
	m := NewMemoryStore()
	spot := seedSpot(t, m, "publisher")
	if err := m.Spots().Reserve(context.Background(), spot.ID, "publisher", &model.Reservation{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestMemorySpotRepo_ReleaseOnlyByReserver(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	spot := seedSpot(t, m, "publisher")
	if err := m.Spots().Reserve(ctx, spot.ID, "user-b", &model.Reservation{}); err != nil {
		t.Fatal(err)
	}
	if err := m.Spots().Release(ctx, spot.ID, "user-c"); !errors.Is(err, ErrConflict) {
		t.Fatalf("release by stranger: err = %v, want ErrConflict", err)
	}
	if err := m.Spots().Release(ctx, spot.ID, "user-b"); err != nil {
		t.Fatalf("release by reserver: %v", err)
	}
	got, _ := m.Spots().GetByID(ctx, spot.ID)
	if !got.Available || got.ReservedBy != nil {
		t.Errorf("spot not released: %+v", got)
	}
}

func TestMemorySpotRepo_UpdateKeepsReservation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	spot := seedSpot(t, m, "publisher")
	if err := m.Spots().Reserve(ctx, spot.ID, "user-b", &model.Reservation{}); err != nil {
		t.Fatal(err)
	}

	// a stale copy loaded before the reservation must not undo it
	stale := *spot
	stale.Description = "renamed"
	if err := m.Spots().Update(ctx, &stale); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Spots().GetByID(ctx, spot.ID)
	if got.Description != "renamed" || !got.IsReservedBy("user-b") {
		t.Errorf("got %+v", got)
	}
}

func TestMemorySpotRepo_ListsInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	u := &model.User{Name: "Ana", Email: "ana@example.com", ExternalRef: "uid-a"}
	if err := m.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	first := seedSpot(t, m, u.ID)
	second := seedSpot(t, m, "other")
	third := seedSpot(t, m, u.ID)

	all, _ := m.Spots().List(ctx)
	if len(all) != 3 || all[0].ID != first.ID || all[1].ID != second.ID || all[2].ID != third.ID {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[0].Publisher == nil || all[0].Publisher.Name != "Ana" {
		t.Errorf("publisher not resolved")
	}
	mine, _ := m.Spots().ListByPublisher(ctx, u.ID)
	if len(mine) != 2 {
		t.Errorf("ListByPublisher len = %d, want 2", len(mine))
	}
	reserved, _ := m.Spots().ListByReserver(ctx, u.ID)
	if reserved == nil || len(reserved) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", reserved)
	}
}

func TestMemoryUserRepo_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.Users().Create(ctx, &model.User{Name: "Ana", Email: "ana@example.com", ExternalRef: "uid-a"}); err != nil {
		t.Fatal(err)
	}
	err := m.Users().Create(ctx, &model.User{Name: "Ana 2", Email: "ANA@example.com", ExternalRef: "uid-b"})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
	if _, err := m.Users().GetByEmail(ctx, " Ana@Example.com"); err != nil {
		t.Errorf("GetByEmail: %v", err)
	}
}
