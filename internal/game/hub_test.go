package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aradabingo/bingomaster/internal/models"
)

type fakeArchiver struct {
	mu    sync.Mutex
	snaps []models.RoundSnapshot
	err   error
	done  chan struct{}
}

func newFakeArchiver() *fakeArchiver {
	return &fakeArchiver{done: make(chan struct{}, 8)}
}

func (f *fakeArchiver) PersistRound(ctx context.Context, snap models.RoundSnapshot) error {
	f.mu.Lock()
	f.snaps = append(f.snaps, snap)
	f.mu.Unlock()
	f.done <- struct{}{}
	return f.err
}

func (f *fakeArchiver) wait(t *testing.T) models.RoundSnapshot {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for archive")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[len(f.snaps)-1]
}

func newTestHub(archiver RoundArchiver) (*Hub, *Registry) {
	r := testRegistry(5, 5)
	b := testBroadcaster()
	h := NewHub(r, b, archiver, DefaultPatterns(), quietLogger())
	return h, r
}

func TestHubOneOpenRoundPerShop(t *testing.T) {
	h, _ := newTestHub(nil)

	s, err := h.Create(5)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if s.Status() != models.RoundPending {
		t.Fatalf("expected pending, got %s", s.Status())
	}

	if _, err := h.Create(5); !errors.Is(err, ErrRoundAlreadyActive) {
		t.Fatalf("expected ErrRoundAlreadyActive, got %v", err)
	}

	if err := s.End("cancel"); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if _, err := h.Create(5); err != nil {
		t.Fatalf("create after finish failed: %v", err)
	}
}

func TestHubCreateUnknownShop(t *testing.T) {
	h, _ := newTestHub(nil)
	if _, err := h.Create(404); !errors.Is(err, ErrShopNotFound) {
		t.Fatalf("expected ErrShopNotFound, got %v", err)
	}
}

func TestHubGetAndDispatch(t *testing.T) {
	h, _ := newTestHub(nil)

	if _, err := h.Get(5); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("expected ErrNoActiveRound, got %v", err)
	}
	if err := h.Start(5); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("dispatch to missing round: expected ErrNoActiveRound, got %v", err)
	}

	if _, err := h.Create(5); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := h.Book(5, 1, "E14"); err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if _, _, err := h.DrawNext(5); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := h.Unbook(5, 1, "E14", false); err != nil {
		t.Fatalf("unbook failed: %v", err)
	}
	if err := h.End(5, "cancel"); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if _, err := h.Get(5); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("finished round should not be gettable, got %v", err)
	}
}

func TestHubRemove(t *testing.T) {
	h, _ := newTestHub(nil)

	if err := h.Remove(5); !errors.Is(err, ErrNoActiveRound) {
		t.Fatalf("expected ErrNoActiveRound, got %v", err)
	}

	s, err := h.Create(5)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.Remove(5); !errors.Is(err, ErrRoundNotFinished) {
		t.Fatalf("expected ErrRoundNotFinished, got %v", err)
	}
	if err := s.End("done"); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if err := h.Remove(5); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
}

func TestHubArchivesFinishedRound(t *testing.T) {
	archiver := newFakeArchiver()
	h, _ := newTestHub(archiver)

	if _, err := h.Create(5); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, _, err := h.DrawNext(5); err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if err := h.End(5, "cancel"); err != nil {
		t.Fatalf("end failed: %v", err)
	}

	snap := archiver.wait(t)
	if snap.ShopID != 5 {
		t.Fatalf("expected shop 5 snapshot, got %d", snap.ShopID)
	}
	if snap.EndReason != "cancel" {
		t.Fatalf("expected cancel reason, got %s", snap.EndReason)
	}
	if len(snap.DrawnNumbers) != 1 {
		t.Fatalf("expected 1 drawn number, got %d", len(snap.DrawnNumbers))
	}
}

func TestHubAttachDeliversSnapshotFirst(t *testing.T) {
	h, _ := newTestHub(nil)

	if _, err := h.Create(5); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	drawn := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		n, _, err := h.DrawNext(5)
		if err != nil {
			t.Fatalf("draw failed: %v", err)
		}
		drawn = append(drawn, n)
	}

	ch := h.Attach(5, "conn-1")
	defer h.Detach(5, "conn-1")

	ev := <-ch
	if ev.Type != models.EventSnapshot {
		t.Fatalf("expected snapshot first, got %s", ev.Type)
	}
	snap := ev.Payload.(models.SnapshotPayload)
	if snap.Status != models.RoundActive {
		t.Fatalf("expected active status, got %s", snap.Status)
	}
	if len(snap.DrawnNumbers) != 3 {
		t.Fatalf("expected 3 drawn numbers, got %d", len(snap.DrawnNumbers))
	}
	for i := range drawn {
		if snap.DrawnNumbers[i] != drawn[i] {
			t.Fatalf("snapshot history mismatch: %v vs %v", snap.DrawnNumbers, drawn)
		}
	}

	// Live events resume after the snapshot.
	n, _, err := h.DrawNext(5)
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	ev = <-ch
	if ev.Type != models.EventNumberDrawn {
		t.Fatalf("expected number_drawn, got %s", ev.Type)
	}
	if got := ev.Payload.(models.NumberDrawnPayload).Number; got != n {
		t.Fatalf("expected %d, got %d", n, got)
	}
}

func TestHubAttachWithoutRoundSendsIdleSnapshot(t *testing.T) {
	h, _ := newTestHub(nil)

	ch := h.Attach(5, "conn-1")
	defer h.Detach(5, "conn-1")

	ev := <-ch
	if ev.Type != models.EventSnapshot {
		t.Fatalf("expected snapshot, got %s", ev.Type)
	}
	snap := ev.Payload.(models.SnapshotPayload)
	if snap.Status != models.RoundIdle {
		t.Fatalf("expected idle status, got %s", snap.Status)
	}
	if len(snap.DrawnNumbers) != 0 {
		t.Fatalf("expected empty history, got %v", snap.DrawnNumbers)
	}
}

// Two subscribers attached at different points must both see the same
// ordered tail after their snapshots.
func TestHubSubscribersSeeIdenticalOrderedEvents(t *testing.T) {
	h, _ := newTestHub(nil)

	if _, err := h.Create(5); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := h.Start(5); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	early := h.Attach(5, "early")
	defer h.Detach(5, "early")
	if ev := <-early; ev.Type != models.EventSnapshot {
		t.Fatalf("expected snapshot, got %s", ev.Type)
	}

	for i := 0; i < 5; i++ {
		if _, _, err := h.DrawNext(5); err != nil {
			t.Fatalf("draw failed: %v", err)
		}
	}

	late := h.Attach(5, "late")
	defer h.Detach(5, "late")
	lateSnap := (<-late).Payload.(models.SnapshotPayload)

	for i := 0; i < 5; i++ {
		if _, _, err := h.DrawNext(5); err != nil {
			t.Fatalf("draw failed: %v", err)
		}
	}

	// Skip the early subscriber past the draws the late one saw as snapshot.
	earlySeen := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		ev := <-early
		if ev.Type != models.EventNumberDrawn {
			t.Fatalf("expected number_drawn, got %s", ev.Type)
		}
		earlySeen = append(earlySeen, ev.Payload.(models.NumberDrawnPayload).Number)
	}
	for i, n := range lateSnap.DrawnNumbers {
		if earlySeen[i] != n {
			t.Fatalf("late snapshot diverges from early live stream: %v vs %v", lateSnap.DrawnNumbers, earlySeen[:5])
		}
	}

	lateSeen := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		ev := <-late
		lateSeen = append(lateSeen, ev.Payload.(models.NumberDrawnPayload).Number)
	}
	for i, n := range lateSeen {
		if earlySeen[5+i] != n {
			t.Fatalf("subscribers diverge: early tail %v, late %v", earlySeen[5:], lateSeen)
		}
	}
}
