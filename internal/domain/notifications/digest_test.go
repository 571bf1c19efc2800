package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFeed struct {
	items        []Notification
	listErr      error
	markErr      error
	markAllErr   error
	markCalls    int
	markAllCalls int
	lastBatch    []NotificationID
}

func (f *fakeFeed) List(ctx context.Context, userID string) ([]Notification, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Notification(nil), f.items...), nil
}

func (f *fakeFeed) MarkRead(ctx context.Context, userID string, id NotificationID) error {
	f.markCalls++
	if f.markErr != nil {
		return f.markErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
		}
	}
	return nil
}

func (f *fakeFeed) MarkAllRead(ctx context.Context, userID string, ids []NotificationID) error {
	f.markAllCalls++
	f.lastBatch = append([]NotificationID(nil), ids...)
	if f.markAllErr != nil {
		return f.markAllErr
	}
	for i := range f.items {
		f.items[i].Read = true
	}
	return nil
}

func seedFeed() *fakeFeed {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &fakeFeed{items: []Notification{
		{ID: "n1", UserID: "u1", Title: "Booked", Link: "/bookings/b1", CreatedAt: base},
		{ID: "n2", UserID: "u1", Title: "Cancelled", CreatedAt: base.Add(time.Hour)},
		{ID: "n3", UserID: "u1", Title: "Welcome", Read: true, CreatedAt: base.Add(-time.Hour)},
	}}
}

func loadedDigest(t *testing.T, feed *fakeFeed) *Digest {
	t.Helper()
	d := NewDigest("u1", feed, nil)
	if _, err := d.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return d
}

func TestLoadOrdersNewestFirst(t *testing.T) {
	d := loadedDigest(t, seedFeed())
	items := d.Items()
	if items[0].ID != "n2" || items[2].ID != "n3" {
		t.Fatalf("unexpected order %v", items)
	}
	if d.Unread() != 2 {
		t.Fatalf("expected 2 unread, got %d", d.Unread())
	}
}

func TestMarkReadDecrementsOnceAndReturnsLink(t *testing.T) {
	feed := seedFeed()
	d := loadedDigest(t, feed)
	link, err := d.MarkRead(context.Background(), "n1")
	if err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	if link != "/bookings/b1" {
		t.Fatalf("expected link, got %q", link)
	}
	if d.Unread() != 1 {
		t.Fatalf("expected 1 unread, got %d", d.Unread())
	}
	if _, err := d.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("second MarkRead returned error: %v", err)
	}
	if d.Unread() != 1 || feed.markCalls != 1 {
		t.Fatalf("marking a read item must be a no-op, unread=%d calls=%d", d.Unread(), feed.markCalls)
	}
	if _, err := d.MarkRead(context.Background(), "n3"); err != nil || d.Unread() != 1 {
		t.Fatalf("already read item changed the counter")
	}
}

func TestMarkReadNeverBelowZero(t *testing.T) {
	d := loadedDigest(t, &fakeFeed{items: []Notification{{ID: "n1", Title: "x"}}})
	d.unread = 0
	if _, err := d.MarkRead(context.Background(), "n1"); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	if d.Unread() != 0 {
		t.Fatalf("unread went below zero: %d", d.Unread())
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	d := loadedDigest(t, seedFeed())
	if _, err := d.MarkRead(context.Background(), "missing"); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}

func TestMarkReadRollsBackOnFailure(t *testing.T) {
	feed := seedFeed()
	d := loadedDigest(t, feed)
	remoteErr := errors.New("service unavailable")
	feed.markErr = remoteErr
	if _, err := d.MarkRead(context.Background(), "n1"); !errors.Is(err, remoteErr) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if d.Unread() != 2 {
		t.Fatalf("expected rollback to 2 unread, got %d", d.Unread())
	}
	for _, item := range d.Items() {
		if item.ID == "n1" && item.Read {
			t.Fatalf("n1 must be unread after rollback")
		}
	}
}

func TestRefetchFailureIsJoined(t *testing.T) {
	feed := seedFeed()
	d := loadedDigest(t, feed)
	remoteErr := errors.New("write failed")
	listErr := errors.New("read failed")
	feed.markErr = remoteErr
	feed.listErr = listErr
	_, err := d.MarkRead(context.Background(), "n2")
	if !errors.Is(err, remoteErr) || !errors.Is(err, listErr) {
		t.Fatalf("expected both errors joined, got %v", err)
	}
	if d.Unread() != 2 {
		t.Fatalf("expected local rollback even when refetch fails, got %d", d.Unread())
	}
}

func TestMarkAllReadIsOneBatch(t *testing.T) {
	feed := seedFeed()
	d := loadedDigest(t, feed)
	if err := d.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead returned error: %v", err)
	}
	if feed.markAllCalls != 1 || len(feed.lastBatch) != 2 {
		t.Fatalf("expected one call with 2 ids, got %d calls %v", feed.markAllCalls, feed.lastBatch)
	}
	if d.Unread() != 0 {
		t.Fatalf("expected 0 unread, got %d", d.Unread())
	}
	if err := d.MarkAllRead(context.Background()); err != nil || feed.markAllCalls != 1 {
		t.Fatalf("nothing unread must skip the feed")
	}
}

func TestMarkAllReadRollsBackEveryItem(t *testing.T) {
	feed := seedFeed()
	d := loadedDigest(t, feed)
	feed.markAllErr = errors.New("transaction aborted")
	if err := d.MarkAllRead(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if d.Unread() != 2 {
		t.Fatalf("expected 2 unread after rollback, got %d", d.Unread())
	}
	read := 0
	for _, item := range d.Items() {
		if item.Read {
			read++
		}
	}
	if read != 1 {
		t.Fatalf("expected only the originally read item to stay read, got %d", read)
	}
}

func TestNewValidatesInput(t *testing.T) {
	if _, err := New(CreateParams{ID: "n1", Title: "x"}); !errors.Is(err, ErrRecipientRequired) {
		t.Fatalf("expected ErrRecipientRequired, got %v", err)
	}
	n, err := New(CreateParams{ID: "n1", UserID: "u1", Title: " Hi "})
	if err != nil || n.Type != TypeSystem || n.Title != "Hi" {
		t.Fatalf("unexpected notification %+v (%v)", n, err)
	}
}
