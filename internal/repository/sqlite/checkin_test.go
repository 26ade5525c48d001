package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/mos-mood/internal/model"
)

// createTestCheckin inserts a check-in at the given time and fails the test on error.
func createTestCheckin(t *testing.T, db *DB, userID string, mood int, at time.Time) *model.Checkin {
	t.Helper()
	c := &model.Checkin{UserID: userID, Mood: mood, CheckinAt: at}
	if err := db.CreateCheckin(context.Background(), c); err != nil {
		t.Fatalf("failed to create test checkin: %v", err)
	}
	return c
}

func TestCreateCheckin(t *testing.T) {
	db := newTestDB(t)

	note := "slept well"
	c := &model.Checkin{UserID: "user-a", Mood: 7, Note: &note}
	if err := db.CreateCheckin(context.Background(), c); err != nil {
		t.Fatalf("CreateCheckin() error = %v", err)
	}

	// Defaults are filled in place (pointer argument).
	if c.ID == "" {
		t.Error("CreateCheckin() did not set ID")
	}
	if c.CheckinAt.IsZero() {
		t.Error("CreateCheckin() did not set CheckinAt")
	}

	got, err := db.ListCheckins(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("ListCheckins() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListCheckins() returned %d rows, want 1", len(got))
	}
	if got[0].ID != c.ID || got[0].Mood != 7 || got[0].UserID != "user-a" {
		t.Errorf("ListCheckins()[0] = %+v", got[0])
	}
	if got[0].Note == nil || *got[0].Note != "slept well" {
		t.Errorf("Note = %v, want %q", got[0].Note, note)
	}
}

func TestCreateCheckin_NilNoteIsNull(t *testing.T) {
	db := newTestDB(t)
	createTestCheckin(t, db, "user-a", 3, time.Time{})

	got, err := db.ListCheckins(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("ListCheckins() error = %v", err)
	}
	if got[0].Note != nil {
		t.Errorf("Note = %q, want nil", *got[0].Note)
	}
}

func TestCreateCheckin_MoodOutOfRangeRejectedByStore(t *testing.T) {
	db := newTestDB(t)

	// The service validates first; the CHECK constraint is the backstop.
	err := db.CreateCheckin(context.Background(), &model.Checkin{UserID: "user-a", Mood: 11})
	if err == nil {
		t.Fatal("CreateCheckin() should fail for mood 11")
	}
}

func TestListCheckins_NewestFirstAndScopedToUser(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	oldest := createTestCheckin(t, db, "user-a", 4, base)
	newest := createTestCheckin(t, db, "user-a", 8, base.Add(48*time.Hour))
	middle := createTestCheckin(t, db, "user-a", 6, base.Add(24*time.Hour))
	createTestCheckin(t, db, "user-b", 1, base.Add(72*time.Hour))

	got, err := db.ListCheckins(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("ListCheckins() error = %v", err)
	}

	want := []string{newest.ID, middle.ID, oldest.ID}
	if len(got) != len(want) {
		t.Fatalf("ListCheckins() returned %d rows, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("ListCheckins()[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
	if !got[0].CheckinAt.Equal(base.Add(48 * time.Hour)) {
		t.Errorf("CheckinAt = %v, want %v", got[0].CheckinAt, base.Add(48*time.Hour))
	}
}

func TestListCheckins_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)

	got, err := db.ListCheckins(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListCheckins() error = %v", err)
	}
	// A nil slice would encode as JSON null instead of [].
	if got == nil {
		t.Error("ListCheckins() returned nil, want empty slice")
	}
}
