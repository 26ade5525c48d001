package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/mos-mood/internal/apperror"
	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/model"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// err, when set, is returned by every method to simulate a store outage.

var errStoreDown = errors.New("connection reset by peer")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu        sync.Mutex
	checkins  []model.Checkin
	schedules map[string]model.Schedule
	quotes    []model.Quote
	log       []model.QuoteLogEntry
	nextID    int

	err    error // every method
	logErr error // AppendQuoteLog only
}

func newFakeStore() *fakeStore {
	return &fakeStore{schedules: map[string]model.Schedule{}}
}

func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("fake-%d", f.nextID)
}

func (f *fakeStore) CreateCheckin(_ context.Context, c *model.Checkin) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	c.ID = f.id()
	f.checkins = append(f.checkins, *c)
	return nil
}

func (f *fakeStore) ListCheckins(_ context.Context, userID string) ([]model.Checkin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Checkin{}
	for _, c := range f.checkins {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckinAt.After(out[j].CheckinAt) })
	return out, nil
}

func (f *fakeStore) UpsertSchedule(_ context.Context, s *model.Schedule) (*model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	row := *s
	if existing, ok := f.schedules[s.UserID]; ok {
		row.ID = existing.ID
	} else {
		row.ID = f.id()
	}
	f.schedules[s.UserID] = row
	return &row, nil
}

func (f *fakeStore) GetSchedule(_ context.Context, userID string) (*model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.schedules[userID]
	if !ok {
		return nil, apperror.NotFoundMessage("No schedule saved")
	}
	return &s, nil
}

func (f *fakeStore) ListActiveQuotes(_ context.Context, limit int) ([]model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Quote
	for _, q := range f.quotes {
		if q.IsActive && len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendQuoteLog(_ context.Context, e *model.QuoteLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.logErr != nil {
		return f.logErr
	}
	e.ID = f.id()
	f.log = append(f.log, *e)
	return nil
}

// =========================================================================
// FAKE MAILER
// =========================================================================

type sentEmail struct {
	kind email.Kind
	to   string
	args email.Args
}

type fakeMailer struct {
	id   string
	err  error
	sent []sentEmail
}

func (m *fakeMailer) Send(_ context.Context, kind email.Kind, to string, args email.Args) (string, error) {
	m.sent = append(m.sent, sentEmail{kind: kind, to: to, args: args})
	if m.err != nil {
		return "", m.err
	}
	return m.id, nil
}
