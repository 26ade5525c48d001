package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/mos-mood/internal/auth"
	"github.com/sakif/mos-mood/internal/email"
	"github.com/sakif/mos-mood/internal/model"
	sqliteRepo "github.com/sakif/mos-mood/internal/repository/sqlite"
)

var (
	alice = &model.User{ID: "6f1c2b0e-8a4d-4c1e-9a55-0d8e4b7f1a01", Email: "alice@example.com"}
	bob   = &model.User{ID: "0b6e2c1d-3f4a-4b5c-8d9e-1a2b3c4d5e6f", Email: "bob@example.com"}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqliteRepo.DB {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeSender stands in for the email provider.
type fakeSender struct {
	id   string
	err  error
	sent []email.Message
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) (string, error) {
	f.sent = append(f.sent, msg)
	return f.id, f.err
}

// newRequest builds a JSON request, authenticated as user when user is set.
func newRequest(method, target, body string, user *model.User) *http.Request {
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out), "body: %s", rr.Body.String())
	return out
}

func seedQuote(t *testing.T, db *sqliteRepo.DB, text, author string) *model.Quote {
	t.Helper()
	q := &model.Quote{Quote: text, Author: author, IsActive: true}
	require.NoError(t, db.CreateQuote(context.Background(), q))
	return q
}
