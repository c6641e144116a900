package persist

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"marketsync/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := models.Session{
		AccessToken: "tok-abc",
		UserID:      "user-1",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.AccessToken != sess.AccessToken || got.UserID != sess.UserID {
		t.Fatalf("loaded session = %+v, want %+v", got, sess)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("ExpiresAt = %v, want %v", got.ExpiresAt, sess.ExpiresAt)
	}
	if !got.Valid() {
		t.Fatal("restored session not valid")
	}
}

func TestSaveSessionReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := store.SaveSession(ctx, models.Session{AccessToken: "old", UserID: "user-1", ExpiresAt: expires}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.SaveSession(ctx, models.Session{AccessToken: "new", UserID: "user-2", ExpiresAt: expires}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.AccessToken != "new" || got.UserID != "user-2" {
		t.Fatalf("loaded session = %+v, want the replacement", got)
	}
}

func TestLoadSessionEmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Valid() {
		t.Fatal("empty database produced a valid session")
	}
}

func TestClearSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := models.Session{AccessToken: "tok", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}

	got, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.AccessToken != "" {
		t.Fatal("session survived ClearSession")
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	prefs := models.Preferences{
		Theme:            "dark",
		DefaultPortfolio: "pf-1",
		Watchlist:        []string{"AAPL", "MSFT", "TSLA"},
	}
	if err := store.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got, err := store.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if !reflect.DeepEqual(got, prefs) {
		t.Fatalf("loaded preferences = %+v, want %+v", got, prefs)
	}

	// Saving again replaces the singleton row.
	prefs.Theme = "light"
	if err := store.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	got, err = store.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got.Theme != "light" {
		t.Fatalf("Theme = %q, want replacement applied", got.Theme)
	}
}

func TestLoadPreferencesEmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadPreferences(context.Background())
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if !reflect.DeepEqual(got, models.Preferences{}) {
		t.Fatalf("preferences = %+v, want zero value", got)
	}
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	sess := models.Session{AccessToken: "tok", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour).UTC()}
	if err := store.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.SavePreferences(ctx, models.Preferences{Theme: "dark"}); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	gotSess, err := reopened.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession after reopen: %v", err)
	}
	if gotSess.AccessToken != "tok" {
		t.Fatal("session lost across reopen")
	}
	gotPrefs, err := reopened.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("LoadPreferences after reopen: %v", err)
	}
	if gotPrefs.Theme != "dark" {
		t.Fatal("preferences lost across reopen")
	}
}
