package testsupport

import (
	"context"
	"testing"

	"brieflow/internal/config"
	"brieflow/internal/pipeline"
	"brieflow/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// MustRecordRun persists rc using the provided store.
func MustRecordRun(t testing.TB, st *store.Store, rc *pipeline.Context) {
	t.Helper()

	if err := st.RecordRun(context.Background(), rc); err != nil {
		t.Fatalf("store.RecordRun: %v", err)
	}
}
