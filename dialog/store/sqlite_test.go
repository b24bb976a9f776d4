package store

import "testing"

func TestSQLiteStoreConformance(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(":memory:")
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
