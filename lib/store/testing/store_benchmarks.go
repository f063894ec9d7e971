package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/jsondb/lib/store"
)

// RunDocStoreBenchmarks runs all benchmarks for a document store implementation
func RunDocStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, open(b, factory))
		})

		b.Run("SetGrowing", func(b *testing.B) {
			benchmarkSetGrowing(b, open(b, factory))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, open(b, factory))
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, open(b, factory))
		})

		b.Run("Document", func(b *testing.B) {
			benchmarkDocument(b, open(b, factory))
		})

		b.Run("Sync", func(b *testing.B) {
			benchmarkSync(b, open(b, factory))
		})

		b.Run("Open", func(b *testing.B) {
			benchmarkOpen(b, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// fill stores n small objects in s
func fill(b *testing.B, s store.IDocStore, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := s.Set(fmt.Sprintf("key-%d", i), map[string]any{"id": float64(i), "name": "value"}); err != nil {
			b.Fatalf("Failed to fill store: %v", err)
		}
	}
	waitForWrites(s)
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set on a single key, every call writes the whole document
func benchmarkSet(b *testing.B, s store.IDocStore) {
	b.Cleanup(func() { waitForWrites(s) })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Set("key", float64(i)); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

// Benchmark for Set with an ever growing document
func benchmarkSetGrowing(b *testing.B, s store.IDocStore) {
	b.Cleanup(func() { waitForWrites(s) })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Set(fmt.Sprintf("key-%d", i), "value"); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

// Benchmark for Get on a store with 1000 keys
func benchmarkGet(b *testing.B, s store.IDocStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			s.Get(fmt.Sprintf("key-%d", counter%1000))
			counter++
		}
	})
}

// Benchmark for Has on absent keys
func benchmarkHasNot(b *testing.B, s store.IDocStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Has("absent")
		}
	})
}

// Benchmark for copying a document with 1000 keys
func benchmarkDocument(b *testing.B, s store.IDocStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Document(); err != nil {
			b.Fatalf("Document failed: %v", err)
		}
	}
}

// Benchmark for writing a document with 1000 keys
func benchmarkSync(b *testing.B, s store.IDocStore) {
	fill(b, s, 1000)
	b.Cleanup(func() { waitForWrites(s) })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Sync(); err != nil {
			b.Fatalf("Sync failed: %v", err)
		}
	}
}

// Benchmark for loading a document with 1000 keys
func benchmarkOpen(b *testing.B, factory StoreFactory) {
	path := filepath.Join(b.TempDir(), "open")
	s, err := factory(path)
	if err != nil {
		b.Fatalf("Failed to open store: %v", err)
	}
	fill(b, s, 1000)
	if err := s.Sync(); err != nil {
		b.Fatalf("Sync failed: %v", err)
	}
	waitForWrites(s)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := factory(path); err != nil {
			b.Fatalf("Open failed: %v", err)
		}
	}
}
