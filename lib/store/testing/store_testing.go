package testing

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/jsondb/lib/store"
	"github.com/google/go-cmp/cmp"
)

// StoreFactory opens a store backed by the file at path. Opening the same path
// twice must yield a store with the persisted content of the first one.
type StoreFactory func(path string) (store.IDocStore, error)

// RunDocStoreTests runs a comprehensive test suite for an IDocStore implementation.
// The factory is expected to return stores that persist on every write (or at least
// on an explicit Sync).
func RunDocStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, open(t, factory))
		})

		t.Run("Init", func(t *testing.T) {
			testInit(t, open(t, factory))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, open(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory))
		})

		t.Run("DeleteAll", func(t *testing.T) {
			testDeleteAll(t, open(t, factory))
		})

		t.Run("ValueKinds", func(t *testing.T) {
			testValueKinds(t, open(t, factory))
		})

		t.Run("DocumentCopy", func(t *testing.T) {
			testDocumentCopy(t, open(t, factory))
		})

		t.Run("ReplaceDocument", func(t *testing.T) {
			testReplaceDocument(t, open(t, factory))
		})

		t.Run("RoundTrip", func(t *testing.T) {
			testRoundTrip(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates a store in a fresh temporary directory
func open(t testing.TB, factory StoreFactory) store.IDocStore {
	t.Helper()
	s, err := factory(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	return s
}

// waitForWrites blocks until asynchronous writes are done for stores that support it
func waitForWrites(s store.IDocStore) {
	if w, ok := s.(interface{ Wait() }); ok {
		w.Wait()
	}
}

func mustNotFail(t testing.TB, err error, op string) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error during %s: %v", op, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	if !strings.HasSuffix(s.Path(), ".json") {
		t.Errorf("Expected normalized path to end with .json, got %s", s.Path())
	}

	mustNotFail(t, s.Set("test-key", "test-value1"), "Set")

	result, exists := s.Get("test-key")
	if !exists {
		t.Errorf("Expected key test-key to exist after Set")
	}
	if result != "test-value1" {
		t.Errorf("Expected value test-value1, got %v", result)
	}

	mustNotFail(t, s.Set("test-key", "test-value2"), "Set")

	result, _ = s.Get("test-key")
	if result != "test-value2" {
		t.Errorf("Expected value test-value2 after overwrite, got %v", result)
	}

	result, exists = s.Get("nonexistent-key")
	if exists || result != nil {
		t.Errorf("Expected nonexistent key to return (nil, false), got (%v, %t)", result, exists)
	}

	// values that are falsy in other languages are still present
	mustNotFail(t, s.Set("zero", 0.0), "Set")
	mustNotFail(t, s.Set("empty", ""), "Set")
	mustNotFail(t, s.Set("null", nil), "Set")
	for _, key := range []string{"zero", "empty", "null"} {
		if _, ok := s.Get(key); !ok {
			t.Errorf("Expected key %s to exist", key)
		}
	}
}

func testInit(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	mustNotFail(t, s.Init("key", "v1"), "Init")
	mustNotFail(t, s.Init("key", "v2"), "Init")

	result, _ := s.Get("key")
	if result != "v1" {
		t.Errorf("Expected first Init to win, got %v", result)
	}

	mustNotFail(t, s.Set("key", "v3"), "Set")
	mustNotFail(t, s.Init("key", "v4"), "Init")
	result, _ = s.Get("key")
	if result != "v3" {
		t.Errorf("Expected Init to keep the value of Set, got %v", result)
	}
}

func testHas(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	if s.Has("key") {
		t.Errorf("Expected Has to be false for a new store")
	}

	mustNotFail(t, s.Set("key", false), "Set")
	if !s.Has("key") {
		t.Errorf("Expected Has to be true after Set")
	}

	mustNotFail(t, s.Init("other", nil), "Init")
	if !s.Has("other") {
		t.Errorf("Expected Has to be true after Init with nil")
	}

	_, err := s.Delete("key")
	mustNotFail(t, err, "Delete")
	if s.Has("key") {
		t.Errorf("Expected Has to be false after Delete")
	}
}

func testDelete(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	mustNotFail(t, s.Set("a", 1.0), "Set")
	mustNotFail(t, s.Set("b", 2.0), "Set")

	deleted, err := s.Delete("a")
	mustNotFail(t, err, "Delete")
	if !deleted {
		t.Errorf("Expected Delete of an existing key to report true")
	}

	deleted, err = s.Delete("a")
	mustNotFail(t, err, "Delete")
	if deleted {
		t.Errorf("Expected Delete of an absent key to report false")
	}

	doc, err := s.Document()
	mustNotFail(t, err, "Document")
	if diff := cmp.Diff(map[string]any{"b": 2.0}, doc); diff != "" {
		t.Errorf("Unexpected document after Delete (-want +got):\n%s", diff)
	}
}

func testDeleteAll(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	for i := 0; i < 10; i++ {
		mustNotFail(t, s.Set(fmt.Sprintf("key-%d", i), float64(i)), "Set")
	}

	chained, err := s.DeleteAll()
	mustNotFail(t, err, "DeleteAll")
	if chained != s {
		t.Errorf("Expected DeleteAll to return the store itself")
	}

	doc, err := chained.Document()
	mustNotFail(t, err, "Document")
	if len(doc) != 0 {
		t.Errorf("Expected empty document after DeleteAll, got %v", doc)
	}

	// deleting from an empty store is fine
	_, err = s.DeleteAll()
	mustNotFail(t, err, "DeleteAll")
}

func testValueKinds(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	values := map[string]any{
		"null":   nil,
		"bool":   true,
		"number": 42.5,
		"string": "hello",
		"list":   []any{1.0, "two", nil},
		"object": map[string]any{"nested": map[string]any{"deep": []any{true}}},
	}

	for k, v := range values {
		mustNotFail(t, s.Set(k, v), "Set")
	}

	for k, want := range values {
		got, ok := s.Get(k)
		if !ok {
			t.Errorf("Expected key %s to exist", k)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Unexpected value for %s (-want +got):\n%s", k, diff)
		}
	}
}

func testDocumentCopy(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	mustNotFail(t, s.Set("obj", map[string]any{"list": []any{"a"}}), "Set")

	doc, err := s.Document()
	mustNotFail(t, err, "Document")
	doc["obj"].(map[string]any)["list"].([]any)[0] = "changed"
	doc["new"] = "value"

	if s.Has("new") {
		t.Errorf("Modifying the result of Document must not add keys to the store")
	}

	got, _ := s.Get("obj")
	if diff := cmp.Diff(map[string]any{"list": []any{"a"}}, got); diff != "" {
		t.Errorf("Modifying the result of Document changed the store (-want +got):\n%s", diff)
	}

	// Get returns a copy as well
	got.(map[string]any)["list"] = nil
	again, _ := s.Get("obj")
	if diff := cmp.Diff(map[string]any{"list": []any{"a"}}, again); diff != "" {
		t.Errorf("Modifying the result of Get changed the store (-want +got):\n%s", diff)
	}
}

func testReplaceDocument(t *testing.T, s store.IDocStore) {
	defer waitForWrites(s)

	mustNotFail(t, s.Set("old", "value"), "Set")

	replacement := map[string]any{"a": 1.0, "b": map[string]any{"c": "d"}}
	result, err := s.ReplaceDocument(replacement)
	mustNotFail(t, err, "ReplaceDocument")
	if diff := cmp.Diff(replacement, result); diff != "" {
		t.Errorf("Unexpected result of ReplaceDocument (-want +got):\n%s", diff)
	}
	if s.Has("old") {
		t.Errorf("Expected ReplaceDocument to replace the whole mapping")
	}

	// the store must not alias the argument
	replacement["b"].(map[string]any)["c"] = "changed"
	got, _ := s.Get("b")
	if diff := cmp.Diff(map[string]any{"c": "d"}, got); diff != "" {
		t.Errorf("ReplaceDocument aliased its argument (-want +got):\n%s", diff)
	}

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err = s.ReplaceDocument(cyclic)
	if !errors.Is(err, store.ErrInvalidDocument) {
		t.Errorf("Expected ErrInvalidDocument for a cyclic document, got %v", err)
	}

	_, err = s.ReplaceDocument(map[string]any{"f": func() {}})
	if !errors.Is(err, store.ErrInvalidDocument) {
		t.Errorf("Expected ErrInvalidDocument for a function value, got %v", err)
	}

	doc, err := s.Document()
	mustNotFail(t, err, "Document")
	if diff := cmp.Diff(map[string]any{"a": 1.0, "b": map[string]any{"c": "d"}}, doc); diff != "" {
		t.Errorf("Invalid replacement changed the store (-want +got):\n%s", diff)
	}
}

func testRoundTrip(t *testing.T, factory StoreFactory) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "roundtrip")

	s, err := factory(path)
	mustNotFail(t, err, "open")

	numEntries := 100
	for i := 0; i < numEntries; i++ {
		mustNotFail(t, s.Set(fmt.Sprintf("round-trip-key-%d", i), map[string]any{
			"index": float64(i),
			"value": fmt.Sprintf("round-trip-value-%d", i),
		}), "Set")
	}
	// asynchronous writes are not ordered, only the last Sync may be in flight
	waitForWrites(s)
	mustNotFail(t, s.Sync(), "Sync")
	waitForWrites(s)

	want, err := s.Document()
	mustNotFail(t, err, "Document")

	s2, err := factory(path)
	mustNotFail(t, err, "reopen")

	got, err := s2.Document()
	mustNotFail(t, err, "Document")

	if len(got) != numEntries {
		t.Errorf("Expected %d keys after reopening, got %d", numEntries, len(got))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reopened store differs (-want +got):\n%s", diff)
	}
}
