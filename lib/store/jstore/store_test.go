package jstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/jsondb/lib/codec"
	"github.com/ValentinKolb/jsondb/lib/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

// skipIfPrivileged skips permission tests, root can read and write every file
func skipIfPrivileged(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission checks are not enforced for this user")
	}
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

func TestNewStorePathNormalization(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(filepath.Join(dir, "data", "test"), WithSyncOnWrite(false))
	require.NoError(t, err)

	want := filepath.Join(dir, "data", "test.json")
	assert.Equal(t, want, s.Path())
	assert.DirExists(t, filepath.Join(dir, "data"), "parent directories are created at construction")
	assert.NoFileExists(t, want, "the backing file is only created by Sync")

	require.NoError(t, s.Set("esm", "hello"))
	value, ok := s.Get("esm")
	assert.True(t, ok)
	assert.Equal(t, "hello", value)
	assert.NoFileExists(t, want, "SyncOnWrite=false must not write on Set")

	require.NoError(t, s.Sync())
	assert.Equal(t, "{\n    \"esm\": \"hello\"\n}", readFile(t, want))

	s2, err := NewStore(want)
	require.NoError(t, err)
	assert.Equal(t, want, s2.Path(), "a path ending with .json is kept")
}

func TestNewStoreLoadsExistingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	writeFile(t, path, `{"a": 1, "b": 2}`)

	s, err := NewStore(path)
	require.NoError(t, err)

	assert.True(t, s.Has("a"))

	b, ok := s.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2.0, b)

	c, ok := s.Get("c")
	assert.False(t, ok)
	assert.Nil(t, c)

	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 2, s.Len())
}

func TestNewStoreMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	writeFile(t, path, "{not json")

	s, err := NewStore(path)
	assert.Nil(t, s)
	require.ErrorIs(t, err, store.ErrMalformedDocument)

	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, path, storeErr.Path)
	assert.NotNil(t, storeErr.Err, "the codec error is kept as cause")

	assert.Equal(t, "{not json", readFile(t, path), "a malformed file is never overwritten")
}

func TestNewStoreRejectsNonObjectRoot(t *testing.T) {
	for _, content := range []string{"[1, 2]", "42", `"text"`, "null"} {
		t.Run(content, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			writeFile(t, path, content)

			_, err := NewStore(path)
			assert.ErrorIs(t, err, store.ErrMalformedDocument)
		})
	}
}

func TestNewStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	writeFile(t, path, "")

	s, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", readFile(t, path), "an empty file is left as it is")
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorIs(t, err, store.ErrInvalidPath)

	dir := filepath.Join(t.TempDir(), "folder.json")
	require.NoError(t, os.Mkdir(dir, 0o755))
	_, err = NewStore(dir)
	assert.ErrorIs(t, err, store.ErrInvalidPath)
}

func TestNewStoreStatError(t *testing.T) {
	t.Run("ParentIsFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		writeFile(t, file, "x")

		_, err := NewStore(filepath.Join(file, "db"))
		assert.ErrorIs(t, err, store.ErrStat)
	})

	t.Run("SymlinkLoop", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on windows")
		}
		path := filepath.Join(t.TempDir(), "loop.json")
		require.NoError(t, os.Symlink("loop.json", path))

		_, err := NewStore(path)
		assert.ErrorIs(t, err, store.ErrStat)
	})
}

func TestNewStoreAccessError(t *testing.T) {
	skipIfPrivileged(t)

	path := filepath.Join(t.TempDir(), "db.json")
	writeFile(t, path, `{"a": 1}`)

	for _, mode := range []os.FileMode{0o200, 0o400} {
		require.NoError(t, os.Chmod(path, mode))
		_, err := NewStore(path)
		assert.ErrorIs(t, err, store.ErrAccess, "mode %#o", mode)
	}
}

func TestNewStoreConfig(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"), WithSyncOnWrite(false), WithCodec(nil))
	require.NoError(t, err)

	conf := s.Config()
	assert.False(t, conf.SyncOnWrite)
	assert.False(t, conf.AsyncWrite, "unspecified options keep their defaults")
	assert.Equal(t, 4, conf.IndentSize)
	assert.Equal(t, "json", conf.Codec.Name())
	assert.Equal(t, os.FileMode(0o644), conf.FileMode)
	assert.Contains(t, conf.String(), "Sync On Write")
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func TestSyncOnWriteTriggersEveryMutation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	syncsBefore, _ := s.SyncCount()
	step := func() uint64 {
		syncs, _ := s.SyncCount()
		return syncs - syncsBefore
	}

	require.NoError(t, s.Set("a", 1))
	assert.Equal(t, uint64(1), step())
	assert.Equal(t, "{\n    \"a\": 1\n}", readFile(t, path))

	require.NoError(t, s.Init("a", 2))
	assert.Equal(t, uint64(2), step(), "Init persists even if nothing was inserted")

	deleted, err := s.Delete("absent")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, uint64(3), step(), "Delete persists even if nothing was removed")

	require.NoError(t, s.Set("b", 2))
	require.NoError(t, s.Set("c", 3))
	_, err = s.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), step(), "DeleteAll persists once per key")
	assert.Equal(t, "{}", readFile(t, path))
}

func TestIndentSize(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(filepath.Join(dir, "two"), WithIndentSize(2))
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []any{"v"}))
	assert.Equal(t, "{\n  \"k\": [\n    \"v\"\n  ]\n}", readFile(t, s.Path()))

	s, err = NewStore(filepath.Join(dir, "compact"), WithIndentSize(0))
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []any{"v"}))
	assert.Equal(t, `{"k":["v"]}`, readFile(t, s.Path()))
}

func TestReplaceDocumentDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewStore(path, WithIndentSize(0))
	require.NoError(t, err)
	require.NoError(t, s.Set("old", true))

	_, err = s.ReplaceDocument(map[string]any{"new": true})
	require.NoError(t, err)
	assert.Equal(t, `{"old":true}`, readFile(t, path))

	require.NoError(t, s.Sync())
	assert.Equal(t, `{"new":true}`, readFile(t, path))

	doc, err := s.ReplaceDocument(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"new": true}, doc, "nil replaces nothing")
}

// writeModes covers both ways the backing file is replaced
var writeModes = map[string][]Option{
	"InPlace": nil,
	"Atomic":  {WithAtomicWrite(true)},
}

func TestWriteErrorKeepsMemory(t *testing.T) {
	for mode, opts := range writeModes {
		t.Run(mode, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "gone")
			s, err := NewStore(filepath.Join(dir, "db"), opts...)
			require.NoError(t, err)
			require.NoError(t, os.RemoveAll(dir))

			err = s.Set("key", "value")
			require.ErrorIs(t, err, store.ErrWrite)
			assert.ErrorIs(t, err, os.ErrNotExist, "the cause is kept")

			value, ok := s.Get("key")
			assert.True(t, ok, "memory is updated even if the write fails")
			assert.Equal(t, "value", value)
		})
	}
}

func TestSyncUnserializableValue(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)

	err = s.Set("f", func() {})
	assert.ErrorIs(t, err, store.ErrWrite)
	assert.True(t, s.Has("f"))

	_, err = s.Document()
	assert.ErrorIs(t, err, store.ErrInvalidDocument)
}

func TestSyncAccessError(t *testing.T) {
	skipIfPrivileged(t)

	for mode, opts := range writeModes {
		t.Run(mode+"/ReadOnlyFile", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			s, err := NewStore(path, opts...)
			require.NoError(t, err)
			require.NoError(t, s.Set("a", 1))
			require.NoError(t, os.Chmod(path, 0o444))

			err = s.Set("b", 2)
			assert.ErrorIs(t, err, store.ErrAccess)
			assert.ErrorIs(t, err, os.ErrPermission)
			assert.True(t, s.Has("b"))
		})
	}

	t.Run("Atomic/ReadOnlyDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "ro")
		s, err := NewStore(filepath.Join(dir, "db"), WithAtomicWrite(true))
		require.NoError(t, err)
		require.NoError(t, os.Chmod(dir, 0o555))
		t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

		err = s.Set("a", 1)
		assert.ErrorIs(t, err, store.ErrAccess)
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	s, err := NewStore(path, WithAtomicWrite(true), WithFileMode(0o600), WithIndentSize(0))
	require.NoError(t, err)
	require.NoError(t, s.Set("a", 1))
	assert.Equal(t, `{"a":1}`, readFile(t, path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "new files get the configured mode")

		require.NoError(t, os.Chmod(path, 0o640))
		require.NoError(t, s.Set("b", 2))
		info, err = os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm(), "existing files keep their mode")
	}
}

func TestJSONCSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	writeFile(t, path, `{
		// default settings
		"theme": "dark",
		"retries": 3,
	}`)

	_, err := NewStore(path)
	assert.ErrorIs(t, err, store.ErrMalformedDocument, "the json codec rejects comments")

	s, err := NewStore(path, WithCodec(codec.NewJSONCCodec()), WithIndentSize(0))
	require.NoError(t, err)
	theme, _ := s.Get("theme")
	assert.Equal(t, "dark", theme)

	require.NoError(t, s.Set("retries", 5))
	assert.Equal(t, `{"retries":5,"theme":"dark"}`, readFile(t, path), "comments are dropped on write")
}

func TestEncryptedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.json")
	encrypted := func(passphrase string) Option {
		return WithCodec(codec.NewEncryptedCodec(codec.NewJSONCodec(), passphrase, fastScrypt))
	}

	s, err := NewStore(path, encrypted("correct"))
	require.NoError(t, err)
	require.NoError(t, s.Set("token", "hunter2"))
	assert.NotContains(t, readFile(t, path), "hunter2")

	s2, err := NewStore(path, encrypted("correct"))
	require.NoError(t, err)
	token, _ := s2.Get("token")
	assert.Equal(t, "hunter2", token)

	_, err = NewStore(path, encrypted("wrong"))
	require.ErrorIs(t, err, store.ErrMalformedDocument)
	assert.ErrorIs(t, err, codec.ErrWrongPassphrase)
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

func TestLargeIntegersRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	id := int64(9007199254740993)
	require.NoError(t, s.Set("id", id))
	assert.Contains(t, readFile(t, path), "9007199254740993")

	got, _ := s.Get("id")
	assert.Equal(t, id, got)

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, id, doc["id"], "Get and Document agree")

	reopened, err := NewStore(path)
	require.NoError(t, err)
	reloaded, err := reopened.Document()
	require.NoError(t, err)
	if diff := cmp.Diff(doc, reloaded); diff != "" {
		t.Errorf("reopened document differs (-want +got):\n%s", diff)
	}
}

func TestSetCopiesValue(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"), WithSyncOnWrite(false))
	require.NoError(t, err)

	value := map[string]any{"list": []any{"a"}}
	counts := map[string]int{"x": 1}
	require.NoError(t, s.Set("value", value))
	require.NoError(t, s.Init("counts", counts))

	value["list"].([]any)[0] = "changed"
	value["new"] = true
	counts["x"] = 2

	got, _ := s.Get("value")
	assert.Equal(t, map[string]any{"list": []any{"a"}}, got)

	gotCounts, _ := s.Get("counts")
	assert.Equal(t, map[string]int{"x": 1}, gotCounts, "typed maps are copied too")

	gotCounts.(map[string]int)["x"] = 3
	again, _ := s.Get("counts")
	assert.Equal(t, map[string]int{"x": 1}, again)
}

func TestCyclicValue(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"), WithSyncOnWrite(false))
	require.NoError(t, err)

	cyclic := map[string]any{"name": "loop"}
	cyclic["self"] = cyclic
	list := []any{"x", nil}
	list[1] = list

	require.NoError(t, s.Set("map", cyclic))
	require.NoError(t, s.Set("list", list))

	got, ok := s.Get("map")
	assert.True(t, ok)
	assert.Equal(t, "loop", got.(map[string]any)["name"])

	gotList, ok := s.Get("list")
	assert.True(t, ok)
	assert.Len(t, gotList, 2)

	_, err = s.Document()
	assert.ErrorIs(t, err, store.ErrInvalidDocument)
	assert.ErrorIs(t, s.Sync(), store.ErrWrite)
}

// shared values that do not form a cycle are copied
func TestSharedValueIsNotCyclic(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"), WithSyncOnWrite(false))
	require.NoError(t, err)

	shared := []any{"a"}
	require.NoError(t, s.Set("pair", []any{shared, shared}))

	got, _ := s.Get("pair")
	assert.Equal(t, []any{[]any{"a"}, []any{"a"}}, got)

	shared[0] = "changed"
	got, _ = s.Get("pair")
	assert.Equal(t, []any{[]any{"a"}, []any{"a"}}, got)
}

// acceptAllCodec serializes everything to an empty object
type acceptAllCodec struct{}

func (acceptAllCodec) Serialize(any, int) ([]byte, error) { return []byte("{}"), nil }
func (acceptAllCodec) Deserialize([]byte) (any, error)    { return map[string]any{}, nil }
func (acceptAllCodec) Name() string                       { return "accept-all" }

func TestReplaceDocumentCannotCopy(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"), WithCodec(acceptAllCodec{}), WithSyncOnWrite(false))
	require.NoError(t, err)
	require.NoError(t, s.Set("old", true))

	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	_, err = s.ReplaceDocument(cyclic)
	assert.ErrorIs(t, err, store.ErrInternal)
	assert.True(t, s.Has("old"), "the mapping is unchanged")
}

func TestReplaceDocumentConcurrentWriters(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "db"), WithSyncOnWrite(false))
	require.NoError(t, err)

	const writers, writes = 4, 2000
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				assert.NoError(t, s.Set(fmt.Sprintf("w%d-%05d", w, i), i))
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for replacing := true; replacing; {
		select {
		case <-done:
			replacing = false
		default:
			_, err := s.ReplaceDocument(map[string]any{})
			require.NoError(t, err)
		}
	}

	// a replacement removes every earlier write, so each writer's surviving
	// keys are a gap-free suffix of its writes
	for w := 0; w < writers; w++ {
		seen := false
		for i := 0; i < writes; i++ {
			has := s.Has(fmt.Sprintf("w%d-%05d", w, i))
			if seen && !has {
				t.Fatalf("writer %d: write %d was lost after a later write survived", w, i)
			}
			seen = seen || has
		}
	}
}

// --------------------------------------------------------------------------
// Asynchronous writes
// --------------------------------------------------------------------------

// captureAsyncFailures installs a failure handler for the duration of the test
func captureAsyncFailures(t *testing.T) <-chan error {
	t.Helper()
	failures := make(chan error, 16)
	prev := SetAsyncFailureHandler(func(err error) {
		failures <- err
	})
	t.Cleanup(func() {
		SetAsyncFailureHandler(prev)
	})
	return failures
}

func TestAsyncWrite(t *testing.T) {
	failures := captureAsyncFailures(t)

	path := filepath.Join(t.TempDir(), "db.json")
	s, err := NewStore(path, WithAsyncWrite(true))
	require.NoError(t, err)

	_, asyncBefore := s.SyncCount()
	require.NoError(t, s.Set("a", "b"))
	s.Wait()

	_, asyncAfter := s.SyncCount()
	assert.Equal(t, asyncBefore+1, asyncAfter)

	reopened, err := NewStore(path)
	require.NoError(t, err)
	doc, err := reopened.Document()
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"a": "b"}, doc); diff != "" {
		t.Errorf("unexpected document (-want +got):\n%s", diff)
	}

	assert.Empty(t, failures)
}

func TestAsyncWriteFailureIsReported(t *testing.T) {
	failures := captureAsyncFailures(t)

	dir := filepath.Join(t.TempDir(), "gone")
	s, err := NewStore(filepath.Join(dir, "db"), WithAsyncWrite(true))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.NoError(t, s.Set("key", "value"), "the caller never sees an asynchronous failure")
	s.Wait()

	require.Len(t, failures, 1)
	failure := <-failures
	assert.ErrorIs(t, failure, store.ErrAsyncWrite)
	assert.ErrorIs(t, failure, os.ErrNotExist)
}

func TestDefaultAsyncFailureHandlerPanics(t *testing.T) {
	prev := SetAsyncFailureHandler(nil)
	t.Cleanup(func() {
		SetAsyncFailureHandler(prev)
	})

	failure := store.WrapError(store.RetCAsyncWrite, "asynchronous write failed", "db.json", os.ErrClosed)
	assert.PanicsWithError(t, failure.Error(), func() {
		handleAsyncFailure(failure)
	})

	called := false
	SetAsyncFailureHandler(func(err error) { called = true })
	assert.NotPanics(t, func() {
		handleAsyncFailure(failure)
	})
	assert.True(t, called)
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

func TestWriteMetrics(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "metrics"))
	require.NoError(t, err)
	require.NoError(t, s.Set("a", 1))

	var sb strings.Builder
	WriteMetrics(&sb)
	out := sb.String()

	assert.Contains(t, out, `jsondb_syncs_total{path="`+s.Path()+`",mode="sync"}`)
	assert.Contains(t, out, "jsondb_write_duration_seconds_bucket")
}
