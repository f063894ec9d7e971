package jstore

import (
	"errors"
	"github.com/ValentinKolb/jsondb/lib/common"
	"github.com/ValentinKolb/jsondb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var log = logger.GetLogger(common.LoggerStore)

// Store is a key-value store that keeps its mapping in memory and persists it as a
// single document to one backing file. Create it with NewStore.
type Store struct {
	path   string
	config Config

	// data is replaced as a whole by ReplaceDocument
	data atomic.Pointer[xsync.MapOf[string, any]]
	// swapMu is held for reading by writers and for writing by ReplaceDocument,
	// so no write lands in a mapping that was already replaced
	swapMu sync.RWMutex

	// pending tracks dispatched asynchronous writes
	pending sync.WaitGroup
	// writeMu prevents two writes from interleaving their bytes in the backing file.
	// It does not order them.
	writeMu sync.Mutex

	metrics *storeMetrics
}

// NewStore creates a store backed by the file at path. ".json" is appended to path
// if it does not already end with it, and missing parent directories are created.
//
// If the file does not exist the store starts empty and no file is created until the
// first Sync. An existing, non-empty file must contain a document whose top-level
// value is an object, it becomes the initial mapping. An existing empty file also
// yields an empty store and is left untouched.
//
// Errors (all *store.Error, match with errors.Is):
//   - store.ErrInvalidPath: path is empty or names a directory
//   - store.ErrAccess: the file (or its directory) is not readable and writable
//   - store.ErrStat: probing the file failed for another reason
//   - store.ErrMalformedDocument: the file content cannot be deserialized or is not an object
func NewStore(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, store.WrapError(store.RetCInvalidPath, "invalid file path", path, nil)
	}

	conf := DefaultConfig()
	for _, opt := range opts {
		opt(&conf)
	}

	s := &Store{
		path:   normalizePath(path),
		config: conf,
	}
	s.data.Store(xsync.NewMapOf[string, any]())
	s.metrics = newStoreMetrics(s.path)

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// normalizePath appends the document extension if it is missing
func normalizePath(path string) string {
	if strings.HasSuffix(path, Extension) {
		return path
	}
	return path + Extension
}

// load prepares the parent directory and reads the backing file if it exists
func (s *Store) load() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return store.WrapError(store.RetCAccess, "cannot create directory", dir, err)
		}
		return store.WrapError(store.RetCStat, "error creating directory", dir, err)
	}

	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debugf("%s does not exist yet, starting with an empty document", s.path)
		return nil
	case errors.Is(err, fs.ErrPermission):
		return store.WrapError(store.RetCAccess, "cannot access path", s.path, err)
	case err != nil:
		return store.WrapError(store.RetCStat, "error checking path", s.path, err)
	}

	if info.IsDir() {
		return store.WrapError(store.RetCInvalidPath, "path is a directory", s.path, nil)
	}

	if err := checkAccess(s.path); err != nil {
		return store.WrapError(store.RetCAccess, "cannot read/write, check permissions", s.path, err)
	}

	if info.Size() == 0 {
		return nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return store.WrapError(store.RetCAccess, "cannot access path", s.path, err)
		}
		return store.WrapError(store.RetCStat, "error reading path", s.path, err)
	}

	tree, err := s.config.Codec.Deserialize(b)
	if err != nil {
		log.Errorf("the file %s is not empty and does not contain a valid document: %v", s.path, err)
		return store.WrapError(store.RetCMalformedDocument, "file is not empty and does not contain a valid document", s.path, err)
	}

	doc, ok := tree.(map[string]any)
	if !ok {
		log.Errorf("the file %s does not contain an object at the top level (found %T)", s.path, tree)
		return store.WrapError(store.RetCMalformedDocument, "top-level value is not an object", s.path, nil)
	}

	m := s.data.Load()
	for k, v := range doc {
		m.Store(k, v)
	}

	log.Debugf("loaded document from %s (%d keys)", s.path, len(doc))
	return nil
}

// Path returns the normalized path of the backing file
func (s *Store) Path() string {
	return s.path
}

// Config returns a copy of the store configuration
func (s *Store) Config() Config {
	return s.config
}

// Len returns the number of keys in the store
func (s *Store) Len() int {
	return s.data.Load().Size()
}

// Keys returns all keys in ascending order
func (s *Store) Keys() []string {
	m := s.data.Load()
	keys := make([]string, 0, m.Size())
	m.Range(func(key string, _ any) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// snapshot copies the top level of the mapping into a plain map for serialization
func (s *Store) snapshot() map[string]any {
	m := s.data.Load()
	doc := make(map[string]any, m.Size())
	m.Range(func(key string, value any) bool {
		doc[key] = value
		return true
	})
	return doc
}

// Compile-time assertion that Store implements store.IDocStore.
var _ store.IDocStore = (*Store)(nil)
