package jstore

import (
	"github.com/ValentinKolb/jsondb/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Init(key string, value any) error {
	value = s.copyIn(key, value)

	s.swapMu.RLock()
	s.data.Load().LoadOrStore(key, value)
	s.swapMu.RUnlock()

	return s.afterWrite()
}

func (s *Store) Set(key string, value any) error {
	value = s.copyIn(key, value)

	s.swapMu.RLock()
	s.data.Load().Store(key, value)
	s.swapMu.RUnlock()

	return s.afterWrite()
}

// Get returns a deep copy of the value. A value that contains itself (only
// possible with SyncOnWrite disabled) cannot be copied and is returned as stored.
func (s *Store) Get(key string) (any, bool) {
	value, ok := s.data.Load().Load(key)
	if !ok {
		return nil, false
	}
	copied, ok := deepCopy(value)
	if !ok {
		log.Warningf("the value of %q in %s contains itself and is returned without copying", key, s.path)
	}
	return copied, true
}

func (s *Store) Has(key string) bool {
	_, ok := s.data.Load().Load(key)
	return ok
}

func (s *Store) Delete(key string) (bool, error) {
	s.swapMu.RLock()
	_, deleted := s.data.Load().LoadAndDelete(key)
	s.swapMu.RUnlock()

	return deleted, s.afterWrite()
}

// DeleteAll deletes the keys one by one. With SyncOnWrite enabled every deletion
// writes the whole (shrinking) document, so clearing n keys costs n writes.
// It stops at the first failing write.
func (s *Store) DeleteAll() (store.IDocStore, error) {
	for _, key := range s.Keys() {
		if _, err := s.Delete(key); err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s *Store) Document() (map[string]any, error) {
	snapshot := s.snapshot()
	if _, err := validateCodec.Serialize(snapshot, 0); err != nil {
		return nil, store.WrapError(store.RetCInvalidDocument, "stored mapping is not a valid document", s.path, err)
	}
	return s.copyDocument(snapshot)
}

// ReplaceDocument validates doc with the configured codec and swaps the whole mapping
// for a copy of it. A nil doc replaces nothing and only returns the current document.
// The new mapping is not persisted until the next Sync.
func (s *Store) ReplaceDocument(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return s.Document()
	}

	if _, err := s.config.Codec.Serialize(doc, 0); err != nil {
		return nil, store.WrapError(store.RetCInvalidDocument, "provided value is not a valid document", s.path, err)
	}
	replacement, err := s.copyDocument(doc)
	if err != nil {
		return nil, err
	}

	m := xsync.NewMapOf[string, any]()
	for k, v := range replacement {
		m.Store(k, v)
	}

	// writers hold the read lock while they store into the current map
	s.swapMu.Lock()
	s.data.Store(m)
	s.swapMu.Unlock()

	return s.copyDocument(replacement)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// afterWrite applies the persistence trigger rule after a mutation
func (s *Store) afterWrite() error {
	if !s.config.SyncOnWrite {
		return nil
	}
	return s.Sync()
}

// copyIn detaches a value from the caller before it is stored
func (s *Store) copyIn(key string, value any) any {
	copied, ok := deepCopy(value)
	if !ok {
		log.Warningf("the value of %q in %s contains itself and is stored without copying", key, s.path)
	}
	return copied
}

// copyDocument returns an independent copy of doc
func (s *Store) copyDocument(doc map[string]any) (map[string]any, error) {
	copied, ok := deepCopy(doc)
	if !ok {
		return nil, store.WrapError(store.RetCInternalError, "document contains itself and cannot be copied", s.path, nil)
	}
	return copied.(map[string]any), nil
}
