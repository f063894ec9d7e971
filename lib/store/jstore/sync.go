package jstore

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/jsondb/lib/store"
	"github.com/natefinch/atomic"
	"io/fs"
	"os"
	"path/filepath"
	syncatomic "sync/atomic"
	"time"
)

// --------------------------------------------------------------------------
// Asynchronous write failures
// --------------------------------------------------------------------------

// AsyncFailureHandler receives the error of a failed asynchronous write.
// The error is a *store.Error with code store.RetCAsyncWrite wrapping the cause.
type AsyncFailureHandler func(err error)

var asyncFailureHandler syncatomic.Pointer[AsyncFailureHandler]

// SetAsyncFailureHandler installs the process-wide handler for failed asynchronous
// writes and returns the previous one. Passing nil restores the default handler.
//
// When AsyncWrite is enabled, Sync returns before the file is written, so a failed
// write cannot be reported to the caller. Such a failure means the backing file no
// longer reflects the mapping and is treated as fatal: the default handler logs the
// error and panics on the writing goroutine, which terminates the process. A custom
// handler that returns normally lets the process continue with an outdated file.
func SetAsyncFailureHandler(h AsyncFailureHandler) AsyncFailureHandler {
	var prev *AsyncFailureHandler
	if h == nil {
		prev = asyncFailureHandler.Swap(nil)
	} else {
		prev = asyncFailureHandler.Swap(&h)
	}
	if prev == nil {
		return defaultAsyncFailureHandler
	}
	return *prev
}

func defaultAsyncFailureHandler(err error) {
	log.Errorf("fatal: %v", err)
	panic(err)
}

func handleAsyncFailure(err error) {
	if h := asyncFailureHandler.Load(); h != nil {
		(*h)(err)
		return
	}
	defaultAsyncFailureHandler(err)
}

// --------------------------------------------------------------------------
// Sync
// --------------------------------------------------------------------------

// Sync serializes the complete mapping and writes it to the backing file,
// replacing its previous content.
//
// With AsyncWrite disabled the write blocks; a permission failure returns
// store.ErrAccess, any other failure store.ErrWrite.
//
// With AsyncWrite enabled the document is serialized before Sync returns, the write
// itself runs on a new goroutine and failures go to the AsyncFailureHandler.
// Writes dispatched by consecutive calls are not ordered: an older snapshot may be
// written after a newer one, leaving a stale file. Use Wait before relying on the
// file content.
func (s *Store) Sync() error {
	data, err := s.config.Codec.Serialize(s.snapshot(), s.config.IndentSize)
	if err != nil {
		s.metrics.syncErrors.Inc()
		log.Warningf("serializing %s failed: %v", s.path, err)
		return store.WrapError(store.RetCWrite, "write error", s.path, err)
	}

	if s.config.AsyncWrite {
		s.dispatch(data)
		return nil
	}

	s.metrics.syncs.Inc()
	if err := s.write(data); err != nil {
		s.metrics.syncErrors.Inc()
		log.Warningf("writing %s failed: %v", s.path, err)
		if errors.Is(err, fs.ErrPermission) {
			return store.WrapError(store.RetCAccess, "cannot access path", s.path, err)
		}
		return store.WrapError(store.RetCWrite, "write error", s.path, err)
	}
	return nil
}

// Wait blocks until all asynchronous writes dispatched so far have finished
func (s *Store) Wait() {
	s.pending.Wait()
}

// dispatch writes data on a background goroutine
func (s *Store) dispatch(data []byte) {
	s.metrics.asyncSyncs.Inc()
	s.pending.Add(1)

	go func() {
		defer s.pending.Done()

		if err := s.write(data); err != nil {
			s.metrics.asyncErrors.Inc()
			handleAsyncFailure(store.WrapError(store.RetCAsyncWrite, "asynchronous write failed", s.path, err))
		}
	}()
}

// write replaces the content of the backing file with data
func (s *Store) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := time.Now()
	defer s.metrics.writeDuration.UpdateDuration(start)
	s.metrics.documentSize.Update(float64(len(data)))

	if !s.config.AtomicWrite {
		return os.WriteFile(s.path, data, s.config.FileMode)
	}

	// atomic.WriteFile flattens its errors, probe first to keep the cause
	if err := s.probeAtomicWrite(); err != nil {
		return err
	}
	_, statErr := os.Stat(s.path)
	created := errors.Is(statErr, fs.ErrNotExist)

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return err
	}
	if created {
		return os.Chmod(s.path, s.config.FileMode)
	}
	return nil
}

// probeAtomicWrite checks that a temp file can be created next to the backing file
// and that an existing backing file is readable and writable
func (s *Store) probeAtomicWrite() error {
	dir := filepath.Dir(s.path)
	if err := checkDirAccess(dir); err != nil {
		return &fs.PathError{Op: "access", Path: dir, Err: err}
	}

	_, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	if err := checkAccess(s.path); err != nil {
		return &fs.PathError{Op: "access", Path: s.path, Err: err}
	}
	return nil
}
