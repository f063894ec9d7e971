// Package jstore implements a file-backed document store based on the
// store.IDocStore interface. The complete mapping lives in memory and is written
// as one json document (or any other codec.ICodec format) to a single file.
//
// Key Features:
//   - Reads are served from memory, writes update memory and then persist
//   - Synchronous or fire-and-forget asynchronous persistence
//   - Optional atomic file replacement (temp file + rename)
//   - Pluggable codecs, including JSONC and an encrypted envelope
//   - Prometheus metrics per backing file
//
// Implementation Details:
//
//   - Construction: NewStore normalizes the path (".json" is appended when
//     missing), creates the parent directories and probes the file. A missing
//     file yields an empty store without creating the file. An existing file must
//     be readable and writable and, if not empty, contain an object at the top
//     level. Anything else aborts construction with a typed *store.Error.
//
//   - Persistence Trigger: With SyncOnWrite (the default) every Init, Set and
//     Delete, and every single deletion of DeleteAll, calls Sync and returns its
//     error. Memory is updated before the write, so after a failed Sync memory is
//     authoritative and the disk state unknown until the next successful Sync.
//     Without SyncOnWrite nothing is written until Sync is called explicitly.
//     ReplaceDocument never writes by itself.
//
//   - Full Writes: Sync always serializes the complete mapping, never a delta.
//     DeleteAll on n keys therefore performs n full writes when SyncOnWrite is on.
//
//   - Copies: Init, Set and ReplaceDocument store a copy of their argument, Get
//     and Document return copies. All maps and slices are copied (typed ones like
//     map[string]int too), pointers and structs are shared with the caller. A
//     value that contains itself cannot be copied and is stored and returned as
//     it is, Document and Sync reject it.
//
//   - Numbers: values keep their Go type in memory. Decoded files yield float64,
//     except integers beyond +-2^53 which are decoded as int64 so they round trip
//     exactly.
//
// Asynchronous Writes (read this before enabling AsyncWrite):
//
//	Sync serializes the document on the calling goroutine and hands the file write
//	to a new goroutine. The caller never sees the result of that write. A failed
//	asynchronous write is fatal: it is passed to the process-wide handler set with
//	SetAsyncFailureHandler, and the default handler panics, which terminates the
//	process. Concurrent asynchronous writes never interleave their bytes but are
//	not ordered, so an older snapshot can overwrite a newer one. Call Wait to block
//	until all dispatched writes are done.
//
// Thread Safety:
//
//	Single operations may be called from multiple goroutines; the mapping is an
//	xsync.MapOf. ReplaceDocument waits for running writes and swaps the mapping
//	under a lock, so a concurrent Init, Set or Delete applies either to the old
//	or to the new mapping, never to a mapping that was already replaced.
//	Sequences of operations are not atomic and the snapshot taken by Sync is not
//	isolated from concurrent mutations. The store assumes exclusive
//	ownership of the backing file: there is no file locking and two stores (or
//	processes) writing the same path will overwrite each other.
//
// Usage Example:
//
//	db, err := jstore.NewStore("data/settings", jstore.WithIndentSize(2))
//	if err != nil {
//		return err
//	}
//	// writes data/settings.json
//	err = db.Set("theme", map[string]any{"dark": true})
//
//	value, ok := db.Get("theme")
package jstore
