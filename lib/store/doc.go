// Package store defines the interface and the error system shared by all
// document stores of jsondb.
//
// A document store keeps a mapping from string keys to document trees in memory
// and persists the complete mapping as a single serialized document. The package
// focuses on:
//   - A unified interface (IDocStore) for key-value operations on a document
//   - A typed error taxonomy so callers can react to specific failures
//
// Key Components:
//
//   - IDocStore Interface: The core abstraction. Reads are served from memory,
//     writes update memory first and then persist according to the store
//     configuration. A failed write therefore leaves memory authoritative and the
//     disk state unknown until the next successful Sync.
//
//   - Error System: Every error returned by a store is an *Error carrying a
//     RetCode, the affected path and the underlying cause. The sentinel values
//     (ErrAccess, ErrStat, ErrMalformedDocument, ...) only carry a code and are
//     meant for errors.Is:
//
//	if errors.Is(err, store.ErrAccess) {
//		// fix permissions
//	}
//
// Implementations:
//
//	- JSON file store (jstore): keeps the mapping in memory and writes it to a
//	  single file, synchronously or on a background goroutine.
//	  Available in the "github.com/ValentinKolb/jsondb/lib/store/jstore" package.
//
// The package "github.com/ValentinKolb/jsondb/lib/store/testing" contains a
// conformance suite every implementation is expected to pass.
package store
