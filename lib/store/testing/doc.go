// Package testing provides standardised tests and benchmarks for
// document stores that satisfy the store.IDocStore interface.
//
// The package contains:
//   - RunDocStoreTests: A test suite validating conformance to the IDocStore contract
//   - RunDocStoreBenchmarks: Performance tests for the common store operations
//
// Every test opens its stores in a fresh t.TempDir(), so factories only need to
// map a path to a store.
//
// Example usage:
//
//	factory := func(path string) (store.IDocStore, error) {
//		return jstore.NewStore(path)
//	}
//
//	// Running the standard test suite
//	storetesting.RunDocStoreTests(t, "JSONStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunDocStoreBenchmarks(b, "JSONStore", factory)
package testing
