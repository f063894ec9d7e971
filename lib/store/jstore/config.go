package jstore

import (
	"fmt"
	"github.com/ValentinKolb/jsondb/lib/codec"
	"os"
	"strings"
)

// Extension is appended to every backing file path that does not already end with it.
const Extension = ".json"

// --------------------------------------------------------------------------
// Store configuration
// --------------------------------------------------------------------------

// Config holds the configuration of a Store. It is fixed at construction time,
// use the With* options to override the values of DefaultConfig.
type Config struct {
	// AsyncWrite dispatches the file write of Sync to a background goroutine.
	// A failing background write is fatal, see SetAsyncFailureHandler.
	AsyncWrite bool
	// SyncOnWrite calls Sync after every mutation. If false, Sync has to be called explicitly.
	SyncOnWrite bool
	// IndentSize is the number of spaces per nesting level in the backing file (<= 0 means compact).
	IndentSize int
	// Codec serializes and deserializes the document.
	Codec codec.ICodec
	// AtomicWrite replaces the backing file via a temp file and rename instead of overwriting it in place.
	AtomicWrite bool
	// FileMode is used when the backing file is created.
	FileMode os.FileMode
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		AsyncWrite:  false,
		SyncOnWrite: true,
		IndentSize:  4,
		Codec:       codec.NewJSONCodec(),
		AtomicWrite: false,
		FileMode:    0o644,
	}
}

// Option overrides a single field of the default configuration.
type Option func(*Config)

// WithAsyncWrite sets Config.AsyncWrite
func WithAsyncWrite(async bool) Option {
	return func(c *Config) { c.AsyncWrite = async }
}

// WithSyncOnWrite sets Config.SyncOnWrite
func WithSyncOnWrite(sync bool) Option {
	return func(c *Config) { c.SyncOnWrite = sync }
}

// WithIndentSize sets Config.IndentSize
func WithIndentSize(indent int) Option {
	return func(c *Config) { c.IndentSize = indent }
}

// WithCodec sets Config.Codec. A nil codec keeps the default json codec.
func WithCodec(cdc codec.ICodec) Option {
	return func(c *Config) {
		if cdc != nil {
			c.Codec = cdc
		}
	}
}

// WithAtomicWrite sets Config.AtomicWrite
func WithAtomicWrite(atomic bool) Option {
	return func(c *Config) { c.AtomicWrite = atomic }
}

// WithFileMode sets Config.FileMode
func WithFileMode(mode os.FileMode) Option {
	return func(c *Config) { c.FileMode = mode }
}

// String returns a formatted string representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Persistence")
	addField("Sync On Write", fmt.Sprintf("%t", c.SyncOnWrite))
	addField("Async Write", fmt.Sprintf("%t", c.AsyncWrite))
	addField("Atomic Write", fmt.Sprintf("%t", c.AtomicWrite))
	addField("File Mode", fmt.Sprintf("%#o", c.FileMode))

	addSection("Format")
	codecName := "none"
	if c.Codec != nil {
		codecName = c.Codec.Name()
	}
	addField("Codec", codecName)
	addField("Indent", fmt.Sprintf("%d", c.IndentSize))

	return sb.String()
}
