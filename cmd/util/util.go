package util

import (
	"fmt"
	"github.com/ValentinKolb/jsondb/lib/codec"
	"github.com/ValentinKolb/jsondb/lib/common"
	"github.com/ValentinKolb/jsondb/lib/store/jstore"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the cli
	EnvPrefix = "jsondb"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the flags that configure the document store to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "file"
	cmd.PersistentFlags().String(key, "db.json", WrapString("Path of the backing file (.json is appended if missing)"))

	key = "codec"
	cmd.PersistentFlags().String(key, "json", WrapString("Codec used to read and write the backing file (json, jsonc, encrypted)"))

	key = "passphrase"
	cmd.PersistentFlags().String(key, "", WrapString("Passphrase for the encrypted codec. Prefer the JSONDB_PASSPHRASE environment variable over the flag"))

	key = "async-write"
	cmd.PersistentFlags().Bool(key, false, WrapString("Write the backing file on a background goroutine. A failed background write terminates the process"))

	key = "sync-on-write"
	cmd.PersistentFlags().Bool(key, true, WrapString("Write the backing file after every mutation"))

	key = "indent"
	cmd.PersistentFlags().Int(key, 4, WrapString("Number of spaces per nesting level in the backing file (0 writes compact documents)"))

	key = "atomic-write"
	cmd.PersistentFlags().Bool(key, false, WrapString("Replace the backing file through a temporary file and rename instead of overwriting it"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig loads .env files and initializes viper to read environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetCodec creates the codec selected by the configuration
func GetCodec() (codec.ICodec, error) {
	switch name := viper.GetString("codec"); name {
	case "", "json":
		return codec.NewJSONCodec(), nil
	case "jsonc":
		return codec.NewJSONCCodec(), nil
	case "encrypted":
		passphrase := viper.GetString("passphrase")
		if passphrase == "" {
			return nil, fmt.Errorf("the encrypted codec requires a passphrase (--passphrase or JSONDB_PASSPHRASE)")
		}
		return codec.NewEncryptedCodec(codec.NewJSONCodec(), passphrase, codec.DefaultScryptParams()), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", name)
	}
}

// GetStoreOptions converts the configuration into store options
func GetStoreOptions() ([]jstore.Option, error) {
	cdc, err := GetCodec()
	if err != nil {
		return nil, err
	}

	return []jstore.Option{
		jstore.WithCodec(cdc),
		jstore.WithAsyncWrite(viper.GetBool("async-write")),
		jstore.WithSyncOnWrite(viper.GetBool("sync-on-write")),
		jstore.WithIndentSize(viper.GetInt("indent")),
		jstore.WithAtomicWrite(viper.GetBool("atomic-write")),
	}, nil
}

// OpenStore initializes the loggers and opens the store configured by flags and environment
func OpenStore() (*jstore.Store, error) {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}

	opts, err := GetStoreOptions()
	if err != nil {
		return nil, err
	}

	return jstore.NewStore(viper.GetString("file"), opts...)
}

// ParseValue interprets text as a json literal. Text that is not valid json is
// returned as a plain string, so `set name alice` does not need quotes.
func ParseValue(text string) any {
	value, err := codec.NewJSONCodec().Deserialize([]byte(text))
	if err != nil {
		return text
	}
	return value
}

// FormatValue renders a document tree as indented json
func FormatValue(value any) (string, error) {
	b, err := codec.NewJSONCodec().Serialize(value, 2)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadDocumentFile reads a json (or jsonc) file that contains an object at the top level
func ReadDocumentFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tree, err := codec.NewJSONCCodec().Deserialize(b)
	if err != nil {
		return nil, fmt.Errorf("%s does not contain a valid document: %w", path, err)
	}

	doc, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s does not contain an object at the top level", path)
	}
	return doc, nil
}
