package shell

import (
	"fmt"
	"github.com/ValentinKolb/jsondb/cmd/util"
	"github.com/ValentinKolb/jsondb/lib/store/jstore"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ShellCmd starts an interactive session on one document file
var ShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell on the document file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := util.BindCommandFlags(cmd); err != nil {
			return err
		}
		s, err := util.OpenStore()
		if err != nil {
			return err
		}
		defer s.Wait()

		r := &REPL{store: s, out: os.Stdout}
		return r.Run()
	},
}

func init() {
	cobra.OnInitialize(util.InitConfig)
}

// commands lists every command of the shell, used for completion
var commands = []string{
	"init", "set", "get", "has", "del", "delete",
	"delete-all", "keys", "ls", "dump", "load", "sync",
	"len", "info", "clear", "help", "exit", "quit", "q",
}

// REPL is the interactive command loop.
type REPL struct {
	store *jstore.Store
	out   io.Writer
	liner *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jsondb_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}
	defer r.saveHistory()

	fmt.Fprintf(r.out, "jsondb shell (%s, %d keys)\n", r.store.Path(), r.store.Len())
	fmt.Fprintln(r.out, "Type 'help' for available commands.")
	fmt.Fprintln(r.out)

	for {
		line, err := r.liner.Prompt("jsondb> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.out, "\nBye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.liner.AppendHistory(line)

		if !r.Exec(line) {
			fmt.Fprintln(r.out, "Bye!")
			return nil
		}
	}
}

// Exec runs a single command line and reports whether the session should continue
func (r *REPL) Exec(line string) bool {
	cmd, rest := splitWord(line)
	key, value := splitWord(rest)
	cmd = strings.ToLower(cmd)

	var err error
	switch cmd {
	case "exit", "quit", "q":
		return false

	case "help", "?":
		r.printHelp()

	case "init", "set":
		if key == "" || value == "" {
			fmt.Fprintf(r.out, "usage: %s <key> <value>\n", cmd)
			return true
		}
		if cmd == "init" {
			err = r.store.Init(key, util.ParseValue(value))
		} else {
			err = r.store.Set(key, util.ParseValue(value))
		}
		if err == nil {
			fmt.Fprintln(r.out, "OK")
		}

	case "get":
		if key == "" {
			fmt.Fprintln(r.out, "usage: get <key>")
			return true
		}
		v, ok := r.store.Get(key)
		if !ok {
			fmt.Fprintln(r.out, "(not found)")
			return true
		}
		var out string
		if out, err = util.FormatValue(v); err == nil {
			fmt.Fprintln(r.out, out)
		}

	case "has":
		fmt.Fprintln(r.out, r.store.Has(key))

	case "del", "delete":
		var deleted bool
		if deleted, err = r.store.Delete(key); err == nil {
			fmt.Fprintf(r.out, "deleted=%t\n", deleted)
		}

	case "delete-all":
		n := r.store.Len()
		if _, err = r.store.DeleteAll(); err == nil {
			fmt.Fprintf(r.out, "deleted %d keys\n", n)
		}

	case "keys", "ls":
		for _, k := range r.store.Keys() {
			fmt.Fprintln(r.out, k)
		}

	case "len":
		fmt.Fprintln(r.out, r.store.Len())

	case "dump":
		var doc map[string]any
		if doc, err = r.store.Document(); err == nil {
			var out string
			if out, err = util.FormatValue(doc); err == nil {
				fmt.Fprintln(r.out, out)
			}
		}

	case "load":
		if key == "" {
			fmt.Fprintln(r.out, "usage: load <file>")
			return true
		}
		var doc map[string]any
		if doc, err = util.ReadDocumentFile(key); err == nil {
			if _, err = r.store.ReplaceDocument(doc); err == nil {
				fmt.Fprintf(r.out, "loaded %d keys (not written yet, use sync)\n", len(doc))
			}
		}

	case "sync":
		if err = r.store.Sync(); err == nil {
			fmt.Fprintln(r.out, "OK")
		}

	case "info":
		fmt.Fprintf(r.out, "File: %s\nKeys: %d\n", r.store.Path(), r.store.Len())
		fmt.Fprint(r.out, r.store.Config().String())

	case "clear", "cls":
		fmt.Fprint(r.out, "\033[H\033[2J")

	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
	return true
}

// splitWord returns the first word of s and the trimmed remainder
func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}
}

// completer completes commands and, after get/has/del/set, keys
func (r *REPL) completer(line string) []string {
	var completions []string

	cmd, rest := splitWord(line)
	if strings.ContainsAny(line, " \t") {
		switch strings.ToLower(cmd) {
		case "get", "has", "del", "delete", "set", "init":
			for _, k := range r.store.Keys() {
				if strings.HasPrefix(k, rest) {
					completions = append(completions, cmd+" "+k)
				}
			}
		}
		return completions
	}

	lower := strings.ToLower(line)
	for _, c := range commands {
		if strings.HasPrefix(c, lower) {
			completions = append(completions, c)
		}
	}
	return completions
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  init <key> <value>   Set a value if the key is not set yet")
	fmt.Fprintln(r.out, "  set <key> <value>    Set a value (json literal or plain text)")
	fmt.Fprintln(r.out, "  get <key>            Print a value")
	fmt.Fprintln(r.out, "  has <key>            Check if a key exists")
	fmt.Fprintln(r.out, "  del <key>            Delete a key")
	fmt.Fprintln(r.out, "  delete-all           Delete all keys")
	fmt.Fprintln(r.out, "  keys                 List all keys")
	fmt.Fprintln(r.out, "  len                  Count keys")
	fmt.Fprintln(r.out, "  dump                 Print the whole document")
	fmt.Fprintln(r.out, "  load <file>          Replace the document with a json file")
	fmt.Fprintln(r.out, "  sync                 Write the document to the backing file")
	fmt.Fprintln(r.out, "  info                 Show file and configuration")
	fmt.Fprintln(r.out, "  help                 Show this help")
	fmt.Fprintln(r.out, "  exit / quit / q      Exit")
}
