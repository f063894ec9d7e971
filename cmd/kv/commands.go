package kv

import (
	"fmt"
	"github.com/ValentinKolb/jsondb/cmd/util"
	"github.com/ValentinKolb/jsondb/lib/store/jstore"
	"github.com/spf13/cobra"
	"os"
)

var (
	initCmd = &cobra.Command{
		Use:   "init [key] [value]",
		Short: "Sets the value for a key if the key is not already set",
		Long:  "Sets the value for a key if the key is not already set. The value is parsed as json, text that is not valid json is stored as a string.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := docStore.Init(key, util.ParseValue(args[1])); err != nil {
				return err
			}
			fmt.Println("init successfully")
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. The value is parsed as json, text that is not valid json is stored as a string.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := docStore.Set(key, util.ParseValue(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, ok := docStore.Get(key)
			if !ok {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			out, err := util.FormatValue(value)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, value=%s\n", key, out)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			fmt.Printf("key=%s, found=%t\n", key, docStore.Has(key))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			deleted, err := docStore.Delete(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, deleted=%t\n", key, deleted)
			return nil
		},
	}
	deleteAllCmd = &cobra.Command{
		Use:   "delete-all",
		Short: "Deletes all key value pairs",
		Long:  "Deletes all key value pairs one by one. With sync-on-write enabled the file is written once per key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := docStore.Len()
			if _, err := docStore.DeleteAll(); err != nil {
				return err
			}
			fmt.Printf("deleted %d keys\n", n)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists all keys in ascending order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range docStore.Keys() {
				fmt.Println(key)
			}
			return nil
		},
	}
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Prints the whole document as json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := docStore.Document()
			if err != nil {
				return err
			}
			out, err := util.FormatValue(doc)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	loadCmd = &cobra.Command{
		Use:   "load [file]",
		Short: "Replaces the whole document with the content of a json file",
		Long:  "Replaces the whole document with the object stored in a json (or json with comments) file and writes the backing file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := util.ReadDocumentFile(args[0])
			if err != nil {
				return err
			}
			if _, err := docStore.ReplaceDocument(doc); err != nil {
				return err
			}
			if err := docStore.Sync(); err != nil {
				return err
			}
			fmt.Printf("loaded %d keys from %s\n", len(doc), args[0])
			return nil
		},
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Writes the document to the backing file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := docStore.Sync(); err != nil {
				return err
			}
			fmt.Println("sync successfully")
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the store configuration and the write metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("File: %s\n", docStore.Path())
			fmt.Printf("Keys: %d\n", docStore.Len())
			fmt.Print(docStore.Config().String())

			fmt.Println()
			fmt.Println("METRICS")
			jstore.WriteMetrics(os.Stdout)
			return nil
		},
	}
)
