package cmd

import (
	"fmt"
	"github.com/ValentinKolb/jsondb/cmd/kv"
	"github.com/ValentinKolb/jsondb/cmd/shell"
	"github.com/ValentinKolb/jsondb/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "jsondb",
		Short: "embedded json document store",
		Long: fmt.Sprintf(`jsondb (v%s)

A minimal embedded key-value store that keeps its data in memory and
persists it as a single json document. The store can be configured via
flags or environment variables (JSONDB_<flag>, e.g. JSONDB_FILE=data.json).`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of jsondb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jsondb v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
