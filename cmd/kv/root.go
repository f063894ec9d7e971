package kv

import (
	"github.com/ValentinKolb/jsondb/cmd/util"
	"github.com/ValentinKolb/jsondb/lib/store/jstore"
	"github.com/spf13/cobra"
)

var (
	docStore *jstore.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations on a document file",
		PersistentPreRunE:  openStore,
		PersistentPostRunE: waitForWrites,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	KeyValueCommands.AddCommand(initCmd)
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(deleteAllCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(dumpCmd)
	KeyValueCommands.AddCommand(loadCmd)
	KeyValueCommands.AddCommand(syncCmd)
	KeyValueCommands.AddCommand(statsCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// openStore opens the document store configured by flags and environment
func openStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.OpenStore()
	if err != nil {
		return err
	}
	docStore = s
	return nil
}

// waitForWrites keeps the process alive until asynchronous writes are done
func waitForWrites(_ *cobra.Command, _ []string) error {
	if docStore != nil {
		docStore.Wait()
	}
	return nil
}
