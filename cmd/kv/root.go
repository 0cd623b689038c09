package kv

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
)

var (
	session *util.Session

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(dropCmd)
	KeyValueCommands.AddCommand(keysCmd)
}

func openSession(cmd *cobra.Command, _ []string) (err error) {
	session, err = util.OpenSession(cmd)
	return err
}

func closeSession(*cobra.Command, []string) error {
	return session.Close()
}
