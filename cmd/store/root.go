package store

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
)

var (
	session *util.Session

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:                "store",
		Short:              "Inspect the store file, manage checkpoints and move data in and out",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	StoreCommands.AddCommand(infoCmd)
	StoreCommands.AddCommand(verifyCmd)
	StoreCommands.AddCommand(checkpointCmd)
	StoreCommands.AddCommand(rollbackCmd)
	StoreCommands.AddCommand(releaseCmd)
	StoreCommands.AddCommand(checkpointsCmd)
	StoreCommands.AddCommand(historyCmd)
	StoreCommands.AddCommand(exportCmd)
	StoreCommands.AddCommand(importCmd)

	infoCmd.Flags().Bool("metrics", false, util.WrapString("Also print the engine metrics in Prometheus text format"))
	for _, cmd := range []*cobra.Command{exportCmd, importCmd} {
		cmd.Flags().String("format", "", util.WrapString("File format (jsonl or sqlite). Derived from the file extension when empty"))
	}
	importCmd.Flags().String("source-table", "", util.WrapString("Table to read from a SQLite database (defaults to the target table)"))
}

func openSession(cmd *cobra.Command, _ []string) (err error) {
	session, err = util.OpenSession(cmd)
	return err
}

func closeSession(*cobra.Command, []string) error {
	return session.Close()
}
