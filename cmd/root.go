package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/rsnDB/cmd/bench"
	"github.com/ValentinKolb/rsnDB/cmd/exec"
	"github.com/ValentinKolb/rsnDB/cmd/graph"
	"github.com/ValentinKolb/rsnDB/cmd/kv"
	"github.com/ValentinKolb/rsnDB/cmd/store"
	"github.com/ValentinKolb/rsnDB/cmd/table"
	"github.com/ValentinKolb/rsnDB/cmd/util"
)

const (
	Version = "0.4.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rsndb",
		Short: "embedded table, graph and key-value store",
		Long: fmt.Sprintf(`rsnDB (v%s)

An embedded multi-model store: schema-checked tables, a labeled graph
over their rows and a key-value map, with undo/redo, named checkpoints
and an encrypted, compressed, checksummed store file.

Every command loads --store (if it exists), runs and saves the file
again if anything changed.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rsnDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rsnDB v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(table.TableCommands)
	RootCmd.AddCommand(graph.GraphCommands)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(store.StoreCommands)
	RootCmd.AddCommand(exec.ExecCmd)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
	_ = viper.BindPFlags(RootCmd.PersistentFlags())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
