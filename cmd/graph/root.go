package graph

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
)

var (
	session *util.Session

	// GraphCommands represents the graph command group
	GraphCommands = &cobra.Command{
		Use:                "graph",
		Short:              "Link rows with labeled edges and traverse them",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	GraphCommands.AddCommand(linkCmd)
	GraphCommands.AddCommand(unlinkCmd)
	GraphCommands.AddCommand(walkCmd)
	GraphCommands.AddCommand(edgesCmd)

	walkCmd.Flags().String("label", "", util.WrapString("Only follow edges with this label (empty = any label)"))
	walkCmd.Flags().Int("min", 1, util.WrapString("Minimum number of hops a reported node is away from the start"))
	walkCmd.Flags().Int("max", 1, util.WrapString("Maximum number of hops"))
	walkCmd.Flags().String("direction", "out", util.WrapString("Edge direction to follow (out, in, both)"))
}

func openSession(cmd *cobra.Command, _ []string) (err error) {
	session, err = util.OpenSession(cmd)
	return err
}

func closeSession(*cobra.Command, []string) error {
	return session.Close()
}
