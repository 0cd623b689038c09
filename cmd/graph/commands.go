package graph

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

var (
	linkCmd = &cobra.Command{
		Use:   "link [from-table] [from-id] [label] [to-table] [to-id]",
		Short: "Adds a directed, labeled edge between two rows",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, common.NewLinkRequest(edge(args)))
		},
	}
	unlinkCmd = &cobra.Command{
		Use:   "unlink [from-table] [from-id] [label] [to-table] [to-id]",
		Short: "Removes an edge",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := common.NewLinkRequest(edge(args))
			req.Verb = common.VerbUnlink
			return run(cmd, req)
		},
	}
	walkCmd = &cobra.Command{
		Use:   "walk [table] [id]",
		Short: "Prints the rows reachable from a row, breadth-first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &common.Request{Verb: common.VerbWalk, Table: args[0], ID: args[1]}
			req.Label, _ = cmd.Flags().GetString("label")
			req.Hops.Min, _ = cmd.Flags().GetInt("min")
			req.Hops.Max, _ = cmd.Flags().GetInt("max")
			req.Direction, _ = cmd.Flags().GetString("direction")
			return run(cmd, req)
		},
	}
	edgesCmd = &cobra.Command{
		Use:   "edges [table] [id]",
		Short: "Lists the edges touching a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbEdges, Table: args[0], ID: args[1]})
		},
	}
)

func edge(args []string) db.Edge {
	return db.Edge{FromTable: args[0], FromID: args[1], Label: args[2], ToTable: args[3], ToID: args[4]}
}

func run(cmd *cobra.Command, req *common.Request) error {
	result, err := session.Do(req)
	if err != nil {
		return err
	}
	return util.PrintValue(cmd, result)
}
