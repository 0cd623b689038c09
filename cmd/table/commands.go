package table

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [table]",
		Short: "Creates a table from a schema file or --field definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &common.Request{Verb: common.VerbCreateTable, Table: args[0], Schema: &db.Schema{}}

			if path, _ := cmd.Flags().GetString("schema"); path != "" {
				sf, err := readSchemaFile(path)
				if err != nil {
					return err
				}
				req.Mode = sf.Mode
				req.Schema.Fields = sf.Fields
			}
			specs, _ := cmd.Flags().GetStringArray("field")
			for _, spec := range specs {
				f, err := parseField(spec)
				if err != nil {
					return err
				}
				req.Schema.Fields = append(req.Schema.Fields, f)
			}
			if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
				req.Mode = mode
			}
			return run(cmd, req)
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [table]",
		Short: "Drops a table together with every edge touching its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbDeleteTable, Table: args[0]})
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbTables})
		},
	}
	describeCmd = &cobra.Command{
		Use:   "describe [table]",
		Short: "Shows the schema, mode and row count of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbDescribe, Table: args[0]})
		},
	}
	insertCmd = &cobra.Command{
		Use:   "insert [table] [json-object]",
		Short: "Inserts a row and prints its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := util.ParseDocument(args[1])
			if err != nil {
				return err
			}
			return run(cmd, common.NewInsertRequest(args[0], fields))
		},
	}
	readCmd = &cobra.Command{
		Use:   "read [table]",
		Short: "Prints the rows matching --where",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := selection(cmd, common.VerbRead, args[0])
			if err != nil {
				return err
			}
			req.OrderBy, _ = cmd.Flags().GetString("order-by")
			req.Desc, _ = cmd.Flags().GetBool("desc")
			req.Limit, _ = cmd.Flags().GetInt("limit")
			return run(cmd, req)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [table] [json-patch]",
		Short: "Merges a patch into the rows matching --where and prints the count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := selection(cmd, common.VerbUpdate, args[0])
			if err != nil {
				return err
			}
			patch, err := util.ParseDocument(args[1])
			if err != nil {
				return err
			}
			req.Patch = &patch
			return run(cmd, req)
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [table]",
		Short: "Deletes the rows matching --where and their edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := selection(cmd, common.VerbRemove, args[0])
			if err != nil {
				return err
			}
			return run(cmd, req)
		},
	}
	emptyCmd = &cobra.Command{
		Use:   "empty [table]",
		Short: "Clears the fields of the rows matching --where, keeping ids and edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := selection(cmd, common.VerbEmpty, args[0])
			if err != nil {
				return err
			}
			return run(cmd, req)
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [table]",
		Short: "Counts the rows matching --where",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := selection(cmd, common.VerbCount, args[0])
			if err != nil {
				return err
			}
			return run(cmd, req)
		},
	}
)

// selection builds a request for verb with the --where condition
func selection(cmd *cobra.Command, verb common.Verb, table string) (*common.Request, error) {
	where, _ := cmd.Flags().GetString("where")
	cond, err := util.ParseCondition(where)
	if err != nil {
		return nil, err
	}
	return &common.Request{Verb: verb, Table: table, Where: cond}, nil
}

func run(cmd *cobra.Command, req *common.Request) error {
	result, err := session.Do(req)
	if err != nil {
		return err
	}
	return util.PrintValue(cmd, result)
}
