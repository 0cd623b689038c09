package store

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/store/lstore"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

var (
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Shows tables, row and edge counts, snapshots and checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run(cmd, &common.Request{Verb: common.VerbInfo}); err != nil {
				return err
			}
			if withMetrics, _ := cmd.Flags().GetBool("metrics"); withMetrics {
				fmt.Fprintln(cmd.OutOrStdout())
				session.Store.WriteMetrics(cmd.OutOrStdout())
			}
			return nil
		},
	}
	verifyCmd = &cobra.Command{
		Use:   "verify [path]",
		Short: "Checks a store file (default: --store) without loading it",
		Args:  cobra.MaximumNArgs(1),
		// verify must work on files that would fail to load
		PersistentPreRunE:  func(cmd *cobra.Command, _ []string) error { return util.Prepare(cmd) },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := util.StorePath()
			if len(args) == 1 {
				path = args[0]
			}
			st, err := lstore.New(util.GetStoreConfig())
			if err != nil {
				return err
			}
			defer st.Close()

			h, err := st.Verify(path)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd, map[string]any{
				"path":       path,
				"version":    h.Version,
				"encrypted":  h.Encrypted(),
				"compressed": h.Compressed(),
				"digest":     hex.EncodeToString(h.Digest[:]),
			})
		},
	}
	checkpointCmd = &cobra.Command{
		Use:   "checkpoint [name]",
		Short: "Names the current state so it can be restored later",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbCheckpoint, Name: args[0]})
		},
	}
	rollbackCmd = &cobra.Command{
		Use:   "rollback [name]",
		Short: "Restores the state captured by a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbRollback, Name: args[0]})
		},
	}
	releaseCmd = &cobra.Command{
		Use:   "release [name]",
		Short: "Forgets a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbRelease, Name: args[0]})
		},
	}
	checkpointsCmd = &cobra.Command{
		Use:   "checkpoints",
		Short: "Lists the checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbCheckpoints})
		},
	}
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Prints the operation log of this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbHistory})
		},
	}
	exportCmd = &cobra.Command{
		Use:   "export [table] [path]",
		Short: "Writes a table to a JSONL file or a SQLite database and prints the row count",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := fileFormat(cmd, args[1])
			if err != nil {
				return err
			}
			verb := common.VerbExportJSONL
			if format == "sqlite" {
				verb = common.VerbExportSQLite
			}
			return run(cmd, &common.Request{Verb: verb, Table: args[0], Path: args[1]})
		},
	}
	importCmd = &cobra.Command{
		Use:   "import [table] [path]",
		Short: "Inserts the rows of a JSONL file or a SQLite table, all or nothing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := fileFormat(cmd, args[1])
			if err != nil {
				return err
			}
			req := &common.Request{Verb: common.VerbImportJSONL, Table: args[0], Path: args[1]}
			if format == "sqlite" {
				req.Verb = common.VerbImportSQLite
				req.Name, _ = cmd.Flags().GetString("source-table")
			}
			return run(cmd, req)
		},
	}
)

// fileFormat returns --format or derives it from the extension of path
func fileFormat(cmd *cobra.Command, path string) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".db", ".sqlite", ".sqlite3":
			format = "sqlite"
		default:
			format = "jsonl"
		}
	}
	format = strings.ToLower(format)
	if format != "jsonl" && format != "sqlite" {
		return "", errs.New(errs.InvalidArgument, "unknown format %q (jsonl or sqlite)", format)
	}
	return format, nil
}

func run(cmd *cobra.Command, req *common.Request) error {
	result, err := session.Do(req)
	if err != nil {
		return err
	}
	return util.PrintValue(cmd, result)
}
