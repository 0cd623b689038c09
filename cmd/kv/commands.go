package kv

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
	"github.com/ValentinKolb/rsnDB/rpc/common"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Sets the value for a key (JSON, or a plain string)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, common.NewPutRequest(args[0], util.ParseValue(args[1])))
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Gets the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, common.NewGetRequest(args[0]))
		},
	}
	dropCmd = &cobra.Command{
		Use:   "drop [key]",
		Short: "Deletes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &common.Request{Verb: common.VerbDrop, Key: args[0]})
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [prefix]",
		Short: "Lists the keys, optionally only those with a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &common.Request{Verb: common.VerbKeys}
			if len(args) == 1 {
				req.Key = args[0]
			}
			return run(cmd, req)
		},
	}
)

func run(cmd *cobra.Command, req *common.Request) error {
	result, err := session.Do(req)
	if err != nil {
		return err
	}
	return util.PrintValue(cmd, result)
}
