package exec

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
	"github.com/ValentinKolb/rsnDB/lib/errs"
	"github.com/ValentinKolb/rsnDB/lib/guard"
	"github.com/ValentinKolb/rsnDB/lib/logging"
	"github.com/ValentinKolb/rsnDB/rpc/common"
	"github.com/ValentinKolb/rsnDB/rpc/serializer"
)

var (
	session *util.Session

	// ExecCmd runs a request script through the dispatcher
	ExecCmd = &cobra.Command{
		Use:   "exec [script.jsonl]",
		Short: "Runs one JSON request per line and prints one response per line",
		Long: `Runs a script of JSON requests through the dispatcher, so batches,
aliases and undo work across lines. Blank lines and lines starting
with # are skipped. Example line:

  {"verb":"INSERT","table":"users","fields":{"name":"Ann"}}`,
		Args:               cobra.ExactArgs(1),
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				// keep what the successful lines changed
				if cerr := session.Close(); cerr != nil {
					logging.GetLogger("cli").Errorf("failed to save store: %v", cerr)
				}
				session = nil
			}
			return err
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	ExecCmd.Flags().Bool("stop-on-error", false, util.WrapString("Stop at the first failing request"))
}

func openSession(cmd *cobra.Command, _ []string) (err error) {
	session, err = util.OpenSession(cmd)
	return err
}

func closeSession(*cobra.Command, []string) error {
	return session.Close()
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.GetLogger("cli")
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")

	f, err := os.Open(args[0])
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "open script").With("path", args[0])
	}
	defer f.Close()

	ser := serializer.NewJSONSerializer()
	failed := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), guard.MaxIngestBytes+guard.MaxCommandBytes)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		out := session.Server.HandleText(line)
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		var resp common.Response
		if err := ser.DeserializeResponse(out, &resp); err != nil {
			return err
		}
		if !resp.Ok {
			failed++
			logger.Debugw("request failed", "line", lineNo, "error", resp.Error)
			if stopOnError {
				return fmt.Errorf("line %d: %w", lineNo, resp.Err())
			}
		}
	}
	if err := sc.Err(); err != nil {
		return errs.Wrap(errs.Internal, err, "read script").With("path", args[0])
	}

	if open, queued := session.Server.Batching(); open {
		logger.Warnf("script ended with an open batch, discarding %d queued requests", queued)
		if _, err := session.Do(&common.Request{Verb: common.VerbAbort}); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d requests failed", failed)
	}
	return nil
}
