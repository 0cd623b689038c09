package bench

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/rsnDB/cmd/util"
)

var (
	// BenchCmd measures local throughput and latency
	BenchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Measures throughput and latency of the local engine",
		Long: `Runs every operation against a fresh in-memory engine and reports
latency percentiles and throughput. The store file is never touched;
the engine flags (passphrase, compression, snapshots) still apply.`,
		Args:               cobra.NoArgs,
		PersistentPreRunE:  processBenchConfig,
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE:               run,
	}
	benchOps        = 1000
	benchPersistOps = 20
	benchSkip       = make([]string, 0)
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	key := "ops"
	BenchCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per benchmark"))
	key = "persist-ops"
	BenchCmd.Flags().Int(key, 20, util.WrapString("Number of save and load operations (each handles the whole state)"))
	key = "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. save,load)"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.Prepare(cmd); err != nil {
		return err
	}

	benchOps = max(viper.GetInt("ops"), 1)
	benchPersistOps = max(viper.GetInt("persist-ops"), 1)
	benchSkip = splitList(viper.GetString("skip"))
	return nil
}
