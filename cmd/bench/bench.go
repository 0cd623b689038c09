package bench

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
	"github.com/ValentinKolb/rsnDB/lib/db"
	"github.com/ValentinKolb/rsnDB/lib/store/lstore"
	"github.com/ValentinKolb/rsnDB/lib/value"
	"github.com/ValentinKolb/rsnDB/rpc/client"
	"github.com/ValentinKolb/rsnDB/rpc/common"
	"github.com/ValentinKolb/rsnDB/rpc/serializer"
	"github.com/ValentinKolb/rsnDB/rpc/server"
)

const (
	benchTable = "bench"
	benchFile  = "bench.db"
)

// benchmark is one measured operation. op receives the iteration index.
type benchmark struct {
	name string
	ops  int
	op   func(i int) error
}

// result is the snapshot of a benchmark timer
type result struct {
	name    string
	skipped bool
	count   int64
	errors  int64
	mean    float64
	p50     float64
	p95     float64
	p99     float64
	max     int64
}

var percentiles = []float64{0.5, 0.95, 0.99}

func run(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfg := util.GetStoreConfig()
	cfg.DataDir = "/bench"

	fmt.Fprintln(out, "Performance testing tool for the rsnDB engine")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, cfg.String())
	fmt.Fprintf(out, "Operations: %d (save/load: %d)\n", benchOps, benchPersistOps)
	fmt.Fprintln(out)

	st, err := lstore.New(cfg, lstore.WithFs(afero.NewMemMapFs()))
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := server.NewServer(common.DefaultServerConfig(), st)
	if err != nil {
		return err
	}

	schema := db.Schema{Fields: []db.FieldDef{
		{Name: "n", Type: db.TypeInteger, Required: true, Unique: true},
		{Name: "name", Type: db.TypeString},
		{Name: "tags", Type: db.TypeArray},
	}}
	if err := st.CreateTable(benchTable, schema, db.ModeStrict); err != nil {
		return err
	}

	ids := make([]string, 0, benchOps)
	row := func(i int) value.Value {
		return value.Document(
			value.Field{Name: "n", Value: value.Int(int64(i))},
			value.Field{Name: "name", Value: value.String(fmt.Sprintf("row-%d", i))},
			value.Field{Name: "tags", Value: value.Array(value.String("a"), value.String("b"))},
		)
	}
	id := func(i int) string { return ids[i%len(ids)] }
	rpc := client.NewRPCStore(srv, serializer.NewGOBSerializer())

	benchmarks := []benchmark{
		{name: "insert", ops: benchOps, op: func(i int) error {
			rid, err := st.Insert(benchTable, row(i))
			if err == nil {
				ids = append(ids, rid)
			}
			return err
		}},
		{name: "row", ops: benchOps, op: func(i int) error {
			_, err := st.Row(benchTable, id(i))
			return err
		}},
		{name: "where", ops: benchOps, op: func(i int) error {
			_, err := st.Read(benchTable, db.ReadOptions{Where: db.Where("n", db.OpEq, value.Int(int64(i)))})
			return err
		}},
		{name: "update", ops: benchOps, op: func(i int) error {
			patch := value.Document(value.Field{Name: "name", Value: value.String(fmt.Sprintf("updated-%d", i))})
			_, err := st.Update(benchTable, db.Where("n", db.OpEq, value.Int(int64(i))), patch)
			return err
		}},
		{name: "link", ops: benchOps, op: func(i int) error {
			return st.Link(db.Edge{FromTable: benchTable, FromID: id(i), Label: "next", ToTable: benchTable, ToID: id(i + 1)})
		}},
		{name: "walk", ops: benchOps, op: func(i int) error {
			_, err := st.Walk(benchTable, id(i), "next", db.HopRange{Min: 1, Max: 5}, db.DirOut)
			return err
		}},
		{name: "put", ops: benchOps, op: func(i int) error {
			return st.Put(fmt.Sprintf("k-%d", i), row(i))
		}},
		{name: "get", ops: benchOps, op: func(i int) error {
			_, err := st.Get(fmt.Sprintf("k-%d", i))
			return err
		}},
		{name: "rpc-get", ops: benchOps, op: func(i int) error {
			_, err := rpc.Get(fmt.Sprintf("k-%d", i))
			return err
		}},
		{name: "rpc-insert", ops: benchOps, op: func(i int) error {
			_, err := rpc.Insert(benchTable, row(benchOps+i))
			return err
		}},
		{name: "save", ops: benchPersistOps, op: func(int) error {
			_, err := st.Save(benchFile)
			return err
		}},
		{name: "load", ops: benchPersistOps, op: func(int) error {
			return st.Load(benchFile)
		}},
	}

	fmt.Fprintln(out, "starting tests...")
	registry := metrics.NewRegistry()
	results := make([]result, 0, len(benchmarks))
	for _, b := range benchmarks {
		if shouldSkip(b.name) || (needsRows(b.name) && len(ids) == 0) {
			results = append(results, result{name: b.name, skipped: true})
			printResult(cmd, results[len(results)-1])
			continue
		}
		timer := metrics.GetOrRegisterTimer(b.name, registry)
		failures := metrics.GetOrRegisterCounter(b.name+".errors", registry)
		for i := 0; i < b.ops; i++ {
			start := time.Now()
			err := b.op(i)
			timer.UpdateSince(start)
			if err != nil {
				failures.Inc(1)
			}
		}
		results = append(results, snapshot(b.name, timer, failures))
		printResult(cmd, results[len(results)-1])
	}

	if csvPath, _ := cmd.Flags().GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nresults written to %s\n", csvPath)
	}
	return nil
}

// needsRows reports whether a benchmark addresses rows created by insert
func needsRows(name string) bool {
	switch name {
	case "row", "link", "walk":
		return true
	}
	return false
}

func snapshot(name string, timer metrics.Timer, failures metrics.Counter) result {
	t := timer.Snapshot()
	ps := t.Percentiles(percentiles)
	return result{
		name:   name,
		count:  t.Count(),
		errors: failures.Count(),
		mean:   t.Mean(),
		p50:    ps[0],
		p95:    ps[1],
		p99:    ps[2],
		max:    t.Max(),
	}
}

func (r result) opsPerSec() float64 {
	return 1.0 / (math.Max(r.mean, 1) / 1e9) // prevent division by zero
}

func shouldSkip(test string) bool {
	for _, s := range benchSkip {
		if s == test {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printResult(cmd *cobra.Command, r result) {
	out := cmd.OutOrStdout()
	if r.skipped {
		fmt.Fprintf(out, "%-12sskipped\n", r.name)
		return
	}
	fmt.Fprintf(out, "%-12s%8d ops  mean %-10s p50 %-10s p95 %-10s p99 %-10s max %-10s %10.0f ops/sec",
		r.name, r.count,
		time.Duration(r.mean), time.Duration(r.p50), time.Duration(r.p95), time.Duration(r.p99), time.Duration(r.max),
		r.opsPerSec())
	if r.errors > 0 {
		fmt.Fprintf(out, "  (%d errors)", r.errors)
	}
	fmt.Fprintln(out)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []result, cfg lstore.Config) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Ops", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "OpsPerSec", "Errors", "Skipped",
		"Compress", "CompressionLevel", "Encrypted", "MaxSnapshots",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		row := []string{
			r.name,
			strconv.FormatInt(r.count, 10),
			fmt.Sprintf("%.0f", r.mean),
			fmt.Sprintf("%.0f", r.p50),
			fmt.Sprintf("%.0f", r.p95),
			fmt.Sprintf("%.0f", r.p99),
			strconv.FormatInt(r.max, 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			strconv.FormatInt(r.errors, 10),
			strconv.FormatBool(r.skipped),
			strconv.FormatBool(cfg.Compress),
			cfg.CompressionLevel,
			strconv.FormatBool(cfg.Passphrase != ""),
			strconv.Itoa(cfg.MaxSnapshots),
		}
		if r.skipped {
			row[7] = "0"
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}
	return nil
}
