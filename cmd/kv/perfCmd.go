package kv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/eKV/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for eKV databases and servers",
		Args:    cobra.NoArgs,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOps              = 10000
	perfSkip             = make([]string, 0)
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark (remote mode only, local runs use one)"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 10000, util.WrapString("Number of operations per test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	// a local dispatcher is not safe for concurrent use
	if viper.GetString("mode") == string(util.ModeLocal) {
		perfNumThreads = 1
	}
	return nil
}

// perfTest is one benchmark. prepare runs before the timer starts, op is
// timed perfOps times.
type perfTest struct {
	name    string
	prepare func(keys []string) error
	op      func(i int, keys []string) []string
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for eKV")
	fmt.Println()
	fmt.Printf("Mode: %s, Threads: %d, Operations: %d, Keys: %d\n", viper.GetString("mode"), perfNumThreads, perfOps, perfKeySpread)
	fmt.Println()

	largeValue := string(make([]byte, perfLargeValueSizeKB*1024))
	fill := func(keys []string) error {
		for _, k := range keys {
			if _, err := executor.Execute([]string{"SET", k, "test"}); err != nil {
				return err
			}
		}
		return nil
	}

	tests := []perfTest{
		{name: "set", op: func(i int, keys []string) []string {
			return []string{"SET", keys[i%len(keys)], "test"}
		}},
		{name: "set-large", op: func(i int, keys []string) []string {
			return []string{"SET", keys[i%len(keys)], largeValue}
		}},
		{name: "get", prepare: fill, op: func(i int, keys []string) []string {
			return []string{"GET", keys[i%len(keys)]}
		}},
		{name: "get-missing", op: func(i int, _ []string) []string {
			return []string{"GET", fmt.Sprintf("%s-missing-%d", perfKeyPrefix, i%100)}
		}},
		{name: "scan", prepare: fill, op: func(_ int, _ []string) []string {
			return []string{"SCAN", "0", "MATCH", perfKeyPrefix + "-scan-*", "COUNT", "10"}
		}},
		{name: "count", prepare: fill, op: func(_ int, _ []string) []string {
			return []string{"DBKCOUNT"}
		}},
		{name: "mixed", prepare: fill, op: func(i int, keys []string) []string {
			key := keys[i%len(keys)]
			switch i % 3 {
			case 0:
				return []string{"SET", key, "test"}
			case 1:
				return []string{"GET", key}
			default:
				return []string{"SCAN", "0", "COUNT", "5"}
			}
		}},
	}

	registry := gometrics.NewRegistry()
	for _, test := range tests {
		if shouldSkip(test.name) {
			fmt.Printf("%-14sskipped\n", test.name)
			continue
		}
		timer, errors, err := runPerfTest(registry, test)
		if err != nil {
			return fmt.Errorf("%s: %w", test.name, err)
		}
		printResult(test.name, timer, errors)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, registry); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runPerfTest runs one test and records the latency of every operation in a
// timer registered under the test name.
func runPerfTest(registry gometrics.Registry, test perfTest) (gometrics.Timer, gometrics.Counter, error) {
	keys := getKeys(test.name)
	if test.prepare != nil {
		if err := test.prepare(keys); err != nil {
			return nil, nil, err
		}
	}
	defer cleanupKeys(keys)

	timer := gometrics.GetOrRegisterTimer(test.name, registry)
	errors := gometrics.GetOrRegisterCounter(test.name+".errors", registry)

	var wg sync.WaitGroup
	var next atomic.Int64
	claim := func() (int, bool) {
		i := next.Add(1) - 1
		return int(i), i < int64(perfOps)
	}

	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := claim()
				if !ok {
					return
				}
				args := test.op(i, keys)
				start := time.Now()
				_, err := executor.Execute(args)
				timer.UpdateSince(start)
				if err != nil && !isExpected(test.name, err) {
					errors.Inc(1)
				}
			}
		}()
	}
	wg.Wait()

	return timer, errors, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// isExpected reports errors that are part of the test, like misses in get-missing
func isExpected(test string, err error) bool {
	return test == "get-missing" && strings.Contains(err.Error(), "not found")
}

// getKeys creates the keys of one test
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// cleanupKeys deletes the keys of a test in one command
func cleanupKeys(keys []string) {
	if _, err := executor.Execute(append([]string{"DEL"}, keys...)); err != nil {
		util.Logger.Warningf("cleanup failed: %v", err)
	}
}

// printResult prints the result of a test in a formatted way
func printResult(test string, timer gometrics.Timer, errors gometrics.Counter) {
	snapshot := timer.Snapshot()
	ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-14s%8d ops  mean %-12s p50 %-12s p95 %-12s p99 %-12s %10.0f ops/sec  %d errors\n",
		test,
		snapshot.Count(),
		time.Duration(snapshot.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		snapshot.RateMean(),
		errors.Count(),
	)
}

// writeResultsToCSV writes the timers of the registry to a CSV file
func writeResultsToCSV(csvPath string, registry gometrics.Registry) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "OpsPerSec", "Errors",
		"Mode", "Backend", "Endpoints", "Serializer", "Transport", "Threads", "LargeValueSizeKB", "Keys",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	var rowErr error
	registry.Each(func(name string, metric interface{}) {
		timer, ok := metric.(gometrics.Timer)
		if !ok || rowErr != nil {
			return
		}
		errors := int64(0)
		if c, ok := registry.Get(name + ".errors").(gometrics.Counter); ok {
			errors = c.Count()
		}

		snapshot := timer.Snapshot()
		ps := snapshot.Percentiles([]float64{0.5, 0.95, 0.99})
		row := []string{
			name,
			strconv.FormatInt(snapshot.Count(), 10),
			fmt.Sprintf("%.0f", snapshot.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			fmt.Sprintf("%.0f", snapshot.RateMean()),
			strconv.FormatInt(errors, 10),
			viper.GetString("mode"),
			viper.GetString("backend"),
			viper.GetString("transport-endpoints"),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			rowErr = fmt.Errorf("failed to write row for test %s: %v", name, err)
		}
	})

	return rowErr
}
