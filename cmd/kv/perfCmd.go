package kv

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/jsondb/cmd/util"
	"github.com/ValentinKolb/jsondb/lib/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var log = logger.GetLogger(common.LoggerCLI)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the document store",
		Long:    "Runs set, get, has, delete and mixed workloads against the configured backing file. All keys used by the tests are prefixed with __test and removed afterwards.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 16
	perfNumThreads       = 4
	perfKeySpread        = 100
	perfOps              = 1000
	perfSkip             = make([]string, 0)
)

// perfResult is the outcome of one workload
type perfResult struct {
	test    string
	skipped bool
	elapsed time.Duration
	timer   metrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How many operations to run per test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOps = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 || perfNumThreads <= 0 || perfOps <= 0 {
		return fmt.Errorf("keys, threads and ops must be positive")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for the document store")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("File: %s\n", docStore.Path())
	fmt.Print(docStore.Config().String())
	fmt.Printf("Threads: %d, Ops: %d, Keys: %d\n", perfNumThreads, perfOps, perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := metrics.NewRegistry()
	results := make([]perfResult, 0)

	record := func(r perfResult) {
		results = append(results, r)
		printResult(r)
	}

	// set
	record(benchmark(registry, "set", nil, func(key string, _ int) error {
		return docStore.Set(key, "test")
	}))

	// set-large
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	record(benchmark(registry, "set-large", nil, func(key string, _ int) error {
		return docStore.Set(key, largeValue)
	}))

	// get
	record(benchmark(registry, "get", fillKeys, func(key string, _ int) error {
		docStore.Get(key)
		return nil
	}))

	// has
	record(benchmark(registry, "has", fillKeys, func(key string, _ int) error {
		docStore.Has(key)
		return nil
	}))

	// has-not
	record(benchmark(registry, "has-not", nil, func(key string, _ int) error {
		docStore.Has(key + "-not")
		return nil
	}))

	// delete
	record(benchmark(registry, "delete", fillKeys, func(key string, _ int) error {
		_, err := docStore.Delete(key)
		return err
	}))

	// mixed
	record(benchmark(registry, "mixed", fillKeys, func(key string, i int) error {
		var err error
		switch i % 4 {
		case 0: // set
			err = docStore.Set(key, "test")
		case 1: // get
			docStore.Get(key)
		case 2: // delete
			_, err = docStore.Delete(key)
		case 3: // has
			docStore.Has(key)
		}
		return err
	}))

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchmark runs op perfOps times spread over perfNumThreads goroutines and times
// every call. prepare (optional) runs before the timer starts, the keys of the test
// are deleted afterwards.
func benchmark(registry metrics.Registry, test string, prepare func([]string), op func(key string, i int) error) perfResult {
	timer := metrics.GetOrRegisterTimer(test, registry)
	if shouldSkip(test) {
		return perfResult{test: test, skipped: true, timer: timer}
	}

	keys := getKeys(test)
	if prepare != nil {
		prepare(keys)
	}
	defer cleanupKeys(test, keys)

	var wg sync.WaitGroup
	start := time.Now()
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			for i := t; i < perfOps; i += perfNumThreads {
				key := keys[i%len(keys)]
				var err error
				timer.Time(func() { err = op(key, i) })
				if err != nil {
					log.Warningf("(%s) - error performing operation: %v", test, err)
				}
			}
		}(t)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// asynchronous writes belong to the measured workload
	docStore.Wait()

	return perfResult{test: test, elapsed: elapsed, timer: timer}
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of one workload
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

func fillKeys(keys []string) {
	for _, k := range keys {
		if err := docStore.Set(k, "test"); err != nil {
			log.Warningf("error setting key %s: %v", k, err)
		}
	}
}

func cleanupKeys(test string, keys []string) {
	for _, k := range keys {
		if _, err := docStore.Delete(k); err != nil {
			log.Warningf("(%s) - error deleting key: %v", test, err)
		}
	}
	docStore.Wait()
}

// opsPerSec derives the throughput of a workload from its wall clock time
func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-12sskipped\n", r.test)
		return
	}

	fmt.Printf("%-12smean %-12s p50 %-12s p99 %-12s max %-12s %.0f ops/sec\n",
		r.test,
		time.Duration(r.timer.Mean()),
		time.Duration(r.timer.Percentile(0.5)),
		time.Duration(r.timer.Percentile(0.99)),
		time.Duration(r.timer.Max()),
		r.opsPerSec(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Ops", "MeanNs", "P50Ns", "P99Ns", "MaxNs", "OpsPerSec", "Skipped",
		"Codec", "AsyncWrite", "SyncOnWrite", "AtomicWrite", "Indent",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	conf := docStore.Config()

	// Write test results
	for _, r := range results {
		row := []string{
			r.test,
			strconv.FormatInt(r.timer.Count(), 10),
			fmt.Sprintf("%.0f", r.timer.Mean()),
			fmt.Sprintf("%.0f", r.timer.Percentile(0.5)),
			fmt.Sprintf("%.0f", r.timer.Percentile(0.99)),
			strconv.FormatInt(r.timer.Max(), 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			strconv.FormatBool(r.skipped),
			conf.Codec.Name(),
			strconv.FormatBool(conf.AsyncWrite),
			strconv.FormatBool(conf.SyncOnWrite),
			strconv.FormatBool(conf.AtomicWrite),
			strconv.Itoa(conf.IndentSize),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.test, err)
		}
	}

	return nil
}
