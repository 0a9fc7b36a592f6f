// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antimetal/containers/internal/workload"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML workload file (defaults to the built-in scenarios)")
	verbose     = flag.Bool("verbose", false, "Enable verbose output, including ring buffer eviction logs")
	timeout     = flag.Duration("timeout", 2*time.Minute, "Timeout for the whole run")
	showMetrics = flag.Bool("show-metrics", false, "Print the collected Prometheus metrics")
)

func main() {
	flag.Parse()

	logger, sync, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	fmt.Printf("🔧 Container Benchmark Tool\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("Go version: %s\n\n", runtime.Version())

	cfg := workload.DefaultConfig()
	if *configPath != "" {
		cfg, err = workload.LoadConfig(*configPath)
		if err != nil {
			logger.Error(err, "unable to load workload config", "path", *configPath)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	runner, err := workload.NewRunner(workload.RunnerOptions{
		Logger:   logger,
		Registry: reg,
	})
	if err != nil {
		logger.Error(err, "unable to create workload runner")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	results, err := runner.Run(ctx, cfg)
	if err != nil {
		logger.Error(err, "workload failed")
		os.Exit(1)
	}

	printResults(results)
	if *showMetrics {
		if err := printMetrics(reg); err != nil {
			logger.Error(err, "unable to gather metrics")
			os.Exit(1)
		}
	}
	printSummary(results, time.Since(start))
}

func newLogger(verbose bool) (logr.Logger, func(), error) {
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		// zapr maps logr V(n) to zap level -n
		zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-2))
	}
	zl, err := zc.Build()
	if err != nil {
		return logr.Logger{}, nil, err
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

func printResults(results []workload.Result) {
	fmt.Printf("📊 Scenario Results\n")
	fmt.Printf("===================\n")

	for _, res := range results {
		fmt.Printf("✅ %s (%s)\n", res.Name, res.Kind)
		fmt.Printf("   Operations: %s in %v\n", humanize.Comma(int64(res.Operations)), res.Duration)
		if res.Duration > 0 {
			rate := float64(res.Operations) / res.Duration.Seconds()
			fmt.Printf("   Throughput: %s\n", humanize.SIWithDigits(rate, 2, "ops/s"))
		}
		fmt.Printf("   Storage:    %s\n", humanize.IBytes(res.Bytes))
		fmt.Printf("   Destructed: %s\n", humanize.Comma(int64(res.Destructed)))
		if res.Kind == workload.KindRing {
			fmt.Printf("   Drained:    %s\n", humanize.Comma(int64(res.Drained)))
			fmt.Printf("   Evicted:    %s\n", humanize.Comma(int64(res.Evicted)))
		}
		fmt.Println()
	}
}

func printMetrics(reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	fmt.Printf("📈 Metrics\n")
	fmt.Printf("==========\n")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Printf("%s%s %g\n", mf.GetName(), formatLabels(m.GetLabel()), metricValue(mf.GetType(), m))
		}
	}
	fmt.Println()
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	s := "{"
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return s + "}"
}

func metricValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return 0
	}
}

func printSummary(results []workload.Result, elapsed time.Duration) {
	fmt.Printf("📋 Summary\n")
	fmt.Printf("==========\n")

	var ops, evicted int
	for _, res := range results {
		ops += res.Operations
		evicted += res.Evicted
	}

	fmt.Printf("Scenarios run: %d\n", len(results))
	fmt.Printf("Total operations: %s\n", humanize.Comma(int64(ops)))
	fmt.Printf("Total evictions: %s\n", humanize.Comma(int64(evicted)))
	fmt.Printf("Total execution time: %v\n", elapsed)
}
