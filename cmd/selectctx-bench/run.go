package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/selectctx/pkg/metrics"
	"github.com/vango-dev/selectctx/pkg/selectctx"
)

type profile struct {
	Name      string
	Consumers int
	Shards    int
	Updates   int
}

var profiles = map[string]profile{
	"fast": {
		Name:      "fast",
		Consumers: 100,
		Shards:    10,
		Updates:   1_000,
	},
	"standard": {
		Name:      "standard",
		Consumers: 500,
		Shards:    50,
		Updates:   10_000,
	},
	"stress": {
		Name:      "stress",
		Consumers: 2_000,
		Shards:    100,
		Updates:   50_000,
	},
}

type report struct {
	Profile       string        `json:"profile"`
	Consumers     int           `json:"consumers"`
	Shards        int           `json:"shards"`
	Updates       int           `json:"updates"`
	Duration      time.Duration `json:"duration_ns"`
	FinalVersion  int64         `json:"final_version"`
	TotalRenders  int64         `json:"total_renders"`
	Bailouts      float64       `json:"bailouts"`
	RendersPerUpd float64       `json:"renders_per_update"`
	SettleMean    time.Duration `json:"settle_mean_ns"`
}

func runCmd() *cobra.Command {
	var (
		profileName string
		consumers   int
		shards      int
		updates     int
		jsonOut     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a one-shot workload and print a report",
		Long: `Run mounts a tree of consumers with sharded selectors, drives a
stream of single-shard updates through it, and reports how many renders
the updates actually cost.

A perfectly contained run re-renders one consumer per update; everything
else bails out on reference identity.

Examples:
  selectctx-bench run
  selectctx-bench run --profile stress
  selectctx-bench run --consumers 1000 --shards 20 --updates 5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := profiles[profileName]
			if !ok {
				return fmt.Errorf("unknown profile %q (have fast, standard, stress)", profileName)
			}
			if consumers > 0 {
				p.Consumers = consumers
			}
			if shards > 0 {
				p.Shards = shards
			}
			if updates > 0 {
				p.Updates = updates
			}
			return runWorkload(p, jsonOut)
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "P", "fast", "Workload profile (fast, standard, stress)")
	cmd.Flags().IntVarP(&consumers, "consumers", "c", 0, "Override consumer count")
	cmd.Flags().IntVarP(&shards, "shards", "s", 0, "Override shard count")
	cmd.Flags().IntVarP(&updates, "updates", "u", 0, "Override update count")
	cmd.Flags().StringVarP(&jsonOut, "json", "j", "", "Write the report as JSON to this file")

	return cmd
}

func runWorkload(p profile, jsonOut string) error {
	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(metrics.WithRegistry(registry))

	state := make([]*int, p.Shards)
	for i := range state {
		v := 0
		state[i] = &v
	}

	loop := selectctx.NewLoop()
	ctx := selectctx.CreateContext(state,
		selectctx.WithName("bench"),
		selectctx.WithScheduler(loop),
		selectctx.WithObserver(recorder),
	)
	defer loop.Dispose()

	comps := make([]*selectctx.Component, p.Consumers)
	for i := range comps {
		shard := i % p.Shards
		comps[i] = loop.Mount(fmt.Sprintf("consumer-%d", i), func() {
			selectctx.UseSelector(ctx, func(s []*int) *int { return s[shard] })
		})
	}

	start := time.Now()
	for i := 0; i < p.Updates; i++ {
		shard := i % p.Shards
		next := i + 1
		ctx.Cell().Update(func() {
			prev := ctx.Cell().Peek()
			replaced := make([]*int, len(prev))
			copy(replaced, prev)
			replaced[shard] = &next
			ctx.Cell().Set(replaced)
		})
	}
	elapsed := time.Since(start)

	var total int64
	for _, c := range comps {
		total += c.Renders() - 1 // exclude the mount render
	}

	rep := report{
		Profile:       p.Name,
		Consumers:     p.Consumers,
		Shards:        p.Shards,
		Updates:       p.Updates,
		Duration:      elapsed,
		FinalVersion:  int64(ctx.Cell().Version()),
		TotalRenders:  total,
		Bailouts:      counterValue(registry, "selectctx_bailouts_total"),
		RendersPerUpd: float64(total) / float64(p.Updates),
		SettleMean:    histogramMean(registry, "selectctx_update_settle_seconds"),
	}

	fmt.Printf("profile:            %s\n", rep.Profile)
	fmt.Printf("consumers:          %d (%d shards)\n", rep.Consumers, rep.Shards)
	fmt.Printf("updates:            %d in %s\n", rep.Updates, rep.Duration.Round(time.Millisecond))
	fmt.Printf("final version:      %d\n", rep.FinalVersion)
	fmt.Printf("renders:            %d (%.2f per update)\n", rep.TotalRenders, rep.RendersPerUpd)
	fmt.Printf("bail-outs:          %.0f\n", rep.Bailouts)
	fmt.Printf("settle latency:     %s mean\n", rep.SettleMean)

	if jsonOut != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(jsonOut, data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("report written to %s\n", jsonOut)
	}
	return nil
}

// histogramMean returns the mean observation of a histogram family.
func histogramMean(g prometheus.Gatherer, name string) time.Duration {
	families, err := g.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		var count uint64
		for _, m := range mf.GetMetric() {
			h := m.GetHistogram()
			sum += h.GetSampleSum()
			count += h.GetSampleCount()
		}
		if count == 0 {
			return 0
		}
		return time.Duration(sum / float64(count) * float64(time.Second))
	}
	return 0
}

// counterValue sums one metric family across its label sets.
func counterValue(g prometheus.Gatherer, name string) float64 {
	families, err := g.Gather()
	if err != nil {
		return 0
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}
