package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/selectctx/pkg/devtools"
	"github.com/vango-dev/selectctx/pkg/metrics"
	"github.com/vango-dev/selectctx/pkg/selectctx"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
		shards   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a continuous workload with the inspector attached",
		Long: `Serve keeps a small consumer tree alive under a steady update
stream and exposes the devtools inspector:

  GET /cells    registered cells
  GET /events   live protocol event stream (WebSocket)
  GET /metrics  Prometheus metrics

Examples:
  selectctx-bench serve
  selectctx-bench serve --addr :7070 --interval 100ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, interval, shards)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":6061", "Address to listen on")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 250*time.Millisecond, "Delay between updates")
	cmd.Flags().IntVarP(&shards, "shards", "s", 8, "Shard count")

	return cmd
}

func runServe(addr string, interval time.Duration, shards int) error {
	logger := slog.Default().With("component", "bench")

	recorder := metrics.NewRecorder()
	insp := devtools.NewInspector(devtools.WithLogger(logger))
	defer insp.Close()

	state := make([]*int, shards)
	for i := range state {
		v := 0
		state[i] = &v
	}

	loop := selectctx.NewLoop()
	ctx := selectctx.CreateContext(state,
		selectctx.WithName("bench"),
		selectctx.WithScheduler(loop),
		selectctx.WithObserver(selectctx.MultiObserver(recorder, insp.Observer())),
	)
	defer loop.Dispose()
	insp.Register(ctx.Cell())

	for i := 0; i < shards; i++ {
		shard := i
		loop.Mount("consumer", func() {
			selectctx.UseSelector(ctx, func(s []*int) *int { return s[shard] })
		})
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	go func() {
		tick := 0
		for range ticker.C {
			tick++
			shard := rand.Intn(shards)
			next := tick
			ctx.Cell().Update(func() {
				prev := ctx.Cell().Peek()
				replaced := make([]*int, len(prev))
				copy(replaced, prev)
				replaced[shard] = &next
				ctx.Cell().Set(replaced)
			})
		}
	}()

	srv := &http.Server{Addr: addr, Handler: insp.Handler()}
	go func() {
		logger.Info("inspector listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("serve error", "error", err)
		}
	}()

	<-stop
	logger.Info("shutting down")
	return srv.Close()
}
