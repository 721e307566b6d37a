package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	monitor "github.com/openrig/trialctl/internal/adapters/http"
	"github.com/openrig/trialctl/internal/metrics"
	"github.com/openrig/trialctl/pkg/dispatcher"
	"github.com/openrig/trialctl/pkg/emulator"
	"github.com/openrig/trialctl/pkg/machine"
	"github.com/openrig/trialctl/pkg/triallog"
	redislog "github.com/openrig/trialctl/pkg/triallog/redis"

	"github.com/openrig/trialctl/pkg/template"
)

var runCmd = &cobra.Command{
	Use:   "run <template.yaml>",
	Short: "Run an emulated session from a template",
	Long: `Run loads a session template, drives it with emulated pokes and logs
every processed event. Without hardware this is a dry run of the trial
structure: timers, transitions and outputs behave exactly as they would
on the rig.`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

func init() {
	runCmd.Flags().String("session", "session", "Session name used for the trial log")
	runCmd.Flags().Duration("for", 30*time.Second, "How long to run the session")
	runCmd.Flags().Duration("poke-interval", 2*time.Second, "Interval between emulated pokes (0 disables)")
	runCmd.Flags().String("monitor", "", "Address for the status/metrics endpoint (e.g. :9130)")
	runCmd.Flags().String("redis", "", "Redis address for the trial log (defaults to in-memory)")
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	session, _ := cmd.Flags().GetString("session")
	runFor, _ := cmd.Flags().GetDuration("for")
	pokeEvery, _ := cmd.Flags().GetDuration("poke-interval")
	monitorAddr, _ := cmd.Flags().GetString("monitor")
	redisAddr, _ := cmd.Flags().GetString("redis")

	cfg, err := template.Load(args[0])
	if err != nil {
		return err
	}

	var store triallog.Store = triallog.NewMemoryStore()
	if redisAddr != "" {
		rs := redislog.New(redisAddr, "", 0)
		defer rs.Close()
		store = rs
	}

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	m := machine.New(machine.WithLogger(logger))
	recorder := triallog.NewRecorder(store, session, triallog.WithLogger(logger))
	recorder.Bind(m)

	// The same template is rebuilt for every trial; a real paradigm would
	// vary transitions or timer durations per trial here.
	prepare := func(trial int) (machine.Config, error) {
		return cfg.Build()
	}
	disp := dispatcher.New(m, prepare,
		dispatcher.WithLogger(logger),
		dispatcher.WithMetrics(met),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if monitorAddr != "" {
		srv := &http.Server{Addr: monitorAddr, Handler: monitor.NewHandler(disp, reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitor server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("monitor listening", "addr", monitorAddr)
	}

	if err := disp.Start(); err != nil {
		return err
	}
	defer disp.Stop()

	if pokeEvery > 0 {
		go emulatePokes(ctx, m, cfg.Inputs, pokeEvery)
	}

	select {
	case <-ctx.Done():
		logger.Info("interrupted")
	case <-time.After(runFor):
	}
	disp.Stop()

	rows, err := store.Rows(context.Background(), session)
	if err != nil {
		return fmt.Errorf("failed to read trial log: %w", err)
	}
	status := disp.Status()
	fmt.Printf("session %q: %d trials, %d events, %d log rows\n",
		session, status.Trial+1, status.EventCount, len(rows))
	return nil
}

// emulatePokes presses and releases a random input at a fixed interval,
// standing in for an animal at the ports.
func emulatePokes(ctx context.Context, m *machine.Machine, inputs map[string]int, every time.Duration) {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	emu := emulator.New(m, inputs)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			name := names[rand.Intn(len(names))]
			if err := emu.Press(name); err != nil {
				return
			}
			time.Sleep(50 * time.Millisecond)
			if err := emu.Release(name); err != nil {
				return
			}
		}
	}
}
