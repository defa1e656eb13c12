// Command barqadl answers legal queries and inspects learning state from the terminal.
// It runs the pipeline in-process against the configured store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/Reflex-Gravity/BarqAdl/internal/api"
	"github.com/Reflex-Gravity/BarqAdl/internal/config"
	"github.com/Reflex-Gravity/BarqAdl/internal/infrastructure"
)

var (
	timeout  time.Duration
	logLevel string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:           "barqadl",
	Short:         "UAE legal assistant with self-improving domain agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(strategiesCmd)
	rootCmd.AddCommand(metricsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// session is a started infrastructure with restored domain state.
type session struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	domain *api.Domain
}

func open(ctx context.Context) (*session, error) {
	if logLevel != "" {
		os.Setenv(config.EnvBarqAdlLogLevel, logLevel)
	} else if os.Getenv(config.EnvBarqAdlLogLevel) == "" {
		os.Setenv(config.EnvBarqAdlLogLevel, "warn")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := infra.Start(); err != nil {
		return nil, err
	}
	if err := infra.Lifecycle.WaitForStartup(); err != nil {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, fmt.Errorf("startup: %w", err)
	}

	domain := api.NewDomain(api.NewRuntime(cfg, infra))
	if err := domain.Load(ctx); err != nil {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, fmt.Errorf("restore state: %w", err)
	}

	return &session{cfg: cfg, infra: infra, domain: domain}, nil
}

func (s *session) Close() {
	s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration())
}

// withSession runs fn against an open session bounded by --timeout.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}
