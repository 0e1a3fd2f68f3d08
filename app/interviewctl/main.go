package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yoockh/yoointerview/config"
	"github.com/yoockh/yoointerview/internal/bootstrap"
	"github.com/yoockh/yoointerview/internal/logger"
)

const app = "interviewctl"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "interviewctl issues invitations and rehearses interviews from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview.yaml in . or ./config)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")

	rootCmd.AddCommand(inviteCmd, sessionCmd, rehearseCmd, hashPasswordCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// loadApp builds the same container the server uses. Logs go to stderr so
// command output stays clean.
func loadApp(ctx context.Context) (*bootstrap.Container, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if debug {
		level = "debug"
	}
	log := logger.New(level, cfg.LogFile)
	if cfg.LogFile == "" {
		log.SetOutput(os.Stderr)
	}
	if cfg.SessionStore == "memory" {
		log.WithField("session_store", cfg.SessionStore).Warn("sessions created here are not visible to the server")
	}
	return bootstrap.Build(ctx, cfg, log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
