package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/alovak/fidelis-loyalty/fidelis"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

const defaultEnvFile = ".env"

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	envFile    string
	debug      bool

	out    io.Writer
	logger *slog.Logger
	config *fidelis.Config
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "fidelis",
		Short: "Talk to the Fidelis loyalty service",
		Long: `Queries and updates cardholders, balances and transactions of a
Fidelis loyalty programme.

Credentials come from the config file, the environment (FIDELIS_WCF,
FIDELIS_VIRTUAL_TERMINAL_ID, ...) or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd, errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the environment is read")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "log every Fidelis call")

	root.AddCommand(
		c.balanceCmd(),
		c.balancesCmd(),
		c.cardholderCmd(),
		c.vipCmd(),
		c.purchaseCmd(),
		c.redeemCmd(),
		c.transactionsCmd(),
		c.expiringCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, errOut io.Writer) error {
	if err := godotenv.Load(c.envFile); err != nil {
		// the default file is optional, an explicit one is not
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("loading %s: %w", c.envFile, err)
		}
	}

	cfg, err := fidelis.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg

	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	return nil
}

func (c *cli) client() (*fidelis.Client, error) {
	return fidelis.NewFromConfig(c.config, c.logger)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Fidelis HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.config.HTTPAddr = addr
			}

			app := fidelis.NewApp(c.logger, c.config)
			if err := app.Start(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "listening on %s\n", app.Addr)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			app.Shutdown()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
