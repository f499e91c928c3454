package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-billing/internal/client"
	"github.com/noah-isme/toko-billing/internal/config"
	"github.com/noah-isme/toko-billing/internal/obs"
)

// cli holds state shared by every subcommand.
type cli struct {
	out    io.Writer
	errOut io.Writer

	apiURL   string
	token    string
	timeout  time.Duration
	logLevel string

	api    *client.Client
	logger zerolog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "pos",
		Short:         "Hardware shop billing terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api-url", "", "billing API base URL (default $POS_API_URL)")
	flags.StringVar(&c.token, "token", "", "bearer token (default $POS_TOKEN)")
	flags.DurationVar(&c.timeout, "timeout", 0, "request timeout (default $POS_TIMEOUT)")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		c.loginCmd(),
		c.itemsCmd(),
		c.customersCmd(),
		c.billCmd(),
		c.billsCmd(),
		c.payCmd(),
		c.transactionsCmd(),
		c.reportCmd(),
		c.exportCmd(),
	)

	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.APIURL = strings.TrimRight(c.apiURL, "/")
	}
	if c.token != "" {
		cfg.Token = c.token
	}
	if c.timeout > 0 {
		cfg.Timeout = c.timeout
	}

	c.logger = obs.NewLoggerTo(c.errOut, "console", c.logLevel).With().Str("component", "pos").Logger()
	cmd.SetContext(c.logger.WithContext(cmd.Context()))

	api, err := client.New(client.Config{BaseURL: cfg.APIURL, Token: cfg.Token, Timeout: cfg.Timeout})
	if err != nil {
		return err
	}
	c.api = api
	return nil
}

func (c *cli) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func (c *cli) create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{c.out}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// describe prefers the server's error code and message over transport noise.
func describe(err error) string {
	if code := client.Code(err); code != "" {
		return fmt.Sprintf("%s (%s)", err.Error(), code)
	}
	return err.Error()
}
