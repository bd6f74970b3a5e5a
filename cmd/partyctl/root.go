package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/partyplanner/internal/client"
	"github.com/patric-chuzhbe/partyplanner/internal/keystore"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/planner"
)

const defaultAPIURL = "http://localhost:3001/api"

type options struct {
	apiURL    string
	stateFile string
	timeout   time.Duration
	verbose   bool
}

// session is what every command works with, built once the flags are parsed.
type session struct {
	api   *client.Client
	store *planner.Store
	out   io.Writer
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}

func (o *options) open(out io.Writer) (*session, error) {
	level := "error"
	if o.verbose {
		level = "debug"
	}
	if err := logger.Init(level); err != nil {
		return nil, err
	}

	statePath := o.stateFile
	if statePath == "" {
		defaultPath, err := keystore.DefaultPath()
		if err != nil {
			return nil, err
		}
		statePath = defaultPath
	}

	kv, err := keystore.NewFileStore(statePath)
	if err != nil {
		return nil, err
	}

	api := client.New(o.apiURL, kv, client.WithTimeout(o.timeout))
	store, err := planner.New(api, kv)
	if err != nil {
		return nil, err
	}

	logger.Log.Debugw("session opened", "api", o.apiURL, "state", kv.Path())

	return &session{api: api, store: store, out: out}, nil
}

// run wraps a command body with the session setup.
func run(opts *options, body func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := opts.open(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		err = body(cmd.Context(), s, args)
		if err != nil {
			logger.Log.Debugw("command failed", "command", cmd.Name(), zap.Error(err))
		}

		return err
	}
}

// loaded is run for commands that need the party collection.
func loaded(opts *options, body func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return run(opts, func(ctx context.Context, s *session, args []string) error {
		if err := s.store.Load(ctx); err != nil {
			return describe(err)
		}

		return body(ctx, s, args)
	})
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "partyctl",
		Short:         "Plan party menus: claim one item per day, first come first served",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("PARTYCTL_API_URL", defaultAPIURL), "base URL of the party planner API")
	flags.StringVar(&opts.stateFile, "state-file", envOr("PARTYCTL_STATE_FILE", ""), "file keeping the token and the view state (default ~/.partyctl.json)")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newSignupCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newHealthCmd(opts),
		newListCmd(opts),
		newCreateCmd(opts),
		newOpenCmd(opts),
		newDateCmd(opts),
		newNameCmd(opts),
		newDayCmd(opts),
		newClaimCmd(opts),
		newResetCmd(opts),
		newDeleteCmd(opts),
		newCalendarCmd(opts),
		newSummaryCmd(opts),
		newExportCmd(opts),
	)

	return root
}

// describe turns client errors into the messages shown to the user.
func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%s, please log in again", apiErr.Message)
		}
		return fmt.Errorf("%s", apiErr.Message)
	}

	return err
}
