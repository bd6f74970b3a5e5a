package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patric-chuzhbe/partyplanner/internal/planner"
	"github.com/patric-chuzhbe/partyplanner/internal/view"
)

func newSignupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signup USERNAME PASSWORD",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(ctx context.Context, s *session, args []string) error {
			result, err := s.api.Signup(ctx, args[0], args[1])
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(s.out, "Signed up as %s\n", result.User.Username)
			return nil
		}),
	}
}

func newLoginCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME PASSWORD",
		Short: "Log in and remember the token",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(ctx context.Context, s *session, args []string) error {
			result, err := s.api.Login(ctx, args[0], args[1])
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(s.out, "Logged in as %s\n", result.User.Username)
			return nil
		}),
	}
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and the view state",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, s *session, args []string) error {
			if err := s.store.Logout(); err != nil {
				return err
			}

			fmt.Fprintln(s.out, "Logged out")
			return nil
		}),
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server and its database",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, s *session, args []string) error {
			health, err := s.api.Health(ctx)
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(s.out, "status: %s\ndatabase connected: %t\n", health.Status, health.DBConnected)
			return nil
		}),
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your parties, newest first",
		Args:  cobra.NoArgs,
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			return renderCards(s.out, view.Cards(s.store.Parties()), s.store.View().CurrentPartyID)
		}),
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	draft := planner.Draft{}
	open := false

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a party",
		Example: `  partyctl create --name "Team lunch" --start 2024-01-01 --end 2024-01-05 \
    --item Pizza --item Salad,Soup`,
		Args: cobra.NoArgs,
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			created, err := s.store.CreateParty(ctx, draft)
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(s.out, "Party created successfully! ID: %s\n", created.ID)
			if open {
				return s.store.OpenParty(created.ID)
			}
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&draft.Name, "name", "", "party name")
	flags.StringVar(&draft.StartDate, "start", "", "first day, YYYY-MM-DD")
	flags.StringVar(&draft.EndDate, "end", "", "last day, YYYY-MM-DD")
	flags.StringSliceVar(&draft.MenuItems, "item", nil, "menu item, repeat or separate with commas")
	flags.BoolVar(&open, "open", false, "open the party after creating it")

	return cmd
}

func newOpenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "open PARTY_ID",
		Short: "Open a party on its first day",
		Args:  cobra.ExactArgs(1),
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			if err := s.store.OpenParty(args[0]); err != nil {
				return err
			}

			return printDay(s)
		}),
	}
}

func newDateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "date YYYY-MM-DD",
		Short: "Select a day of the open party",
		Args:  cobra.ExactArgs(1),
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			if err := s.store.SelectDate(args[0]); err != nil {
				return err
			}

			return printDay(s)
		}),
	}
}

func newNameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "name YOUR_NAME",
		Short: "Set the name your claims are made under",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, s *session, args []string) error {
			if err := s.store.SetCurrentUser(args[0]); err != nil {
				return err
			}

			fmt.Fprintf(s.out, "Claiming as %s\n", s.store.View().CurrentUser)
			return nil
		}),
	}
}

func newDayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "day",
		Short: "Show the menu of the selected day",
		Args:  cobra.NoArgs,
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			return printDay(s)
		}),
	}
}

func printDay(s *session) error {
	menu, err := s.store.DayMenu()
	if err != nil {
		return err
	}
	current, err := s.store.CurrentParty()
	if err != nil {
		return err
	}

	return renderDayMenu(s.out, current.Name, s.store.View().SelectedDate, menu)
}

func newClaimCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "claim ITEM",
		Short: "Claim a menu item on the selected day",
		Args:  cobra.ExactArgs(1),
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			if _, err := s.store.ClaimItem(ctx, args[0]); err != nil {
				return describe(err)
			}

			v := s.store.View()
			fmt.Fprintf(s.out, "%s claimed %s on %s\n", v.CurrentUser, args[0], view.LongDate(v.SelectedDate))
			return printDay(s)
		}),
	}
}

var errNotConfirmed = errors.New("add --yes to confirm, this cannot be undone")

func newResetCmd(opts *options) *cobra.Command {
	confirmed := false

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset all selections of the open party",
		Args:  cobra.NoArgs,
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			if !confirmed {
				return errNotConfirmed
			}
			if _, err := s.store.ResetSelections(ctx); err != nil {
				return describe(err)
			}

			fmt.Fprintln(s.out, "Party selections have been reset!")
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "confirm the reset")

	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	confirmed := false

	cmd := &cobra.Command{
		Use:   "delete PARTY_ID",
		Short: "Delete a party",
		Args:  cobra.ExactArgs(1),
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			if !confirmed {
				return errNotConfirmed
			}
			if err := s.store.DeleteParty(ctx, args[0]); err != nil {
				return describe(err)
			}

			fmt.Fprintf(s.out, "Deleted %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "confirm the deletion")

	return cmd
}

func newCalendarCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Show every day of the open party with its selections",
		Args:  cobra.NoArgs,
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			current, err := s.store.CurrentParty()
			if err != nil {
				return err
			}

			return renderCalendar(s.out, view.Calendar(current, s.store.View().SelectedDate))
		}),
	}
}

func newSummaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the summary report of the open party",
		Args:  cobra.NoArgs,
		RunE: loaded(opts, func(ctx context.Context, s *session, args []string) error {
			current, err := s.store.CurrentParty()
			if err != nil {
				return err
			}

			return renderSummary(s.out, current.Name, view.Summarize(current))
		}),
	}
}

func newExportCmd(opts *options) *cobra.Command {
	output := ""

	cmd := &cobra.Command{
		Use:   "export [PARTY_ID]",
		Short: "Download the selections as CSV",
		Long:  "Download the selections of the party (the open one by default) as CSV. Use --output - to print them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(opts, func(ctx context.Context, s *session, args []string) error {
			partyID := s.store.View().CurrentPartyID
			if len(args) == 1 {
				partyID = args[0]
			}
			if partyID == "" {
				return planner.ErrNoPartyOpen
			}

			data, fileName, err := s.api.Export(ctx, partyID)
			if err != nil {
				return describe(err)
			}

			if output == "-" {
				_, err := s.out.Write(data)
				return err
			}
			if output == "" {
				output = fileName
			}
			if output == "" {
				output = "selections.csv"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(s.out, "Saved %s\n", output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write, - for stdout (default: the name suggested by the server)")

	return cmd
}
