package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"croon/pkg/account"
)

// newAccountsCmd creates the "croon accounts" subcommand tree.
func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage platform accounts and their browser profiles",
	}
	cmd.AddCommand(
		newAccountsAddCmd(),
		newAccountsListCmd(),
		newAccountsDisableCmd(),
		newAccountsEnableCmd(),
		newAccountsRenameCmd(),
		newAccountsRemoveCmd(),
	)
	return cmd
}

// openRegistry resolves paths and opens the account registry.
func openRegistry() (*account.Registry, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureHome(); err != nil {
		return nil, err
	}
	return account.Open(paths.AccountsPath, paths.ProfilesDir)
}

func newAccountsAddCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new account with a dedicated browser profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			acct, err := reg.Add(args[0], email)
			if err != nil {
				return err
			}
			dir, err := reg.ProfileDir(acct.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (profile: %s)\n", acct.Name, dir)
			fmt.Fprintln(cmd.OutOrStdout(), "log in once with: croon run after enqueueing, or open the profile manually")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email, informational only")
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			accounts := reg.List()
			if len(accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no accounts registered")
				return nil
			}
			for _, a := range accounts {
				last := "never"
				if a.LastUsed != nil {
					last = a.LastUsed.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s last used: %s\n", a.Name, a.Status, last)
			}
			return nil
		},
	}
}

func newAccountsDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable an account so new queues cannot use it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			if err := reg.SetStatus(args[0], account.StatusDisabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disabled %s\n", args[0])
			return nil
		},
	}
}

func newAccountsEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <name>",
		Short: "Re-enable a disabled account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			if err := reg.SetStatus(args[0], account.StatusActive); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enabled %s\n", args[0])
			return nil
		},
	}
}

func newAccountsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an account and move its browser profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			if err := reg.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newAccountsRemoveCmd() *cobra.Command {
	var deleteProfile bool

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an account from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry()
			if err != nil {
				return err
			}
			if err := reg.Remove(args[0], deleteProfile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteProfile, "delete-profile", false, "also delete the browser profile directory (logs the account out)")
	return cmd
}
