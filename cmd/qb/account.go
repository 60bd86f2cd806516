package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login [userID]",
	Short: "Sign in as a user",
	Long: `Sign in as a user. The id is remembered in the local database and
used as the owner of saved questionnaires. Without an argument qb asks
for it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := openStore()
		defer store.Close()
		store.ClearCurrentUser()
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), user)
		return nil
	},
}

func runLogin(cmd *cobra.Command, args []string) error {
	var userID string
	if len(args) == 1 {
		userID = args[0]
	} else {
		if !stdinIsTerminal() {
			return errors.New("user id required")
		}
		if err := promptUserID(&userID); err != nil {
			return err
		}
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id required")
	}

	store := openStore()
	defer store.Close()
	if !store.Available() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: local storage is unavailable; the sign-in will not be remembered")
	}
	store.SetCurrentUser(userID)
	logger.Info("signed in", zap.String("user", userID))
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", userID)
	return nil
}

func promptUserID(dst *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("User ID").
				Description("The account that will own saved questionnaires").
				Value(dst).
				Validate(requireValue("user id")),
		),
	).WithTheme(huh.ThemeDracula())
	return form.Run()
}

func requireValue(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}
