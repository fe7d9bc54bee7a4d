package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-notebook/pkg/apperrors"
)

type accountFlags struct {
	email    string
	password string
	name     string
}

func (f *accountFlags) bind(cmd *cobra.Command, withName bool) {
	cmd.Flags().StringVar(&f.email, "email", "", "Account email")
	cmd.Flags().StringVar(&f.password, "password", "", "Account password (default: NOTEBOOK_PASSWORD or prompt)")
	if withName {
		cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	}
	_ = cmd.MarkFlagRequired("email")
}

// resolvePassword falls back to NOTEBOOK_PASSWORD, then one line of stdin.
func (f *accountFlags) resolvePassword(cmd *cobra.Command) error {
	if f.password != "" {
		return nil
	}
	if f.password = os.Getenv("NOTEBOOK_PASSWORD"); f.password != "" {
		return nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return errors.New("password is required")
	}
	f.password = strings.TrimRight(line, "\r\n")
	return nil
}

func newLoginCmd(a *app) *cobra.Command {
	var f accountFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.resolvePassword(cmd); err != nil {
				return err
			}
			session, err := a.client().Login(cmd.Context(), f.email, f.password)
			if err != nil {
				if errors.Is(err, apperrors.ErrUnauthorized) {
					return errors.New("invalid email or password")
				}
				return err
			}

			a.creds = &credentials{
				Server:       a.server,
				Email:        session.User.Email,
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				ExpiresAt:    session.ExpiresAt,
			}
			if err := a.creds.save(a.credentialsPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s\n", session.User.Email)
			return nil
		},
	}
	f.bind(cmd, false)
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var f accountFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.resolvePassword(cmd); err != nil {
				return err
			}
			account, err := a.client().Signup(cmd.Context(), f.email, f.password, f.name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created account %s. Sign in with 'notebookctl login --email %s'.\n", account.ID, account.Email)
			return nil
		},
	}
	f.bind(cmd, true)
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.creds.AccessToken != "" {
				err := a.client().Logout(cmd.Context(), a.creds.RefreshToken)
				if err != nil && !errors.Is(err, apperrors.ErrUnauthorized) {
					return err
				}
			}
			if err := os.Remove(a.credentialsPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove session: %w", err)
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}
