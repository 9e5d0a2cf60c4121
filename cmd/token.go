package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/locus-sync/internal/adapters/auth"
	"github.com/bnema/locus-sync/internal/adapters/locus"
	"github.com/bnema/locus-sync/internal/domain"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the bearer token used for the locus and event services",
	}

	cmd.AddCommand(newTokenLoginCmd(app), newTokenSetCmd(app), newTokenClearCmd(app), newTokenStatusCmd(app))

	return cmd
}

func newTokenLoginCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Obtain a bearer token through the OAuth device authorization grant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			authz, err := app.login.Start(ctx)
			if err != nil {
				return fmt.Errorf("start device login: %w", err)
			}
			if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "Open %s and enter code %s\n", authz.VerificationURL, authz.UserCode); err != nil {
				return err
			}

			token, err := app.login.Wait(ctx, authz)
			if err != nil {
				return fmt.Errorf("wait for device login: %w", err)
			}
			if err := app.tokens.Put(ctx, locus.TokenKey, token.AccessToken); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			if token.RefreshToken != "" {
				if err := app.tokens.Put(ctx, auth.RefreshTokenKey, token.RefreshToken); err != nil {
					return fmt.Errorf("store refresh token: %w", err)
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return err
		},
	}
}

func newTokenSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the bearer token (reads stdin when --value is omitted)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if value == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("read token from stdin: no input")
				}
				value = line
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("token is empty")
			}

			if err := app.tokens.Put(cmd.Context(), locus.TokenKey, value); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Token value")

	return cmd
}

func newTokenClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored bearer and refresh tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, key := range []string{locus.TokenKey, auth.RefreshTokenKey} {
				if err := app.tokens.Delete(cmd.Context(), key); err != nil {
					return fmt.Errorf("clear token: %w", err)
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
			return err
		},
	}
}

func newTokenStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a bearer token is stored",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := app.tokens.Get(cmd.Context(), locus.TokenKey)
			switch {
			case errors.Is(err, domain.ErrSecretNotFound):
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "token: not set")
				return err
			case err != nil:
				return fmt.Errorf("read token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "token: set")
			return err
		},
	}
}
