package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"reminder-cli/internal/auth"
)

// Variables to hold flag values
var (
	user string
	pass string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the reminder service",
	Long: `Authenticates against the user pool and saves the session tokens
locally for future commands. Expired tokens are refreshed automatically.

Example:
  reminder-cli login --username me@example.com --password secret`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := auth.ValidateCredentials(user, pass); err != nil {
			fail("logging in", err)
		}

		ctx := context.Background()
		gw := getGateway(ctx)

		fmt.Printf("Signing in as '%s'...\n", user)

		session, err := gw.Authenticate(ctx, user, pass)
		if err != nil {
			fail("logging in", err)
		}

		if jsonOutput {
			printJSON(map[string]any{"username": session.Username, "expires_at": session.ExpiresAt})
			return
		}
		fmt.Println("Login successful. Session saved.")
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		gw := getGateway(ctx)

		if !gw.LoggedIn() {
			fmt.Println("Not logged in.")
			return
		}
		if err := gw.SignOut(ctx); err != nil {
			fail("logging out", err)
		}
		fmt.Println("Logged out.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)

	loginCmd.Flags().StringVarP(&user, "username", "u", "", "Username (email)")
	loginCmd.Flags().StringVarP(&pass, "password", "p", "", "Password")

	_ = loginCmd.MarkFlagRequired("username")
	_ = loginCmd.MarkFlagRequired("password")
}
