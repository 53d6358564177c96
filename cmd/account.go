package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reminder-cli/internal/auth"
	"reminder-cli/pkg/models"
)

var (
	regUser    string
	regPhone   string
	regPass    string
	regRepeat  string
	verifyCode string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	Long: `Registers a new user. A confirmation code is sent to the phone number;
finish with 'reminder-cli confirm'.`,
	Example: `  reminder-cli register -u me@example.com --phone +48123456789 -p secret --repeat-password secret`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := auth.ValidateRegistration(regUser, regPhone, regPass, regRepeat); err != nil {
			fail("registering", err)
		}

		ctx := context.Background()
		gw := getGateway(ctx)
		if err := gw.SignUp(ctx, regUser, regPhone, regPass); err != nil {
			fail("registering", err)
		}
		fmt.Println("Account created. Check your phone for the confirmation code.")
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm a new account with the received code",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		gw := getGateway(ctx)
		if err := gw.ConfirmSignUp(ctx, regUser, verifyCode); err != nil {
			fail("confirming account", err)
		}
		fmt.Println("Account confirmed. You can now log in.")
	},
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset code",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		gw := getGateway(ctx)
		if err := gw.ForgotPassword(ctx, regUser); err != nil {
			fail("requesting password reset", err)
		}
		fmt.Println("Reset code sent. Run 'reminder-cli reset-password' to set a new password.")
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password using a reset code",
	Run: func(cmd *cobra.Command, args []string) {
		if err := auth.ValidatePasswordReset(verifyCode, regPass, regRepeat); err != nil {
			fail("resetting password", err)
		}

		ctx := context.Background()
		gw := getGateway(ctx)
		if err := gw.ResetPassword(ctx, regUser, verifyCode, regPass); err != nil {
			fail("resetting password", err)
		}
		fmt.Println("Password changed. You can now log in.")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		gw := getGateway(ctx)
		if !gw.LoggedIn() {
			fmt.Println("Error: Not logged in. Please run 'reminder-cli login' first.")
			os.Exit(1)
		}

		attrs, err := gw.CurrentUser(ctx)
		if err != nil {
			fail("fetching user", err)
		}

		if jsonOutput {
			printJSON(attrs)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Username:\t%s\n", gw.Username())
		fmt.Fprintf(w, "Phone:\t%s\n", orDash(models.Attribute(attrs, "phone_number")))
		fmt.Fprintf(w, "Phone verified:\t%s\n", orDash(models.Attribute(attrs, "phone_number_verified")))
		w.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(whoamiCmd)

	registerCmd.Flags().StringVarP(&regUser, "username", "u", "", "Username (email)")
	registerCmd.Flags().StringVar(&regPhone, "phone", "", "Phone number in E.164 format, e.g. +48123456789")
	registerCmd.Flags().StringVarP(&regPass, "password", "p", "", "Password")
	registerCmd.Flags().StringVar(&regRepeat, "repeat-password", "", "Password again")

	confirmCmd.Flags().StringVarP(&regUser, "username", "u", "", "Username (email)")
	confirmCmd.Flags().StringVar(&verifyCode, "code", "", "Confirmation code")
	_ = confirmCmd.MarkFlagRequired("username")
	_ = confirmCmd.MarkFlagRequired("code")

	forgotPasswordCmd.Flags().StringVarP(&regUser, "username", "u", "", "Username (email)")
	_ = forgotPasswordCmd.MarkFlagRequired("username")

	resetPasswordCmd.Flags().StringVarP(&regUser, "username", "u", "", "Username (email)")
	resetPasswordCmd.Flags().StringVar(&verifyCode, "code", "", "Reset code")
	resetPasswordCmd.Flags().StringVarP(&regPass, "password", "p", "", "New password")
	resetPasswordCmd.Flags().StringVar(&regRepeat, "repeat-password", "", "New password again")
	_ = resetPasswordCmd.MarkFlagRequired("username")
}
