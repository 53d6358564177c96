package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	phoneNumber string
	phoneCode   string
)

var phoneCmd = &cobra.Command{
	Use:   "phone",
	Short: "Manage the phone number reminders are sent to",
}

var phoneUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change the phone number",
	Long:  `Changes the phone number. A verification code is sent to the new number.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		api, _ := getAlarmClient(ctx)

		msg, err := api.UpdatePhoneNumber(ctx, phoneNumber)
		if err != nil {
			fail("updating phone number", err)
		}
		fmt.Println(orDefault(msg, "Verification code sent."))
	},
}

var phoneVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the phone number with the received code",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		api, _ := getAlarmClient(ctx)

		msg, err := api.VerifyPhoneNumber(ctx, phoneCode)
		if err != nil {
			fail("verifying phone number", err)
		}
		fmt.Println(orDefault(msg, "Phone number verified."))
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	rootCmd.AddCommand(phoneCmd)
	phoneCmd.AddCommand(phoneUpdateCmd)
	phoneCmd.AddCommand(phoneVerifyCmd)

	phoneUpdateCmd.Flags().StringVar(&phoneNumber, "number", "", "New phone number in E.164 format")
	_ = phoneUpdateCmd.MarkFlagRequired("number")

	phoneVerifyCmd.Flags().StringVar(&phoneCode, "code", "", "Verification code")
	_ = phoneVerifyCmd.MarkFlagRequired("code")
}
