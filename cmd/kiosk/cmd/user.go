package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"libkiosk/internal/domain/user"
)

var (
	userName  string
	userEmail string
	userRole  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage library members",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a member in the local ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		u, err := app.Users().Create(cmd.Context(), user.CreateRequest{
			FullName: userName,
			Email:    userEmail,
			Role:     user.Role(userRole),
		})
		if err != nil {
			return err
		}
		return printResult(fmt.Sprintf("user %d created: %s <%s>", u.ID, u.FullName, u.Email), u)
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List members and their sync state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		users, err := app.Users().List(cmd.Context())
		if err != nil {
			return err
		}

		text := fmt.Sprintf("%d users", len(users))
		for _, u := range users {
			state := "pending"
			if u.Synced {
				state = "synced"
			}
			text += fmt.Sprintf("\n%4d  %-30s %-30s %-6s %s", u.ID, u.FullName, u.Email, u.Role, state)
		}
		return printResult(text, users)
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "full name")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	userAddCmd.Flags().StringVar(&userRole, "role", string(user.RoleMember), "admin or member")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userAddCmd, userListCmd)
}
