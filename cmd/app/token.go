package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"swimslot/internal/auth"
	"swimslot/internal/config"
	"swimslot/internal/user"
)

// newTokenCmd mints an access token for an existing profile, mainly for
// local testing against the API.
func newTokenCmd() *cobra.Command {
	var userID, email, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case user.RoleParent, user.RoleInstructor, user.RoleStaff, user.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			token, err := auth.GenerateAccessToken(userID, email, role, cfg.JWTSecret, cfg.TokenExpiry)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "profile id to put in the token")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", user.RoleParent, "role claim (parent, instructor, staff, admin)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
