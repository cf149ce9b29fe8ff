package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ukydev/car-maintenance/internal/auth"
	"github.com/ukydev/car-maintenance/internal/models"
)

// The token command only signs; it never opens the stores.
func (c *CLI) newTokenCmd() *cobra.Command {
	var (
		identity models.Identity
		role     string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for an identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := auth.NewService(c.cfg.JWTSecret, c.cfg.JWTExpiry)
			if err != nil {
				return err
			}
			identity.Role = models.Role(role)
			token, err := tokens.GenerateToken(identity)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&identity.UserID, "user-id", "", "Subject of the token")
	cmd.Flags().StringVar(&identity.Username, "username", "", "Display name carried in the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleViewer), "Role: admin, manager, operator or viewer")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
