package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
	"github.com/noah-isme/sims-enrollment-api/pkg/config"
)

func newTokenCommand() *cobra.Command {
	var claims models.JWTClaims
	var role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token signed with JWT_SECRET (development only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Env == config.EnvProduction {
				return fmt.Errorf("token issuing is disabled in production")
			}
			claims.Role = models.UserRole(strings.ToUpper(role))
			if claims.Role == models.RoleFaculty && claims.FacultyID == "" {
				return fmt.Errorf("--faculty is required for FACULTY tokens")
			}
			auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})
			token, expiresAt, err := auth.IssueToken(claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&claims.UserID, "user", "", "user id")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN, FACULTY or STUDENT")
	cmd.Flags().StringVar(&claims.FacultyID, "faculty", "", "faculty id for FACULTY tokens")
	cmd.Flags().StringVar(&claims.StudentID, "student", "", "student id for STUDENT tokens")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
