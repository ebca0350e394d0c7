package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbw-coffee/api/internal/domain"
	"github.com/cbw-coffee/api/internal/platform/auth"
)

func adminCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Back office helpers",
	}
	cmd.AddCommand(adminTokenCmd(flags))
	return cmd
}

func adminTokenCmd(flags *globalFlags) *cobra.Command {
	var (
		subject string
		email   string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a short lived admin bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adminRole, err := parseAdminRole(role)
			if err != nil {
				return err
			}
			e, err := newEnv(cmd.Context(), flags, "Auth.AdminJWTSecret")
			if err != nil {
				return err
			}
			defer e.Close()

			if ttl <= 0 {
				ttl = e.cfg.Auth.AdminTokenTTL
			}
			authn, err := auth.NewAdminAuthenticator(e.cfg.Auth.AdminJWTSecret,
				auth.WithAdminIssuer(e.cfg.Auth.AdminJWTIssuer),
				auth.WithAdminTokenTTL(ttl),
			)
			if err != nil {
				return err
			}
			token, err := authn.Issue(subject, email, adminRole)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "admin user id")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&role, "role", string(domain.ActorRoleStaff), "OWNER, MANAGER or STAFF")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to CBW_AUTH_ADMIN_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func parseAdminRole(raw string) (domain.ActorRole, error) {
	role := domain.ActorRole(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.IsAdmin() {
		return "", fmt.Errorf("role %q is not an admin role", raw)
	}
	return role, nil
}
