package main

import (
	"fmt"

	"github.com/jrsteele09/go-sso-server/bootstrap"
	"github.com/jrsteele09/go-sso-server/internal/config"
	"github.com/spf13/cobra"
)

func newBootstrapCommand(getConfig func() config.Config) *cobra.Command {
	var req bootstrap.Request

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed a tenant, an admin member and a first app",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			provisioner, err := bootstrap.NewProvisioner(a.repos.Users, a.repos.Tenants, a.repos.Apps)
			if err != nil {
				return err
			}
			req.BaseURL = cfg.GetBaseURL()
			result, err := provisioner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tenant:   %s (%s)\n", result.Tenant.ID, result.Tenant.Slug)
			fmt.Fprintf(out, "Admin:    %s\n", result.Admin.Email)
			fmt.Fprintf(out, "App:      %s\n", result.App.ID)
			if result.GeneratedPassword != "" {
				fmt.Fprintf(out, "Password: %s\n", result.GeneratedPassword)
				fmt.Fprintln(out, "Save this password, it will not be displayed again.")
			}
			if len(result.Created) == 0 {
				fmt.Fprintln(out, "Already configured, nothing created.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.TenantSlug, "tenant-slug", bootstrap.DefaultTenantSlug, "tenant slug")
	cmd.Flags().StringVar(&req.TenantName, "tenant-name", bootstrap.DefaultTenantName, "tenant display name")
	cmd.Flags().StringVar(&req.AdminEmail, "admin-email", "", "admin email (default admin@<BASE_URL host>)")
	cmd.Flags().StringVar(&req.AdminPassword, "admin-password", "", "admin password, generated when empty")
	cmd.Flags().StringVar(&req.AppID, "app-id", bootstrap.DefaultAppID, "first app id")
	cmd.Flags().StringVar(&req.AppName, "app-name", bootstrap.DefaultAppName, "first app display name")
	cmd.Flags().StringSliceVar(&req.RedirectURIs, "redirect-uri", nil, "registered redirect URI, repeatable (default <BASE_URL>/admin/callback)")
	return cmd
}
