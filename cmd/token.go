package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/medride/dispatch/api"
	"github.com/medride/dispatch/config"
)

var (
	tokenUID  string
	tokenRole string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	RunE:  issueToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUID, "uid", "", "caller uid")
	tokenCmd.Flags().StringVar(&tokenRole, "role", api.RoleDriver, "caller role: admin, driver or user")
	_ = tokenCmd.MarkFlagRequired("uid")
	rootCmd.AddCommand(tokenCmd)
}

func issueToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	switch tokenRole {
	case api.RoleAdmin, api.RoleDriver, api.RoleUser:
	default:
		return fmt.Errorf("unknown role %s", tokenRole)
	}

	ttl := time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := api.NewAuthenticator(cfg.Auth.Secret).Sign(tokenUID, tokenRole, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
