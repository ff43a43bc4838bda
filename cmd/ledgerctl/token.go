package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmerrifield20/tourledger/internal/identity"
)

var (
	tokSecret string
	tokIssuer string
	tokEmail  string
	tokRole   string
	tokTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a user token signed with the server's JWT secret",
	Long: `token signs a user token locally with the shared HS256 secret that
ledgerd is configured with (auth.jwt_secret). Use it to bootstrap registrar
staff or to script bookings in development.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokSecret
		if secret == "" {
			secret = viper.GetString("jwt_secret")
		}
		if secret == "" {
			return errors.New("--secret (or LEDGERCTL_JWT_SECRET) is required")
		}
		switch tokRole {
		case identity.RoleAdmin, identity.RoleRegistrar, identity.RoleTourist:
		default:
			return fmt.Errorf("unknown role %q", tokRole)
		}

		issuer, err := identity.NewTokenIssuer(secret, tokIssuer, tokTTL)
		if err != nil {
			return err
		}
		tok, err := issuer.Issue(args[0], tokEmail, tokRole)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokSecret, "secret", "", "HS256 signing secret")
	tokenCmd.Flags().StringVar(&tokIssuer, "issuer", "tourledger", "token issuer")
	tokenCmd.Flags().StringVar(&tokEmail, "email", "", "email recorded as the actor")
	tokenCmd.Flags().StringVar(&tokRole, "role", identity.RoleTourist, "admin, registrar or tourist")
	tokenCmd.Flags().DurationVar(&tokTTL, "ttl", 24*time.Hour, "token lifetime")
}
