package main

import (
	"fmt"
	"time"

	httpUtil "github.com/sifan077/FlexQR/internal/http/util"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a management API token for an owner.",
		Long: `Mint a bearer token for the /api routes, signed with FLEXQR_TOKEN_SECRET.

Example:
  qrctl token --owner alice --ttl 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = cfg.Server.TokenTTLDuration()
			}
			token, err := httpUtil.NewTokenSigner([]byte(cfg.Server.TokenSecret), ttl).Issue(owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id the token authenticates")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to server.token_ttl)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
