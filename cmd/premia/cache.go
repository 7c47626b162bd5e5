package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/premia/internal/app"
	"github.com/newthinker/premia/internal/provider"
)

var purgeRoles []string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Provider response cache operations",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop cached provider responses",
	RunE:  runCachePurge,
}

func init() {
	cachePurgeCmd.Flags().StringSliceVar(&purgeRoles, "role", nil, "roles to purge: chain, market, fundamentals (default all)")

	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var roles []provider.Role
	for _, r := range purgeRoles {
		role := provider.Role(r)
		switch role {
		case provider.RoleChain, provider.RoleMarket, provider.RoleFundamentals:
			roles = append(roles, role)
		default:
			return fmt.Errorf("unknown role %q", r)
		}
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log, app.WithLLM(nil))
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	n, err := a.PurgeCache(ctx, roles...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached responses.\n", n)
	return nil
}
