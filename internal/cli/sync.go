package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/isometry/ldap-sync/internal/runner"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run synchronization passes",
}

var syncUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Synchronize directory users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *runner.Runner) error {
			_, err := r.SyncUsers(ctx)
			return err
		})
	},
}

var syncGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Synchronize directory groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *runner.Runner) error {
			_, err := r.SyncGroups(ctx)
			return err
		})
	},
}

var syncMembershipCmd = &cobra.Command{
	Use:   "membership",
	Short: "Synchronize group membership",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *runner.Runner) error {
			_, err := r.SyncMembership(ctx)
			return err
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every enabled pass: users, groups, then membership",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *runner.Runner) error {
			return r.SyncAll(ctx)
		})
	},
}

var memberCmd = &cobra.Command{
	Use:   "member <dn>",
	Short: "List directory groups containing the given member DN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd, func(ctx context.Context, r *runner.Runner) error {
			entries, err := r.GroupsForMember(ctx, args[0])
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), entry.DN)
			}
			return nil
		})
	},
}

func init() {
	syncCmd.AddCommand(syncUsersCmd, syncGroupsCmd, syncMembershipCmd, syncAllCmd)
	rootCmd.AddCommand(syncCmd, memberCmd)
}

// withRunner builds a runner from configuration and executes fn under a
// signal-aware context.
func withRunner(cmd *cobra.Command, fn func(context.Context, *runner.Runner) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	r, err := runner.New(cfg, log)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fn(ctx, r); err != nil {
		log.WithError(err).Error("synchronization failed")
		return err
	}
	return nil
}
