package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/minexpert/bidwar/anonymity"
	"github.com/minexpert/bidwar/bidapi"
	"github.com/minexpert/bidwar/feed"
)

func (a *app) anonIDCmd() *cobra.Command {
	var specialization string
	cmd := &cobra.Command{
		Use:   "anon-id <consultant-id> <project-id>",
		Short: "Print the anonymous ID a consultant bids under on a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			consultantID, projectID := args[0], args[1]
			var extra map[string]string
			if specialization != "" {
				extra = map[string]string{consultantID: specialization}
			}
			gen, err := a.anonymizer(extra, nil)
			if err != nil {
				return err
			}
			id := gen.GenerateAnonymousID(cmd.Context(), consultantID, projectID)

			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"consultant_id": consultantID,
					"project_id":    projectID,
					"anonymous_id":  id,
					"scheme":        a.cfg.Anonymity.Scheme,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&specialization, "specialization", "", "consultant specialization, e.g. Geology")
	return cmd
}

func (a *app) keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secret for the keyed anonymity scheme",
		Long: `Generate a random hex secret for anonymity.key. Anonymous IDs derived under
the keyed scheme cannot be linked to consultants without it; keep it with your
other secrets and do not rotate it while auctions are open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := anonymity.NewKeyManager()
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"key": keys.KeyHex()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), keys.KeyHex())
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Follow a project's events from the Redis feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Redis.Enabled() {
				return fmt.Errorf("watch needs redis.address to be configured")
			}
			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := a.redisClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			pub := feed.NewPublisher(client, a.cfg.Redis.ChannelPrefix, a.log)
			return pub.Follow(ctx, args[0], func(ev bidapi.EventView) {
				if a.jsonOutput() {
					_ = writeJSON(out, ev)
					return
				}
				fmt.Fprintln(out, formatEvent(ev))
			})
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatEvent(ev bidapi.EventView) string {
	ts := ev.Timestamp.UTC().Format("15:04:05")
	if ev.Bid == nil {
		return fmt.Sprintf("%s %-24s %s -> %s", ts, ev.Type, ev.ProjectID, ev.Project.Status)
	}
	return fmt.Sprintf("%s %-24s %s rank=%d %s score=%.4f", ts, ev.Type, ev.Bid.AnonymousID, ev.Bid.Rank, ev.Bid.Status, ev.Bid.Confidence)
}
