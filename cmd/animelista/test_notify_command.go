package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhaskara2k/animelista-sub000/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc := notifications.NewService(cfg)
			if !notifications.Enabled(svc) {
				fprintf(cmd.OutOrStdout(), "ntfy topic not configured; set notifications.ntfy_topic\n")
				return nil
			}
			if err := svc.Publish(cmd.Context(), notifications.EventTest, notifications.Payload{"source": "animelista"}); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
