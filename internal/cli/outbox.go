package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	m "github.com/light-bringer/fieldwatch/internal/models/m_change_outbox"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
	"github.com/light-bringer/fieldwatch/internal/services"
)

// NewOutboxCommand creates the outbox command group.
func NewOutboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect stored change notifications",
	}
	cmd.AddCommand(newOutboxListCommand(rootOpts))
	return cmd
}

type notificationView struct {
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	AggregateID string    `json:"aggregateId"`
	Status      string    `json:"status"`
	RetryCount  int64     `json:"retryCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newOutboxListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		status    string
		eventType string
		limit     int
		oldest    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List change notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := services.NewServiceOptions(ctx, rootOpts.Config, rootOpts.Logger, services.Spanner)
			if err != nil {
				return err
			}
			defer svc.Close()

			dir := query.Desc
			if oldest {
				dir = query.Asc
			}
			events, err := svc.OutboxRepo.List(ctx, status, eventType, limit, dir)
			if err != nil {
				return err
			}

			views := make([]notificationView, len(events))
			for i, e := range events {
				views[i] = notificationView{
					EventID:     e.EventID,
					EventType:   e.EventType,
					AggregateID: e.AggregateID,
					Status:      e.Status,
					RetryCount:  e.RetryCount,
					CreatedAt:   e.CreatedAt,
				}
			}

			return printer{format: rootOpts.Format, w: cmd.OutOrStdout()}.print(views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintln(w, "No notifications found")
					return
				}
				for i, v := range views {
					fmt.Fprintf(w, "%d. %s - %s (aggregate: %s, status: %s, retries: %d)\n",
						i+1, v.EventType, v.EventID, v.AggregateID, v.Status, v.RetryCount)
				}
				fmt.Fprintf(w, "\nTotal: %d notifications\n", len(views))
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", fmt.Sprintf("filter by status (%s|%s|%s)", m.StatusPending, m.StatusCompleted, m.StatusFailed))
	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum notifications to show")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "list oldest first")
	return cmd
}
