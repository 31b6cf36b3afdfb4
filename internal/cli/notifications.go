package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/goliatone/go-flowx/model"
	"github.com/spf13/cobra"
)

// NotificationsOptions holds the notifications command flags.
type NotificationsOptions struct {
	*RootOptions
	Page   int
	Size   int
	Unread bool
}

// NewNotificationsCommand creates the notifications command group.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotificationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read the notification feed",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show one page of notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotificationsList(cmd.Context(), cmd, opts)
		},
	}
	list.Flags().IntVar(&opts.Page, "page", 1, "page number")
	list.Flags().IntVar(&opts.Size, "size", 20, "page size (max 100)")
	list.Flags().BoolVar(&opts.Unread, "unread", false, "only unread notifications")

	read := &cobra.Command{
		Use:   "read <id|all>",
		Short: "Mark one or all notifications as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotificationsRead(cmd.Context(), cmd, opts, args)
		},
	}

	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print notifications as they arrive until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runNotificationsTail(ctx, cmd, opts)
		},
	}

	cmd.AddCommand(list, read, tail)
	return cmd
}

func runNotificationsList(ctx context.Context, cmd *cobra.Command, opts *NotificationsOptions) error {
	q := model.NotificationQuery{Page: opts.Page, Size: opts.Size, UnreadOnly: opts.Unread}
	if err := q.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid page", err)
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	notes := c.Notifications()
	page := notes.Page(ctx, q, true)
	unread := notes.UnreadCount(ctx, false)
	if err := notes.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to load notifications", err)
	}

	rows := make([][]string, 0, len(page.Items))
	for _, n := range page.Items {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		rows = append(rows, []string{mark, strconv.FormatInt(n.ID, 10), n.Type, n.Title})
	}
	summary := fmt.Sprintf("%s, %d unread", count(page.Total, "notification"), unread)
	return formatter(cmd, opts.RootOptions).Table(summary, page, []string{"", "ID", "TYPE", "TITLE"}, rows)
}

func runNotificationsRead(ctx context.Context, cmd *cobra.Command, opts *NotificationsOptions, args []string) error {
	all := args[0] == "all"
	var id int64
	if !all {
		var err error
		if id, err = parseID(args[0]); err != nil {
			return err
		}
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	notes := c.Notifications()
	if all {
		if !notes.MarkAllRead(ctx) {
			return WrapExitError(ExitFailure, "failed to mark notifications read", notes.Err())
		}
		return formatter(cmd, opts.RootOptions).Success("Marked every notification read", nil)
	}
	if !notes.MarkRead(ctx, id) {
		return WrapExitError(ExitFailure, "failed to mark notification read", notes.Err())
	}
	return formatter(cmd, opts.RootOptions).Success(fmt.Sprintf("Marked notification %d read", id), nil)
}

func runNotificationsTail(ctx context.Context, cmd *cobra.Command, opts *NotificationsOptions) error {
	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	w := cmd.OutOrStdout()
	enc := json.NewEncoder(w)
	c.OnNotification(func(n model.Notification) {
		if opts.Format == "json" {
			_ = enc.Encode(n)
			return
		}
		fmt.Fprintf(w, "%s  %-16s %s\n", n.CreatedAt.Format("15:04:05"), n.Type, n.Title)
	})
	if err := c.StartNotifications(ctx); err != nil {
		return WrapExitError(ExitCommandError, "cannot listen for notifications", err)
	}

	<-ctx.Done()
	return nil
}
