package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
)

const notificationBase = "/api/notification"

// NotificationService wraps the paginated notification feed.
type NotificationService struct {
	client *api.Client
}

// NewNotificationService returns a NotificationService backed by client.
func NewNotificationService(client *api.Client) *NotificationService {
	return &NotificationService{client: client}
}

// List fetches one page of the feed.
func (s *NotificationService) List(ctx context.Context, q model.NotificationQuery) (model.Page[model.Notification], error) {
	q = q.Normalize()
	values := url.Values{
		"page": {strconv.Itoa(q.Page)},
		"size": {strconv.Itoa(q.Size)},
	}
	if q.UnreadOnly {
		values.Set("unread", "true")
	}
	return api.Get[model.Page[model.Notification]](ctx, s.client, notificationBase, values)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	_, err := api.Put[struct{}](ctx, s.client, fmt.Sprintf("%s/%d/read", notificationBase, id), nil)
	return err
}

// MarkAllRead flags the whole feed as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	_, err := api.Put[struct{}](ctx, s.client, notificationBase+"/read-all", nil)
	return err
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	return api.Get[int](ctx, s.client, notificationBase+"/unread-count", nil)
}
