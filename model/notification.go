package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Notification is one entry of a user's feed.
type Notification struct {
	ID         int64      `json:"id" msgpack:"id"`
	UserID     int64      `json:"userId" msgpack:"userId"`
	Type       string     `json:"type" msgpack:"type"`
	Title      string     `json:"title" msgpack:"title"`
	Message    string     `json:"message" msgpack:"message"`
	EntityType EntityType `json:"entityType,omitempty" msgpack:"entityType"`
	EntityID   int64      `json:"entityId,omitempty" msgpack:"entityId"`
	Read       bool       `json:"read" msgpack:"read"`
	CreatedAt  time.Time  `json:"createdAt" msgpack:"createdAt"`
}

// Page is one page of a paginated feed.
type Page[T any] struct {
	Items []T `json:"items" msgpack:"items"`
	Page  int `json:"page" msgpack:"page"`
	Size  int `json:"size" msgpack:"size"`
	Total int `json:"total" msgpack:"total"`
}

// HasMore reports whether pages after this one exist.
func (p Page[T]) HasMore() bool {
	return p.Page*p.Size < p.Total
}

// NotificationQuery selects a page of the feed.
type NotificationQuery struct {
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	UnreadOnly bool `json:"unreadOnly"`
}

// Validate rejects out-of-range paging values.
func (q NotificationQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Page, validation.Min(1)),
		validation.Field(&q.Size, validation.Min(1), validation.Max(100)),
	)
}

// Normalize fills the defaults the feed endpoint assumes.
func (q NotificationQuery) Normalize() NotificationQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = 20
	}
	return q
}
