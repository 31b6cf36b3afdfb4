package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EntityType names the kind of record a file is attached to.
type EntityType string

const (
	EntityProject EntityType = "PROJECT"
	EntityTask    EntityType = "TASK"
	EntityPost    EntityType = "POST"
)

// File is an uploaded object attached to a project or task.
type File struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	EntityType  EntityType `json:"entityType"`
	EntityID    int64      `json:"entityId"`
	ObjectKey   string     `json:"objectKey"`
	UploadedBy  int64      `json:"uploadedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PresignedUploadRequest asks the backend for a write location.
type PresignedUploadRequest struct {
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	EntityType  EntityType `json:"entityType"`
	EntityID    int64      `json:"entityId"`
}

// Validate checks the target and file metadata.
func (r PresignedUploadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileName, validation.Required),
		validation.Field(&r.ContentType, validation.Required),
		validation.Field(&r.Size, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.EntityType, validation.Required, validation.In(EntityProject, EntityTask, EntityPost)),
		validation.Field(&r.EntityID, validation.Required),
	)
}

// PresignedUpload is the backend's answer to PresignedUploadRequest.
type PresignedUpload struct {
	FileID    int64     `json:"fileId"`
	URL       string    `json:"url"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PresignedDownload is a short-lived URL for reading a stored file.
type PresignedDownload struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}
