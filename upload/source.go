package upload

import (
	"io"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-flowx/model"
)

// Source is one local file to upload.
type Source struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validate requires a name, a content type, a positive size and a body.
func (s Source) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.ContentType, validation.Required),
		validation.Field(&s.Size, validation.Required, validation.Min(int64(1))),
		validation.Field(&s.Body, validation.NotNil),
	)
}

// Target is the record the uploaded files get attached to.
type Target struct {
	EntityType model.EntityType
	EntityID   int64
}

// Validate requires a known entity type and id.
func (t Target) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.EntityType, validation.Required, validation.In(model.EntityProject, model.EntityTask, model.EntityPost)),
		validation.Field(&t.EntityID, validation.Required),
	)
}

func (t Target) request(s Source) model.PresignedUploadRequest {
	return model.PresignedUploadRequest{
		FileName:    s.Name,
		ContentType: s.ContentType,
		Size:        s.Size,
		EntityType:  t.EntityType,
		EntityID:    t.EntityID,
	}
}

// State is the position of one file in the upload state machine.
type State string

const (
	StatePending       State = "pending"
	StateRequestingURL State = "requesting-url"
	StateUploading     State = "uploading"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Event reports a state or progress change of one file.
type Event struct {
	Name    string
	State   State
	Percent int
	Err     error
}
