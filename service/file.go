package service

import (
	"context"
	"fmt"

	"github.com/goliatone/go-flowx/api"
	"github.com/goliatone/go-flowx/model"
)

const fileBase = "/api/file"

// FileService wraps the /api/file endpoints. It never moves file bytes; see
// the upload package for the object storage side.
type FileService struct {
	client *api.Client
}

// NewFileService returns a FileService backed by client.
func NewFileService(client *api.Client) *FileService {
	return &FileService{client: client}
}

// PresignedUpload registers a file and returns the URL its bytes go to.
func (s *FileService) PresignedUpload(ctx context.Context, req model.PresignedUploadRequest) (model.PresignedUpload, error) {
	return api.Post[model.PresignedUpload](ctx, s.client, fileBase+"/presigned-upload", req)
}

// PresignedDownload returns a URL for reading a stored file.
func (s *FileService) PresignedDownload(ctx context.Context, fileID int64) (model.PresignedDownload, error) {
	return api.Get[model.PresignedDownload](ctx, s.client, fmt.Sprintf("%s/presigned-download/%d", fileBase, fileID), nil)
}

// GetByEntity lists the files attached to a project, task or post.
func (s *FileService) GetByEntity(ctx context.Context, entity model.EntityType, entityID int64) ([]model.File, error) {
	return api.Get[[]model.File](ctx, s.client, fmt.Sprintf("%s/get-by-entity/%s/%d", fileBase, entity, entityID), nil)
}

// Delete removes a file record.
func (s *FileService) Delete(ctx context.Context, fileID int64) error {
	_, err := api.Delete[struct{}](ctx, s.client, fmt.Sprintf("%s/%d", fileBase, fileID))
	return err
}
