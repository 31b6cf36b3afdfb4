package workflow

import (
	"context"
	"io"
	"log/slog"

	"github.com/goliatone/go-flowx/model"
	"github.com/goliatone/go-flowx/upload"
)

// ProjectWriter creates projects and deletes them when a flow rolls back.
type ProjectWriter interface {
	CreateE(ctx context.Context, req model.CreateProjectRequest) (model.Project, error)
	DeleteE(ctx context.Context, id int64) error
}

// MemberWriter adds the invited members of a new project.
type MemberWriter interface {
	AddMany(ctx context.Context, projectID int64, invites []model.MemberInvite) ([]model.ProjectMember, error)
}

// TaskWriter creates tasks and deletes them when a flow rolls back.
type TaskWriter interface {
	CreateE(ctx context.Context, req model.CreateTaskRequest) (model.Task, error)
	DeleteE(ctx context.Context, id int64) error
}

// Attacher uploads files onto a record.
type Attacher interface {
	Upload(ctx context.Context, target upload.Target, files []upload.Source) ([]model.File, error)
}

// Flows bundles the user flows that span more than one backend call.
type Flows struct {
	projects ProjectWriter
	members  MemberWriter
	tasks    TaskWriter
	uploads  Attacher
	logger   *slog.Logger
}

// NewFlows wires the flows to their stores. A nil logger discards.
func NewFlows(projects ProjectWriter, members MemberWriter, tasks TaskWriter, uploads Attacher, logger *slog.Logger) *Flows {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flows{projects: projects, members: members, tasks: tasks, uploads: uploads, logger: logger}
}

// ProjectResult is what CreateProjectWithMembers produced.
type ProjectResult struct {
	Project *model.Project
	Members []model.ProjectMember
	Report  Report
}

// CreateProjectWithMembers creates a project and then adds req.Members to
// it. A failed create leaves nothing behind; a failed member add keeps the
// project and the members added so far and reports partial success.
func (f *Flows) CreateProjectWithMembers(ctx context.Context, req model.CreateProjectRequest) ProjectResult {
	var res ProjectResult
	saga := New("create_project_with_members", f.logger, Step{
		Name: "create_project",
		Run: func(ctx context.Context) error {
			p, err := f.projects.CreateE(ctx, req)
			if err != nil {
				return err
			}
			res.Project = &p
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return f.projects.DeleteE(ctx, res.Project.ID)
		},
		OnFailure: Abort,
	})
	if len(req.Members) > 0 {
		saga.Add(Step{
			Name: "add_members",
			Run: func(ctx context.Context) error {
				added, err := f.members.AddMany(ctx, res.Project.ID, req.Members)
				res.Members = added
				return err
			},
			OnFailure: ReportPartial,
		})
	}
	res.Report = saga.Execute(ctx)
	if res.Report.Outcome == Compensated {
		res.Project = nil
	}
	return res
}

// TaskResult is what CreateTaskWithAttachments produced.
type TaskResult struct {
	Task   *model.Task
	Files  []model.File
	Report Report
}

// CreateTaskWithAttachments creates a task and uploads files against it.
// Attachments that fail to upload leave the task and the other files in
// place.
func (f *Flows) CreateTaskWithAttachments(ctx context.Context, req model.CreateTaskRequest, files []upload.Source) TaskResult {
	var res TaskResult
	saga := New("create_task_with_attachments", f.logger, Step{
		Name: "create_task",
		Run: func(ctx context.Context) error {
			t, err := f.tasks.CreateE(ctx, req)
			if err != nil {
				return err
			}
			res.Task = &t
			return nil
		},
		Compensate: func(ctx context.Context) error {
			return f.tasks.DeleteE(ctx, res.Task.ID)
		},
		OnFailure: Abort,
	})
	if len(files) > 0 {
		saga.Add(Step{
			Name: "upload_attachments",
			Run: func(ctx context.Context) error {
				target := upload.Target{EntityType: model.EntityTask, EntityID: res.Task.ID}
				uploaded, err := f.uploads.Upload(ctx, target, files)
				res.Files = uploaded
				return err
			},
			OnFailure: ReportPartial,
		})
	}
	res.Report = saga.Execute(ctx)
	return res
}
