package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-flowx/model"
	"github.com/goliatone/go-flowx/workflow"
	"github.com/spf13/cobra"
)

// TasksOptions holds the tasks command flags.
type TasksOptions struct {
	*RootOptions
	ProjectID   int64
	AssigneeID  int64
	Status      string
	Priority    string
	NewPriority string
	Query       string
	Title       string
	Description string
	Attach      []string
	Refresh     bool
}

// NewTasksCommand creates the tasks command group.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TasksOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, create and move tasks",
	}

	list := &cobra.Command{
		Use:     "list",
		Short:   "List the tasks of a project",
		Example: `  flowx tasks list --project 5 --status IN_PROGRESS --query launch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasksList(cmd.Context(), cmd, opts)
		},
	}
	list.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id (required)")
	list.Flags().Int64Var(&opts.AssigneeID, "assignee", 0, "only tasks assigned to this user")
	list.Flags().StringVar(&opts.Status, "status", "", "TODO, IN_PROGRESS, REVIEW or DONE")
	list.Flags().StringVar(&opts.Priority, "priority", "", "LOW, MEDIUM, HIGH or URGENT")
	list.Flags().StringVar(&opts.Query, "query", "", "text to look for in title and description")
	list.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the local cache")
	_ = list.MarkFlagRequired("project")

	create := &cobra.Command{
		Use:     "create",
		Short:   "Create a task, optionally with attachments",
		Example: `  flowx tasks create --project 5 --title "Write brief" --attach brief.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasksCreate(cmd.Context(), cmd, opts)
		},
	}
	create.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id (required)")
	create.Flags().Int64Var(&opts.AssigneeID, "assignee", 0, "assignee user id")
	create.Flags().StringVar(&opts.Title, "title", "", "task title (required)")
	create.Flags().StringVar(&opts.Description, "description", "", "task description")
	create.Flags().StringVar(&opts.NewPriority, "priority", string(model.PriorityMedium), "LOW, MEDIUM, HIGH or URGENT")
	create.Flags().StringArrayVar(&opts.Attach, "attach", nil, "file to attach, repeatable")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("title")

	status := &cobra.Command{
		Use:   "status <task-id> <status>",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTasksStatus(cmd.Context(), cmd, opts, args)
		},
	}

	cmd.AddCommand(list, create, status)
	return cmd
}

func runTasksList(ctx context.Context, cmd *cobra.Command, opts *TasksOptions) error {
	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	if opts.Refresh {
		c.Tasks().TasksByProject(ctx, opts.ProjectID, true)
	}
	tasks := c.Tasks().Filter(ctx, opts.ProjectID, model.TaskFilter{
		Status:     model.TaskStatus(strings.ToUpper(opts.Status)),
		Priority:   model.TaskPriority(strings.ToUpper(opts.Priority)),
		AssigneeID: opts.AssigneeID,
		Query:      opts.Query,
	})
	if err := c.Tasks().Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to load tasks", err)
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		assignee := "-"
		if t.AssigneeID != 0 {
			assignee = strconv.FormatInt(t.AssigneeID, 10)
		}
		rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Title, string(t.Status), string(t.Priority), assignee})
	}
	return formatter(cmd, opts.RootOptions).Table(count(len(tasks), "task"), tasks,
		[]string{"ID", "TITLE", "STATUS", "PRIORITY", "ASSIGNEE"}, rows)
}

func runTasksCreate(ctx context.Context, cmd *cobra.Command, opts *TasksOptions) error {
	req := model.CreateTaskRequest{
		ProjectID:   opts.ProjectID,
		AssigneeID:  opts.AssigneeID,
		Title:       opts.Title,
		Description: opts.Description,
		Priority:    model.TaskPriority(strings.ToUpper(opts.NewPriority)),
	}
	if err := req.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid task", err)
	}
	sources, closeFiles, err := openSources(opts.Attach)
	if err != nil {
		return err
	}
	defer closeFiles()

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	res := c.Flows().CreateTaskWithAttachments(ctx, req, sources)
	out := formatter(cmd, opts.RootOptions)
	switch res.Report.Outcome {
	case workflow.Succeeded:
		return out.Success(fmt.Sprintf("Created task %d %q with %s", res.Task.ID, res.Task.Title,
			count(len(res.Files), "attachment")), res)
	case workflow.PartiallySucceeded:
		_ = out.Warning(res.Report.Message(), res)
		return WrapExitError(ExitFailure, "task created with missing attachments", res.Report.Err)
	default:
		return WrapExitError(ExitFailure, res.Report.Message(), res.Report.Err)
	}
}

func runTasksStatus(ctx context.Context, cmd *cobra.Command, opts *TasksOptions, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	req := model.UpdateTaskStatusRequest{Status: model.TaskStatus(strings.ToUpper(args[1]))}
	if err := req.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid status", err)
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	if !c.Tasks().UpdateStatus(ctx, id, req.Status) {
		return WrapExitError(ExitFailure, "failed to update task", c.Tasks().Err())
	}
	return formatter(cmd, opts.RootOptions).Success(fmt.Sprintf("Task %d is now %s", id, req.Status), nil)
}
