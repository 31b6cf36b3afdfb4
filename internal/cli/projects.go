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

// ProjectsOptions holds the projects command flags.
type ProjectsOptions struct {
	*RootOptions
	Name        string
	Description string
	Members     []string
	Refresh     bool
}

// NewProjectsCommand creates the projects command group.
func NewProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProjectsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and create projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsList(cmd.Context(), cmd, opts)
		},
	}
	list.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the local cache")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project and add its members",
		Long: `Create a project, then add every --member to it.

A failed create leaves nothing behind. When some members cannot be added the
project is kept and the command exits with code 1.`,
		Example: `  flowx projects create --name Apollo --member 3:OWNER --member 7:MEMBER`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectsCreate(cmd.Context(), cmd, opts)
		},
	}
	create.Flags().StringVar(&opts.Name, "name", "", "project name (required)")
	create.Flags().StringVar(&opts.Description, "description", "", "project description")
	create.Flags().StringArrayVar(&opts.Members, "member", nil, "member as <user-id>:<role>, repeatable")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(list, create)
	return cmd
}

func runProjectsList(ctx context.Context, cmd *cobra.Command, opts *ProjectsOptions) error {
	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	projects := c.Projects().Projects(ctx, opts.Refresh)
	if err := c.Projects().Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to load projects", err)
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, string(p.Status)})
	}
	return formatter(cmd, opts.RootOptions).Table(count(len(projects), "project"), projects,
		[]string{"ID", "NAME", "STATUS"}, rows)
}

func runProjectsCreate(ctx context.Context, cmd *cobra.Command, opts *ProjectsOptions) error {
	invites, err := parseInvites(opts.Members)
	if err != nil {
		return err
	}
	req := model.CreateProjectRequest{Name: opts.Name, Description: opts.Description, Members: invites}
	if err := req.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid project", err)
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	res := c.Flows().CreateProjectWithMembers(ctx, req)
	out := formatter(cmd, opts.RootOptions)
	switch res.Report.Outcome {
	case workflow.Succeeded:
		return out.Success(fmt.Sprintf("Created project %d %q with %s", res.Project.ID, res.Project.Name,
			count(len(res.Members), "member")), res)
	case workflow.PartiallySucceeded:
		_ = out.Warning(res.Report.Message(), res)
		return WrapExitError(ExitFailure, "project created with missing members", res.Report.Err)
	default:
		return WrapExitError(ExitFailure, res.Report.Message(), res.Report.Err)
	}
}

func parseInvites(values []string) ([]model.MemberInvite, error) {
	invites := make([]model.MemberInvite, 0, len(values))
	for _, v := range values {
		user, role, ok := strings.Cut(v, ":")
		if !ok {
			role = string(model.RoleMember)
		}
		id, err := parseID(user)
		if err != nil {
			return nil, err
		}
		invites = append(invites, model.MemberInvite{UserID: id, Role: model.MemberRole(strings.ToUpper(role))})
	}
	return invites, nil
}
