package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-flowx/model"
	"github.com/spf13/cobra"
)

// MembersOptions holds flags for the members commands.
type MembersOptions struct {
	*RootOptions
	ProjectID int64
	UserID    int64
	Role      string
	Refresh   bool
}

// NewMembersCommand groups the project membership commands.
func NewMembersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MembersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "members",
		Short: "List and manage project members",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List members of a project or memberships of a user",
		Example: `  flowx members list --project 5
  flowx members list --user 12 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembersList(cmd.Context(), cmd, opts)
		},
	}
	list.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id")
	list.Flags().Int64Var(&opts.UserID, "user", 0, "user id")
	list.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the local cache")
	list.MarkFlagsMutuallyExclusive("project", "user")
	list.MarkFlagsOneRequired("project", "user")

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembersAdd(cmd.Context(), cmd, opts)
		},
	}
	add.Flags().Int64Var(&opts.ProjectID, "project", 0, "project id (required)")
	add.Flags().Int64Var(&opts.UserID, "user", 0, "user id (required)")
	add.Flags().StringVar(&opts.Role, "role", string(model.RoleMember), "OWNER, MANAGER, MEMBER or VIEWER")
	_ = add.MarkFlagRequired("project")
	_ = add.MarkFlagRequired("user")

	role := &cobra.Command{
		Use:   "role <member-id> <role>",
		Short: "Change the role of a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembersRole(cmd.Context(), cmd, opts, args)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <member-id>",
		Short: "Remove a member from its project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMembersRemove(cmd.Context(), cmd, opts, args)
		},
	}

	cmd.AddCommand(list, add, role, remove)
	return cmd
}

func runMembersList(ctx context.Context, cmd *cobra.Command, opts *MembersOptions) error {
	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	var members []model.ProjectMember
	if opts.ProjectID != 0 {
		members = c.Members().MembersByProject(ctx, opts.ProjectID, opts.Refresh)
	} else {
		members = c.Members().MembersByUser(ctx, opts.UserID, opts.Refresh)
	}
	if err := c.Members().Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to load members", err)
	}

	rows := make([][]string, 0, len(members))
	for _, m := range members {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			strconv.FormatInt(m.ProjectID, 10),
			strconv.FormatInt(m.UserID, 10),
			string(m.Role),
			string(m.Status),
		})
	}
	return formatter(cmd, opts.RootOptions).Table(count(len(members), "member"), members,
		[]string{"ID", "PROJECT", "USER", "ROLE", "STATUS"}, rows)
}

func runMembersAdd(ctx context.Context, cmd *cobra.Command, opts *MembersOptions) error {
	req := model.AddMemberRequest{
		ProjectID: opts.ProjectID,
		UserID:    opts.UserID,
		Role:      model.MemberRole(strings.ToUpper(opts.Role)),
	}
	if err := req.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid member", err)
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	m := c.Members().Add(ctx, req)
	if m == nil {
		return WrapExitError(ExitFailure, "failed to add member", c.Members().Err())
	}
	return formatter(cmd, opts.RootOptions).Success(
		fmt.Sprintf("Added user %d to project %d as %s (member %d)", m.UserID, m.ProjectID, m.Role, m.ID), m)
}

func runMembersRole(ctx context.Context, cmd *cobra.Command, opts *MembersOptions, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	req := model.UpdateRoleRequest{Role: model.MemberRole(strings.ToUpper(args[1]))}
	if err := req.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid role", err)
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	if !c.Members().UpdateRole(ctx, id, req.Role) {
		return WrapExitError(ExitFailure, "failed to update role", c.Members().Err())
	}
	return formatter(cmd, opts.RootOptions).Success(fmt.Sprintf("Member %d is now %s", id, req.Role), nil)
}

func runMembersRemove(ctx context.Context, cmd *cobra.Command, opts *MembersOptions, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	if !c.Members().Remove(ctx, id) {
		return WrapExitError(ExitFailure, "failed to remove member", c.Members().Err())
	}
	return formatter(cmd, opts.RootOptions).Success(fmt.Sprintf("Removed member %d", id), nil)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}
