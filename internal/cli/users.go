package cli

import (
	"context"
	"strconv"

	"github.com/goliatone/go-flowx/model"
	"github.com/spf13/cobra"
)

// UsersOptions holds the users command flags.
type UsersOptions struct {
	*RootOptions
	DepartmentID int64
}

// NewUsersCommand creates the users command.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UsersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "users [query]",
		Short: "List or search users",
		Example: `  flowx users
  flowx users ada
  flowx users --department 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(cmd.Context(), cmd, opts, args)
		},
	}
	cmd.Flags().Int64Var(&opts.DepartmentID, "department", 0, "only users of this department")

	return cmd
}

func runUsers(ctx context.Context, cmd *cobra.Command, opts *UsersOptions, args []string) error {
	c, done, err := session(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer done()

	dir := c.Directory()
	var users []model.User
	switch {
	case len(args) == 1:
		users = dir.SearchUsers(ctx, args[0])
	case opts.DepartmentID != 0:
		users = dir.DepartmentUsers(ctx, opts.DepartmentID)
	default:
		users = dir.Users(ctx)
	}
	if err := dir.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to load users", err)
	}

	departments := map[int64]string{}
	for _, d := range dir.Departments(ctx) {
		departments[d.ID] = d.Name
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, u.FullName, departments[u.DepartmentID]})
	}
	return formatter(cmd, opts.RootOptions).Table(count(len(users), "user"), users,
		[]string{"ID", "USERNAME", "NAME", "DEPARTMENT"}, rows)
}
