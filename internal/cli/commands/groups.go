package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/cli/ui"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
)

// withServices opens the app, wires the services without a notification
// pusher and closes everything after fn
func (e *env) withServices(ctx context.Context, fn func(a *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	a.wire(nil)
	return fn(a)
}

func groupNames() []string {
	names := make([]string, len(auth.DefaultGroups))
	for i, g := range auth.DefaultGroups {
		names[i] = g.Name
	}
	return names
}

func newGroupsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage permission groups",
		Long: `Manage the permission groups that gate library shelves.

  Viewers  can view books
  Editors  can view, add and change books
  Admins   can view, add, change and delete books`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Create the default groups",
		Args:  cobra.NoArgs,
		RunE:  e.runGroupsSetup,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List groups with member counts",
		Args:  cobra.NoArgs,
		RunE:  e.runGroupsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "assign <username> <group>",
		Short: "Add a user to a group",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return groupNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: e.runGroupsAssign,
	})

	return cmd
}

func (e *env) runGroupsSetup(cmd *cobra.Command, args []string) error {
	p := e.printer(cmd)
	return e.withServices(cmd.Context(), func(a *app) error {
		results, err := a.services.Accounts.SetupGroups(cmd.Context())
		for _, r := range results {
			perms := strings.Join(r.Permissions, ", ")
			if r.Created {
				p.Success("Created group %s (%s)", r.Name, perms)
			} else {
				p.Skip("Group %s already exists", r.Name)
			}
		}
		return err
	})
}

func (e *env) runGroupsList(cmd *cobra.Command, args []string) error {
	p := e.printer(cmd)
	return e.withServices(cmd.Context(), func(a *app) error {
		groups, err := a.services.Accounts.ListGroups(cmd.Context())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			p.Warn("No groups found. Run \"inkwell groups setup\" first.")
			return nil
		}
		t := p.Table("Group", "Members", "Permissions")
		for _, g := range groups {
			t.AddRow(g.Name, fmt.Sprint(g.Members), strings.Join(g.Permissions, ", "))
		}
		t.Render()
		return nil
	})
}

func (e *env) runGroupsAssign(cmd *cobra.Command, args []string) error {
	p := e.printer(cmd)
	username, group := args[0], args[1]
	if !auth.IsValidGroup(group) {
		p.Error(fmt.Sprintf("unknown group %q", group), ui.Suggest(group, groupNames(), 2)...)
		return fmt.Errorf("group must be one of %s", strings.Join(groupNames(), ", "))
	}
	return e.withServices(cmd.Context(), func(a *app) error {
		u, err := a.services.Accounts.AddToGroup(cmd.Context(), username, group)
		if err != nil {
			return fmt.Errorf("failed to assign %s to %s: %w", username, group, err)
		}
		p.Success("%s is now in %s", u.Username, strings.Join(u.Groups, ", "))
		return nil
	})
}
