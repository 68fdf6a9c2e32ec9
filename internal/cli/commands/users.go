package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/inkwell-dev/inkwell/internal/accounts"
	"github.com/inkwell-dev/inkwell/internal/cli/ui"
	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/auth"
	"github.com/inkwell-dev/inkwell/internal/web/query"
)

type createUserFlags struct {
	username  string
	email     string
	password  string
	role      string
	groups    []string
	staff     bool
	superuser bool
	noInput   bool
}

func newUsersCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var f createUserFlags
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Create a user account. Missing values are prompted for unless
--no-input is given.

A superuser is always staff and has the Admin role.`,
		Example: `  inkwell users create --username admin --superuser
  inkwell users create --username ada --role Librarian --group Editors --no-input --password s3cret-pass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runUsersCreate(cmd, &f)
		},
	}
	create.Flags().StringVarP(&f.username, "username", "u", "", "Username")
	create.Flags().StringVarP(&f.email, "email", "e", "", "Email address")
	create.Flags().StringVar(&f.password, "password", "", "Password (prompted when omitted)")
	create.Flags().StringVar(&f.role, "role", auth.RoleMember, "Role: "+strings.Join(auth.Roles, ", "))
	create.Flags().StringSliceVarP(&f.groups, "group", "g", nil, "Permission group (repeatable)")
	create.Flags().BoolVar(&f.staff, "staff", false, "Grant staff access")
	create.Flags().BoolVar(&f.superuser, "superuser", false, "Create a superuser")
	create.Flags().BoolVar(&f.noInput, "no-input", false, "Never prompt; fail on missing values")
	_ = create.RegisterFlagCompletionFunc("role", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return auth.Roles, cobra.ShellCompDirectiveNoFileComp
	})
	_ = create.RegisterFlagCompletionFunc("group", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return groupNames(), cobra.ShellCompDirectiveNoFileComp
	})

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runUsersList(cmd, search)
		},
	}
	list.Flags().StringVarP(&search, "search", "s", "", "Filter by username or email")

	cmd.AddCommand(create, list)
	return cmd
}

// prompt fills the values the flags left empty
func (e *env) prompt(f *createUserFlags) error {
	if f.username == "" {
		if err := e.ask(&survey.Input{Message: "Username:"}, &f.username, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if f.email == "" {
		if err := e.ask(&survey.Input{Message: "Email (optional):"}, &f.email); err != nil {
			return err
		}
	}
	if f.password == "" {
		if err := e.ask(&survey.Password{Message: "Password:"}, &f.password, survey.WithValidator(survey.MinLength(8))); err != nil {
			return err
		}
		var confirm string
		if err := e.ask(&survey.Password{Message: "Password (again):"}, &confirm); err != nil {
			return err
		}
		if confirm != f.password {
			return errors.New(accounts.MsgPasswordsDiffer)
		}
	}
	if !f.superuser && len(f.groups) == 0 {
		if err := e.ask(&survey.MultiSelect{Message: "Groups:", Options: groupNames()}, &f.groups); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) runUsersCreate(cmd *cobra.Command, f *createUserFlags) error {
	p := e.printer(cmd)

	if !f.noInput {
		if err := e.prompt(f); err != nil {
			return err
		}
	}
	if f.username == "" || f.password == "" {
		return errors.New("--username and --password are required with --no-input")
	}
	if f.superuser {
		f.staff = true
		f.role = auth.RoleAdmin
	}
	if !auth.IsValidRole(f.role) {
		p.Error(fmt.Sprintf("unknown role %q", f.role), ui.Suggest(f.role, auth.Roles, 1)...)
		return fmt.Errorf("role must be one of %s", strings.Join(auth.Roles, ", "))
	}
	for _, g := range f.groups {
		if !auth.IsValidGroup(g) {
			p.Error(fmt.Sprintf("unknown group %q", g), ui.Suggest(g, groupNames(), 2)...)
			return fmt.Errorf("group must be one of %s", strings.Join(groupNames(), ", "))
		}
	}

	return e.withServices(cmd.Context(), func(a *app) error {
		u, err := a.services.Accounts.CreateUser(cmd.Context(), accounts.CreateUserInput{
			Username:    f.username,
			Email:       f.email,
			Password:    f.password,
			Role:        f.role,
			IsStaff:     f.staff,
			IsSuperuser: f.superuser,
			Groups:      f.groups,
		})
		if errors.Is(err, accounts.ErrUsernameTaken) {
			return errors.New(accounts.MsgUsernameTaken)
		}
		if verrs, ok := validation.AsErrors(err); ok {
			return fmt.Errorf("invalid user: %s", verrs.Error())
		}
		if err != nil {
			return err
		}

		kind := "user"
		if u.IsSuperuser {
			kind = "superuser"
		}
		p.Success("Created %s %s (id %d)", kind, u.Username, u.ID)
		kv := ui.NewKeyValue(p.Writer(), p.NoColor())
		kv.Add("Role", u.Role)
		kv.Add("Staff", u.IsStaff)
		if len(u.Groups) > 0 {
			kv.Add("Groups", strings.Join(u.Groups, ", "))
		}
		kv.Render()
		return nil
	})
}

func (e *env) runUsersList(cmd *cobra.Command, search string) error {
	p := e.printer(cmd)
	return e.withServices(cmd.Context(), func(a *app) error {
		users, total, err := a.services.Accounts.ListUsers(cmd.Context(), search, query.Page{Number: 1, Size: query.MaxPageSize})
		if err != nil {
			return err
		}
		t := p.Table("ID", "Username", "Email", "Role", "Groups", "Staff")
		for _, u := range users {
			staff := ""
			if u.IsStaff {
				staff = "yes"
			}
			t.AddRow(fmt.Sprint(u.ID), u.Username, u.Email, u.Role, strings.Join(u.Groups, ", "), staff)
		}
		t.Render()
		if total > len(users) {
			p.Info("Showing %d of %d users; narrow with --search", len(users), total)
		}
		return nil
	})
}
