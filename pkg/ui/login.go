package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"

	"github.com/scamshield/syndicate/pkg/store"
)

// LoginResult collects the login form's answers.
type LoginResult struct {
	Username string
	Role     store.Role
	// Token is an optional backend API token.
	Token string
	Demo  bool
}

// User returns the session user for the answers.
func (r LoginResult) User() store.User {
	if r.Demo {
		return store.DemoUser()
	}
	return store.NewUser(r.Username, r.Role)
}

// ValidateUsername rejects usernames the dashboard cannot display.
func ValidateUsername(s string) error {
	s = strings.TrimSpace(s)
	if len(s) > 64 {
		return errors.New("username must be at most 64 characters")
	}
	if strings.ContainsAny(s, " \t@/") {
		return errors.New("username must not contain spaces, '@' or '/'")
	}
	return nil
}

// NewLoginForm builds the sign-in form. Answers are written into res;
// a blank username signs in as the demo user.
func NewLoginForm(res *LoginResult) *huh.Form {
	if res.Role == "" {
		res.Role = store.RoleAnalyst
	}
	roles := make([]huh.Option[store.Role], 0, len(store.Roles))
	for _, r := range store.Roles {
		roles = append(roles, huh.NewOption(string(r)+" - "+r.Description(), r))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("ScamShield AI").
				Description("Sign in to the fraud intelligence dashboard."),
			huh.NewConfirm().
				Title("Enter demo mode?").
				Affirmative("Demo").
				Negative("Sign in").
				Value(&res.Demo),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Placeholder("demo_user").
				Validate(ValidateUsername).
				Value(&res.Username),
			huh.NewSelect[store.Role]().
				Title("Role").
				Options(roles...).
				Value(&res.Role),
			huh.NewInput().
				Title("API token").
				Description("Optional bearer token for the intelligence API.").
				EchoMode(huh.EchoModePassword).
				Value(&res.Token),
		).WithHideFunc(func() bool { return res.Demo }),
	).WithTheme(huh.ThemeCharm())
}

// RunLogin shows the form and records the session in st.
func RunLogin(ctx context.Context, st *store.Store) (store.User, error) {
	var res LoginResult
	if err := NewLoginForm(&res).RunWithContext(ctx); err != nil {
		return store.User{}, errors.Wrap(err, "login form")
	}
	return ApplyLogin(ctx, st, res)
}

// ApplyLogin persists a completed login.
func ApplyLogin(ctx context.Context, st *store.Store, res LoginResult) (store.User, error) {
	u := res.User()
	if _, err := st.SetUser(ctx, u); err != nil {
		return u, err
	}
	if _, err := st.SetUserRole(ctx, u.Role); err != nil {
		return u, err
	}
	if !res.Demo {
		if err := st.SetToken(ctx, strings.TrimSpace(res.Token)); err != nil {
			return u, err
		}
	}
	return u, nil
}
