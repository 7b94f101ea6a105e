package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/scamshield/syndicate/pkg/store"
)

// settingField reads and writes one dashboard preference by its stored name.
type settingField struct {
	key string
	get func(store.Settings) string
	set func(*store.Settings, string) error
}

func boolField(key string, p func(*store.Settings) *bool) settingField {
	return settingField{
		key: key,
		get: func(s store.Settings) string { return strconv.FormatBool(*p(&s)) },
		set: func(s *store.Settings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Newf("%s: %q is not a boolean", key, v)
			}
			*p(s) = b
			return nil
		},
	}
}

var settingFields = []settingField{
	boolField("autoScroll", func(s *store.Settings) *bool { return &s.AutoScroll }),
	boolField("soundEnabled", func(s *store.Settings) *bool { return &s.SoundEnabled }),
	boolField("notificationsEnabled", func(s *store.Settings) *bool { return &s.NotificationsEnabled }),
	{
		key: "theme",
		get: func(s store.Settings) string { return s.Theme },
		set: func(s *store.Settings, v string) error { s.Theme = strings.ToLower(v); return nil },
	},
	{
		key: "maxConversationTurns",
		get: func(s store.Settings) string { return strconv.Itoa(s.MaxConversationTurns) },
		set: func(s *store.Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Newf("maxConversationTurns: %q is not an integer", v)
			}
			s.MaxConversationTurns = n
			return nil
		},
	},
	{
		key: "autoExitThreshold",
		get: func(s store.Settings) string { return strconv.FormatFloat(s.AutoExitThreshold, 'g', -1, 64) },
		set: func(s *store.Settings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return errors.Newf("autoExitThreshold: %q is not a number", v)
			}
			s.AutoExitThreshold = f
			return nil
		},
	},
	{
		key: "language",
		get: func(s store.Settings) string { return s.Language },
		set: func(s *store.Settings, v string) error { s.Language = v; return nil },
	},
}

// applySetting sets key (case-insensitive) on s. s is unchanged on error.
func applySetting(s *store.Settings, key, value string) error {
	for _, f := range settingFields {
		if strings.EqualFold(f.key, key) {
			next := *s
			if err := f.set(&next, strings.TrimSpace(value)); err != nil {
				return err
			}
			if err := next.Validate(); err != nil {
				return err
			}
			*s = next
			return nil
		}
	}
	return errors.Newf("unknown setting %q", key)
}

func writeSession(w io.Writer, sess store.Session) {
	fmt.Fprintf(w, "user: %s\n", sessionUser(sess.User))
	fmt.Fprintf(w, "role: %s\n", sess.UserRole)
	for _, f := range settingFields {
		fmt.Fprintf(w, "%s: %s\n", f.key, f.get(sess.Settings))
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the session and dashboard settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			sess, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}
			writeSession(cmd.OutOrStdout(), sess)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a dashboard setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			var applyErr error
			updated, err := st.UpdateSettings(cmd.Context(), func(s *store.Settings) {
				applyErr = applySetting(s, args[0], args[1])
			})
			if applyErr != nil {
				return applyErr
			}
			if err != nil {
				return err
			}
			a.log.Infow("Updated setting", "key", args[0], "value", args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], settingValue(updated, args[0]))
			return nil
		},
	}

	role := &cobra.Command{
		Use:       "role ROLE",
		Short:     "Switch the dashboard role (analyst, manager, admin)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(store.RoleAnalyst), string(store.RoleManager), string(store.RoleAdmin)},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			sess, err := st.SetUserRole(cmd.Context(), store.Role(strings.ToLower(args[0])))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "role = %s (%s)\n", sess.UserRole, sess.UserRole.Description())
			return nil
		},
	}

	cmd.AddCommand(set, role)
	return cmd
}

func settingValue(s store.Settings, key string) string {
	for _, f := range settingFields {
		if strings.EqualFold(f.key, key) {
			return f.get(s)
		}
	}
	return ""
}
