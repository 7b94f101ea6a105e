package store

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Role is the analyst's dashboard role.
type Role string

const (
	RoleAnalyst Role = "analyst"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Roles lists the accepted roles in display order.
var Roles = []Role{RoleAnalyst, RoleManager, RoleAdmin}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAnalyst, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Description is the one-line summary shown by the login form.
func (r Role) Description() string {
	switch r {
	case RoleAnalyst:
		return "Full access to conversations and intelligence"
	case RoleManager:
		return "Overview dashboards and reports"
	case RoleAdmin:
		return "System configuration and management"
	}
	return ""
}

// User is the signed-in analyst.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// NewUser builds a user the way the login form does: a blank username
// falls back to the demo identity.
func NewUser(username string, role Role) User {
	username = strings.TrimSpace(username)
	u := User{ID: "1", Username: username, Role: role, Name: username}
	if username == "" {
		u.Username = "demo_user"
		u.Name = "Demo User"
	}
	local := username
	if local == "" {
		local = "demo"
	}
	u.Email = fmt.Sprintf("%s@scamshield.ai", local)
	return u
}

// DemoUser is the identity used by demo mode.
func DemoUser() User {
	return User{
		ID:       "demo",
		Username: "demo_analyst",
		Role:     RoleAnalyst,
		Name:     "Demo Analyst",
		Email:    "demo@scamshield.ai",
	}
}

// Settings are the dashboard preferences.
type Settings struct {
	AutoScroll           bool    `json:"autoScroll"`
	SoundEnabled         bool    `json:"soundEnabled"`
	NotificationsEnabled bool    `json:"notificationsEnabled"`
	Theme                string  `json:"theme"`
	MaxConversationTurns int     `json:"maxConversationTurns"`
	AutoExitThreshold    float64 `json:"autoExitThreshold"`
	Language             string  `json:"language"`
}

// DefaultSettings returns the stock preferences.
func DefaultSettings() Settings {
	return Settings{
		AutoScroll:           true,
		SoundEnabled:         true,
		NotificationsEnabled: true,
		Theme:                "dark",
		MaxConversationTurns: 15,
		AutoExitThreshold:    0.9,
		Language:             "en",
	}
}

// Validate rejects settings the dashboard cannot honour.
func (s Settings) Validate() error {
	if s.Theme != "dark" && s.Theme != "light" {
		return errors.Newf("theme must be dark or light, got %q", s.Theme)
	}
	if s.MaxConversationTurns < 1 {
		return errors.Newf("maxConversationTurns must be positive, got %d", s.MaxConversationTurns)
	}
	if s.AutoExitThreshold < 0 || s.AutoExitThreshold > 1 {
		return errors.Newf("autoExitThreshold must be within [0,1], got %g", s.AutoExitThreshold)
	}
	if s.Language == "" {
		return errors.New("language is required")
	}
	return nil
}

// Session is the persisted snapshot.
type Session struct {
	User            *User    `json:"user"`
	IsAuthenticated bool     `json:"isAuthenticated"`
	UserRole        Role     `json:"userRole"`
	Settings        Settings `json:"settings"`
}

// DefaultSession is the signed-out session.
func DefaultSession() Session {
	return Session{UserRole: RoleAnalyst, Settings: DefaultSettings()}
}
