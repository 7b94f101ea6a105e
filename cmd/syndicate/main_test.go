package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scamshield/syndicate/pkg/export"
	"github.com/scamshield/syndicate/pkg/store"
)

const ringJSON = `{
  "nodes": [
    {"id": "c1", "label": "Case 1", "type": "conversation", "data": {"scam_type": "kyc_fraud", "risk_score": 0.91}},
    {"id": "c2", "label": "Case 2", "type": "conversation"},
    {"id": "+919876543210", "label": "+919876543210", "type": "phone"}
  ],
  "links": [
    {"source": "c1", "target": "+919876543210"},
    {"source": "c2", "target": "+919876543210"}
  ]
}`

type harness struct {
	dir     string
	cfgPath string
}

func newHarness(t *testing.T, apiURL string) *harness {
	t.Helper()
	t.Setenv("SYNDICATE_API_URL", "")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:1"
	}
	dir := t.TempDir()
	h := &harness{dir: dir, cfgPath: filepath.Join(dir, "config.yaml")}
	cfg := "backend:\n  url: " + apiURL + "\n" +
		"store:\n  path: " + filepath.Join(dir, "session.db") + "\n" +
		"log:\n  level: debug\n  file: " + filepath.Join(dir, "logs", "syndicate.log") + "\n"
	if err := os.WriteFile(h.cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", h.cfgPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) store(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(h.dir, "session.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	want := []string{"init", "view", "export", "login", "logout", "settings", "health", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("missing command %q", name)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil {
		t.Error("missing --config")
	}
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "")
	out, err := h.run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "syndicate dev\n") {
		t.Errorf("output = %q", out)
	}

	out, err = h.run(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"version": "dev"`) {
		t.Errorf("json output = %q", out)
	}

	out, err = h.run(t, "--version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "syndicate dev\n" {
		t.Errorf("--version output = %q", out)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      []string
		want    []export.Format
		wantErr bool
	}{
		{nil, nil, false},
		{[]string{"png"}, []export.Format{export.FormatPNG}, false},
		{[]string{"SVG", "json", "svg"}, []export.Format{export.FormatSVG, export.FormatJSON}, false},
		{[]string{"gif"}, nil, true},
	}
	for _, tt := range tests {
		got, err := parseFormats(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormats(%v) error = %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("parseFormats(%v) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseFormats(%v) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestLogOutputs(t *testing.T) {
	tests := []struct {
		file   string
		stderr bool
		want   string
	}{
		{"/tmp/a.log", false, "/tmp/a.log"},
		{"/tmp/a.log", true, "/tmp/a.log,stderr"},
		{"", false, "stderr"},
		{"", true, "stderr"},
	}
	for _, tt := range tests {
		if got := strings.Join(logOutputs(tt.file, tt.stderr), ","); got != tt.want {
			t.Errorf("logOutputs(%q, %v) = %q, want %q", tt.file, tt.stderr, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	l, err := newLogger("info", []string{path})
	if err != nil {
		t.Fatal(err)
	}
	l.Sugar().Infow("hello", "k", 1)
	l.Sugar().Debugw("hidden")
	_ = l.Sync()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) || strings.Contains(string(data), "hidden") {
		t.Errorf("log = %s", data)
	}

	if _, err := newLogger("loud", []string{path}); err == nil {
		t.Error("invalid level accepted")
	}
}

func TestApplySetting(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
		check      func(store.Settings) bool
	}{
		{"theme", "Light", false, func(s store.Settings) bool { return s.Theme == "light" }},
		{"theme", "sepia", true, nil},
		{"AUTOSCROLL", "false", false, func(s store.Settings) bool { return !s.AutoScroll }},
		{"soundEnabled", "maybe", true, nil},
		{"maxConversationTurns", "20", false, func(s store.Settings) bool { return s.MaxConversationTurns == 20 }},
		{"maxConversationTurns", "0", true, nil},
		{"autoExitThreshold", "0.75", false, func(s store.Settings) bool { return s.AutoExitThreshold == 0.75 }},
		{"autoExitThreshold", "1.5", true, nil},
		{"language", "hi", false, func(s store.Settings) bool { return s.Language == "hi" }},
		{"language", " ", true, nil},
		{"volume", "11", true, nil},
	}
	for _, tt := range tests {
		s := store.DefaultSettings()
		err := applySetting(&s, tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("applySetting(%s=%s) error = %v", tt.key, tt.value, err)
			continue
		}
		if tt.wantErr {
			if s != store.DefaultSettings() {
				t.Errorf("applySetting(%s=%s) changed settings on error: %+v", tt.key, tt.value, s)
			}
			continue
		}
		if !tt.check(s) {
			t.Errorf("applySetting(%s=%s) = %+v", tt.key, tt.value, s)
		}
	}
}

func TestSettingsCommands(t *testing.T) {
	h := newHarness(t, "")
	out, err := h.run(t, "settings", "set", "theme", "light")
	if err != nil {
		t.Fatal(err)
	}
	if out != "theme = light\n" {
		t.Errorf("set output = %q", out)
	}
	if _, err := h.run(t, "settings", "set", "autoExitThreshold", "2"); err == nil {
		t.Error("out of range threshold accepted")
	}
	if _, err := h.run(t, "settings", "role", "manager"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.run(t, "settings", "role", "root"); err == nil {
		t.Error("invalid role accepted")
	}

	out, err = h.run(t, "settings")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"user: (signed out)", "role: manager", "theme: light", "autoExitThreshold: 0.9", "maxConversationTurns: 15"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings output missing %q:\n%s", want, out)
		}
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t, "")
	ctx := context.Background()
	func() {
		st := h.store(t)
		if _, err := st.SetUser(ctx, store.NewUser("asha", store.RoleAdmin)); err != nil {
			t.Fatal(err)
		}
		if err := st.SetToken(ctx, "tok"); err != nil {
			t.Fatal(err)
		}
		st.Close()
	}()

	out, err := h.run(t, "logout")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Signed out\n" {
		t.Errorf("output = %q", out)
	}
	st := h.store(t)
	sess, _ := st.Load(ctx)
	if sess.IsAuthenticated || sess.User != nil {
		t.Errorf("session after logout = %+v", sess)
	}
	if tok, _ := st.Token(ctx); tok != "" {
		t.Errorf("token after logout = %q", tok)
	}
}

func TestExportFromFile(t *testing.T) {
	h := newHarness(t, "")
	graph := filepath.Join(h.dir, "graph.json")
	if err := os.WriteFile(graph, []byte(ringJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(h.dir, "out")
	out, err := h.run(t, "export", "--file", graph, "--out", outDir, "--format", "png,json", "--frames", "20", "--name", "ring")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Exported 3 nodes, 2 links from " + graph,
		"Shared entities: 1\n  +919876543210 (2 cases)",
		"Most central: +919876543210\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	pngs, _ := filepath.Glob(filepath.Join(outDir, "ring_*.png"))
	jsons, _ := filepath.Glob(filepath.Join(outDir, "ring_*.json"))
	svgs, _ := filepath.Glob(filepath.Join(outDir, "ring_*.svg"))
	if len(pngs) != 1 || len(jsons) != 1 || len(svgs) != 0 {
		t.Errorf("files: png=%v json=%v svg=%v", pngs, jsons, svgs)
	}
}

func TestExportFlagErrors(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.run(t, "export", "--file", "x.json", "--format", "gif"); err == nil {
		t.Error("unknown format accepted")
	}
	if _, err := h.run(t, "export", "--file", "x.json", "--network"); err == nil {
		t.Error("--file with --network accepted")
	}
	if _, err := h.run(t, "export", "--file", filepath.Join(h.dir, "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestExportFromBackendUsesStoredToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/intelligence/graph" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ringJSON))
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL)
	func() {
		st := h.store(t)
		if err := st.SetToken(context.Background(), "stored-tok"); err != nil {
			t.Fatal(err)
		}
		st.Close()
	}()

	out, err := h.run(t, "export", "--out", filepath.Join(h.dir, "out"), "--format", "svg", "--frames", "5")
	if err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer stored-tok" {
		t.Errorf("Authorization = %q", auth)
	}
	if !strings.Contains(out, "Exported 3 nodes") {
		t.Errorf("output = %q", out)
	}
}

func TestUnauthorizedClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Token expired"}`))
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL)
	func() {
		st := h.store(t)
		_ = st.SetToken(context.Background(), "old")
		st.Close()
	}()

	if _, err := h.run(t, "health"); err == nil {
		t.Fatal("expected error")
	}
	if tok, _ := h.store(t).Token(context.Background()); tok != "" {
		t.Errorf("token = %q, want cleared", tok)
	}
}

func TestHealth(t *testing.T) {
	status := "healthy"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "` + status + `", "orchestrator": "ready",
			"ai_providers": {"groq": "ok", "gemini": "ok"}, "agents": {"detector": "ready"}}`))
	}))
	defer srv.Close()

	h := newHarness(t, srv.URL)
	out, err := h.run(t, "health")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{": healthy", "orchestrator: ready", "providers/gemini: ok", "agents/detector: ready"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "providers/gemini") > strings.Index(out, "providers/groq") {
		t.Error("providers not sorted")
	}

	status = "degraded"
	if _, err := h.run(t, "health"); err == nil {
		t.Error("degraded backend reported healthy")
	}
}

func TestViewRequiresTerminal(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.run(t, "view", "--file", "graph.json")
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Errorf("err = %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("canvas:\n  width: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "settings"})
	if err := root.Execute(); err == nil {
		t.Error("invalid config accepted")
	}
}

func TestInit(t *testing.T) {
	h := newHarness(t, "")
	project := filepath.Join(h.dir, "project")
	out, err := h.run(t, "init", project)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Added .syndicate/ to") {
		t.Errorf("output = %q", out)
	}
	written := filepath.Join(project, ".syndicate", "config.yaml")
	data, err := os.ReadFile(written)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "repulsion: 100") {
		t.Errorf("config = %s", data)
	}

	if _, err := h.run(t, "init", project); err == nil {
		t.Error("existing config overwritten without --force")
	}
	out, err = h.run(t, "init", project, "--force")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Added") {
		t.Errorf("gitignore updated twice: %q", out)
	}
}

func TestMarkdownStyle(t *testing.T) {
	if markdownStyle("light") != "light" || markdownStyle("dark") != "dark" || markdownStyle("") != "dark" {
		t.Error("markdownStyle mapping")
	}
}
