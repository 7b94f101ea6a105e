package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// gitignoreComment heads the entry EnsureIgnored appends.
const gitignoreComment = "# syndicate config (may hold an API token)"

// EnsureIgnored adds the project's .syndicate/ directory to projectDir's
// .gitignore unless a line already covers it. The config file can carry a
// bearer token, so it must stay out of version control.
func EnsureIgnored(projectDir string) (added bool, err error) {
	if projectDir == "" {
		if projectDir, err = os.Getwd(); err != nil {
			return false, errors.Wrap(err, "resolving project directory")
		}
	}
	path := filepath.Join(projectDir, ".gitignore")

	covered, err := gitignoreCovers(path, DirName)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, errors.Wrap(err, "reading .gitignore")
	}
	if covered {
		return false, nil
	}
	if err := appendIgnore(path, DirName+"/"); err != nil {
		return false, errors.Wrap(err, "updating .gitignore")
	}
	return true, nil
}

// gitignoreCovers reports whether any non-comment line of the file ignores
// the whole of dir.
func gitignoreCovers(path, dir string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversDir(line, dir) {
			return true, nil
		}
	}
	return false, sc.Err()
}

// coversDir matches dir, dir/, dir/*, dir/** and dir/**/*, each optionally
// anchored with a leading slash.
func coversDir(line, dir string) bool {
	rest, ok := strings.CutPrefix(strings.TrimPrefix(line, "/"), dir)
	if !ok {
		return false
	}
	switch rest {
	case "", "/", "/*", "/**", "/**/*":
		return true
	}
	return false
}

// appendIgnore appends pattern under a comment, creating the file when
// missing and keeping a blank line between it and earlier content.
func appendIgnore(path, pattern string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var b strings.Builder
	if len(existing) > 0 {
		if existing[len(existing)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(gitignoreComment + "\n" + pattern + "\n")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
