// Package export writes a generated project out of the session, either as
// a zip archive or as files in a directory.
package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arin/webviber/internal/extract"
)

// DefaultProjectName is offered when the user is asked to name a project.
const DefaultProjectName = "web-viber-project"

// ErrUnsafePath is returned for paths that are absolute or escape the target.
var ErrUnsafePath = errors.New("unsafe file path")

var whitespaceRe = regexp.MustCompile(`\s+`)

// Zip writes one archive entry per file, in the order given.
func Zip(w io.Writer, files []extract.File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		entry, err := zw.Create(f.Path)
		if err != nil {
			return fmt.Errorf("adding %s: %w", f.Path, err)
		}
		if _, err := io.WriteString(entry, f.Content); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
	}
	return zw.Close()
}

// ArchiveName turns a project name into an archive file name: whitespace
// runs become "-" and ".zip" is appended.
func ArchiveName(project string) (string, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return "", errors.New("project name is empty")
	}
	return whitespaceRe.ReplaceAllString(project, "-") + ".zip", nil
}

// DownloadName is the file name used when a single file is saved.
func DownloadName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "download"
	}
	return p
}

// Status describes what WriteDir did with one file.
type Status string

const (
	Created   Status = "created"
	Updated   Status = "updated"
	Unchanged Status = "unchanged"
)

// Written is the outcome for one file.
type Written struct {
	Path   string
	Status Status
}

// WriteDir writes files under dir, creating directories as needed. Every path
// is checked before anything is written.
func WriteDir(dir string, files []extract.File) ([]Written, error) {
	targets := make([]string, len(files))
	for i, f := range files {
		dest, err := resolve(dir, f.Path)
		if err != nil {
			return nil, err
		}
		targets[i] = dest
	}

	out := make([]Written, 0, len(files))
	for i, f := range files {
		status, err := writeFile(targets[i], []byte(f.Content))
		if err != nil {
			return out, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		out = append(out, Written{Path: f.Path, Status: status})
	}
	return out, nil
}

func resolve(dir, p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	rel := path.Clean(filepath.ToSlash(p))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, p)
	}
	return filepath.Join(dir, filepath.FromSlash(rel)), nil
}

func writeFile(dest string, data []byte) (Status, error) {
	status := Created
	old, err := os.ReadFile(dest)
	switch {
	case err == nil && bytes.Equal(old, data):
		return Unchanged, nil
	case err == nil:
		status = Updated
	case !os.IsNotExist(err):
		return "", err
	}

	dirName := filepath.Dir(dest)
	if err := os.MkdirAll(dirName, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dirName, ".tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return status, nil
}
