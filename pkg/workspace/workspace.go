// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace provides the sandboxed directory a task runs in.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"

	operrors "github.com/jllopis/exampleop/pkg/errors"
	"github.com/jllopis/exampleop/pkg/params"
	"github.com/jllopis/exampleop/pkg/template"
)

const fileMode fs.FileMode = 0o644

// Workspace is a directory that confines every path an operator touches.
type Workspace struct {
	root string
}

// New opens the workspace rooted at dir. The root is made absolute and
// symlinks are resolved so containment checks compare real paths.
func New(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, operrors.Execution("resolve workspace root", err).WithContext("root", dir)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, operrors.Execution("resolve workspace root", err).WithContext("root", dir)
	}
	info, err := os.Stat(real)
	if err != nil {
		return nil, operrors.Execution("stat workspace root", err).WithContext("root", dir)
	}
	if !info.IsDir() {
		return nil, operrors.Execution(fmt.Sprintf("workspace root %s is not a directory", dir), nil).
			WithContext("root", dir)
	}
	return &Workspace{root: real}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Path resolves rel to an absolute path inside the workspace. Absolute paths
// and paths leaving the root, lexically or through a symlinked directory,
// are configuration errors.
func (w *Workspace) Path(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", operrors.Configurationf("path must not be empty")
	}
	if filepath.IsAbs(rel) {
		return "", operrors.Configurationf("path %q must be relative to the workspace", rel).
			WithContext("path", rel)
	}
	target := filepath.Join(w.root, rel)
	if target == w.root {
		return "", operrors.Configurationf("path %q must name a file inside the workspace", rel).
			WithContext("path", rel)
	}
	if !w.contains(target) {
		return "", operrors.Configurationf("path %q escapes the workspace", rel).
			WithContext("path", rel)
	}

	// The parent may be a symlink pointing elsewhere. Missing parents are left
	// for the write to report.
	parent, err := filepath.EvalSymlinks(filepath.Dir(target))
	if err == nil && !w.contains(filepath.Join(parent, filepath.Base(target))) {
		return "", operrors.Configurationf("path %q escapes the workspace", rel).
			WithContext("path", rel)
	}
	return target, nil
}

func (w *Workspace) contains(path string) bool {
	r, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

// RenderTemplate renders the template stored under key. A value naming a
// regular file in the workspace is replaced by that file's contents decoded
// with enc. The rendering context is the whole of cfg.
func (w *Workspace) RenderTemplate(engine template.Engine, cfg *params.Config, key string, enc encoding.Encoding) (string, error) {
	command, err := cfg.GetString(key)
	if err != nil {
		return "", err
	}
	if command == "" {
		return "", operrors.Configurationf("parameter %q must not be empty", key).WithContext("key", key)
	}

	body, err := w.templateBody(command, enc)
	if err != nil {
		return "", err
	}

	rendered, err := engine.RenderString(body, cfg.Raw())
	if err != nil {
		return "", operrors.Configuration(fmt.Sprintf("render parameter %q", key), err).
			WithContext("key", key)
	}
	return rendered, nil
}

func (w *Workspace) templateBody(command string, enc encoding.Encoding) (string, error) {
	if strings.ContainsAny(command, "\n{}") || filepath.IsAbs(command) {
		return command, nil
	}
	path, err := w.Path(command)
	if err != nil {
		return command, nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return command, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", operrors.Execution(fmt.Sprintf("read template %s", command), err).
			WithContext("path", command)
	}
	if enc == nil {
		return string(raw), nil
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", operrors.Configuration(fmt.Sprintf("decode template %s", command), err).
			WithContext("path", command)
	}
	return string(decoded), nil
}

// WriteFile atomically creates or replaces rel with data. The bytes go to a
// temporary file in the target directory which is synced and renamed over
// the target, so readers never observe partial content. New files get mode
// 0644; a replaced file keeps its permissions.
func (w *Workspace) WriteFile(rel string, data []byte) error {
	path, err := w.Path(rel)
	if err != nil {
		return err
	}

	mode := fileMode
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return writeError(rel, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return writeError(rel, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return writeError(rel, err)
	}
	if err := tmp.Close(); err != nil {
		return writeError(rel, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return writeError(rel, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return writeError(rel, err)
	}
	committed = true
	return nil
}

// ReadFile returns the contents of rel.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	path, err := w.Path(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, operrors.New(operrors.CodeNotFound, fmt.Sprintf("read %s", rel), err).WithContext("path", rel)
		}
		return nil, operrors.Execution(fmt.Sprintf("read %s", rel), err).WithContext("path", rel)
	}
	return data, nil
}

func writeError(rel string, err error) error {
	return operrors.Execution(fmt.Sprintf("write %s", rel), err).WithContext("path", rel)
}
