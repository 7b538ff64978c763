package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"
)

// FileFactory serves plain paths and file URIs from a file system. Like a
// browser reading from disk, successful reads report no status (0); missing
// files report 404 and unreadable ones 403.
type FileFactory struct {
	FS fs.FS
}

// File returns a factory reading from fsys. With a nil fsys it reads from the
// operating system: relative paths below the working directory, absolute
// paths and file URIs from the filesystem root. With a non-nil fsys every
// path, absolute or not, is a name inside fsys.
func File(fsys fs.FS) FileFactory {
	return FileFactory{FS: fsys}
}

func (f FileFactory) Name() string { return "file" }

func (f FileFactory) New(scheme string) (Transport, error) {
	if scheme != "" && scheme != "file" {
		return nil, fmt.Errorf("file: %w %q", ErrUnsupportedScheme, scheme)
	}
	return &fileTransport{fsys: f.FS}, nil
}

type fileTransport struct {
	fsys fs.FS // nil reads from the operating system
}

func (t *fileTransport) Open(method, uri string, async bool) (Handle, error) {
	if method != "" && method != "GET" {
		return nil, fmt.Errorf("file: method %s not supported", method)
	}
	name, abs, err := fsPath(uri)
	if err != nil {
		return nil, err
	}
	fsys := t.fsys
	if fsys == nil {
		fsys = osFS(abs)
	}
	return &fileHandle{fsys: fsys, name: name}, nil
}

type fileHandle struct {
	states
	fsys fs.FS
	name string
}

func (h *fileHandle) Send(ctx context.Context, _ io.Reader) (*Response, error) {
	h.emit(Opened)
	defer h.emit(Done)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(h.fsys, h.name)
	switch {
	case err == nil:
		h.emit(Loading)
		return &Response{Body: data}, nil
	case errors.Is(err, fs.ErrNotExist):
		return &Response{Status: 404}, nil
	case errors.Is(err, fs.ErrPermission):
		return &Response{Status: 403}, nil
	default:
		return nil, fmt.Errorf("read %s: %w", h.name, err)
	}
}

func osFS(abs bool) fs.FS {
	if abs {
		return os.DirFS("/")
	}
	return os.DirFS(".")
}

// fsPath turns a file URI or plain path into an fs.FS name. abs reports a
// path rooted at "/".
func fsPath(uri string) (name string, abs bool, err error) {
	p := uri
	if strings.HasPrefix(strings.ToLower(uri), "file:") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", false, fmt.Errorf("file: parse %q: %w", uri, err)
		}
		p = u.Path
	}
	abs = strings.HasPrefix(p, "/")
	name = path.Clean(strings.TrimLeft(p, "/"))
	if name == "." || !fs.ValidPath(name) {
		return "", false, fmt.Errorf("file: invalid path %q", uri)
	}
	return name, abs, nil
}
