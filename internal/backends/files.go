package backends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalFS implements FileSystem over the local disk.
type LocalFS struct{}

// NewLocalFS creates a local filesystem backend.
func NewLocalFS() *LocalFS { return &LocalFS{} }

// Save writes content to path, creating parent directories.
func (f *LocalFS) Save(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// Exists reports whether path exists.
func (f *LocalFS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Copy duplicates src to dst.
func (f *LocalFS) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return out.Sync()
}

// Move renames src to dst.
func (f *LocalFS) Move(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.Rename(src, dst)
}

// Delete removes the file at path.
func (f *LocalFS) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Remove(path)
}

// TextDocumentWriter writes documents as plain text under a base directory.
// The docx and pdf formats are produced by an external document writer; when
// they are requested here the content is still persisted as text so nothing
// is lost.
type TextDocumentWriter struct {
	dir    string
	format string
	log    *zap.SugaredLogger
}

// NewTextDocumentWriter creates a writer targeting dir with the configured
// default format.
func NewTextDocumentWriter(dir, format string, log *zap.SugaredLogger) *TextDocumentWriter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &TextDocumentWriter{dir: dir, format: format, log: log}
}

// Write persists content under the document directory and returns the path.
func (w *TextDocumentWriter) Write(ctx context.Context, filename, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if filename == "" {
		filename = "new.txt"
	}
	if !strings.Contains(filename, ".") {
		filename += extensionFor(w.format)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}

	path := filepath.Join(w.dir, filepath.Base(filename))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx", ".pdf":
		// No structured writer wired in; keep the content readable.
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
		w.log.Warnw("structured document format downgraded to text", "requested", filename, "path", path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return path, nil
}

func extensionFor(format string) string {
	switch strings.ToLower(format) {
	case "docx":
		return ".docx"
	case "pdf":
		return ".pdf"
	default:
		return ".txt"
	}
}
