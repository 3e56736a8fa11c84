package backends

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// SimDesktop is the default DesktopInput. The real OS input backend is an
// external collaborator; this implementation records every action to the log
// so the rest of the pipeline can run end to end without one.
type SimDesktop struct {
	log *zap.SugaredLogger
}

// NewSimDesktop creates a simulated desktop input backend.
func NewSimDesktop(log *zap.SugaredLogger) *SimDesktop {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SimDesktop{log: log}
}

// OpenApplication records an application launch.
func (d *SimDesktop) OpenApplication(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("no application name")
	}
	d.log.Infow("desktop: open application", "name", name)
	return nil
}

// TypeText records typed text.
func (d *SimDesktop) TypeText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Infow("desktop: type text", "chars", len(text))
	return nil
}

// PressKey records a key press.
func (d *SimDesktop) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("no key")
	}
	d.log.Infow("desktop: press key", "key", key)
	return nil
}

// ClickAt records a mouse click.
func (d *SimDesktop) ClickAt(ctx context.Context, x, y int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.log.Infow("desktop: click", "x", x, "y", y)
	return nil
}

// FileScreenshotter writes screenshot placeholder files into a directory.
// The real capture backend is an external collaborator; the path contract is
// what downstream steps consume.
type FileScreenshotter struct {
	dir string
	log *zap.SugaredLogger
}

// NewFileScreenshotter creates a screenshotter writing under dir.
func NewFileScreenshotter(dir string, log *zap.SugaredLogger) *FileScreenshotter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FileScreenshotter{dir: dir, log: log}
}

// Capture writes a screenshot file and returns its path.
func (s *FileScreenshotter) Capture(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}
	path := filepath.Join(s.dir, fmt.Sprintf("screenshot_%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, pngStub, 0644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	s.log.Infow("screenshot captured", "path", path)
	return path, nil
}

// pngStub is a minimal 1x1 PNG so the capture path always holds an image.
var pngStub = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
