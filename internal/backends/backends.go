// Package backends defines the contracts of the external collaborators
// handlers call into: OS input, browser, document writer, file system,
// screenshot, and content generation. Only handler code may touch these.
//
// Every implementation must honor context cancellation at its next safe
// point and return a plain error on failure; the handler layer translates
// errors into the executor's taxonomy.
package backends

import "context"

// DesktopInput performs OS-level input: launching applications, typing,
// key presses, and mouse clicks.
type DesktopInput interface {
	OpenApplication(ctx context.Context, name string) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
	ClickAt(ctx context.Context, x, y int) error
}

// Screenshotter captures the screen to a file and returns its path.
type Screenshotter interface {
	Capture(ctx context.Context) (string, error)
}

// Browser drives a web browser.
type Browser interface {
	Open(ctx context.Context) error
	NavigateTo(ctx context.Context, url string) error
	// Search runs a product/content search, optionally on a named site.
	Search(ctx context.Context, query, site string) error
	Close() error
}

// DocumentWriter persists generated document content and returns the path
// written.
type DocumentWriter interface {
	Write(ctx context.Context, filename, content string) (string, error)
}

// FileSystem performs local file operations.
type FileSystem interface {
	Save(ctx context.Context, path, content string) error
	Exists(ctx context.Context, path string) (bool, error)
	Copy(ctx context.Context, src, dst string) error
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, path string) error
}

// ContentGenerator produces document text. Implementations may call an LLM
// or fall back to deterministic templates.
type ContentGenerator interface {
	GenerateArticle(ctx context.Context, topic string) (string, error)
	GenerateDocument(ctx context.Context, docType, topic string) (string, error)
}
