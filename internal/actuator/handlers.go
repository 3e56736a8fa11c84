package actuator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hollis-dev/deskmate/internal/backends"
	"github.com/hollis-dev/deskmate/internal/intent"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// Output names produced by the default handler set. Steps reference them
// through {{name}} parameter templates.
const (
	OutputGeneratedContent = "generated_content"
	OutputFilePath         = "file_path"
	OutputScreenshotPath   = "screenshot_path"
	OutputAnalysis         = "analysis"
)

// Backends bundles the external collaborators the default handlers drive.
type Backends struct {
	Desktop DesktopInput
	Screen  Screenshotter
	Browser Browser
	Docs    DocumentWriter
	FS      FileSystem
	Content ContentGenerator
	Log     *zap.SugaredLogger
}

// Re-exported collaborator contracts, so hosts wiring the registry only
// import this package.
type (
	DesktopInput     = backends.DesktopInput
	Screenshotter    = backends.Screenshotter
	Browser          = backends.Browser
	DocumentWriter   = backends.DocumentWriter
	FileSystem       = backends.FileSystem
	ContentGenerator = backends.ContentGenerator
)

// RegisterDefaults wires the full default handler set into the registry.
func RegisterDefaults(r *Registry, b Backends) {
	if b.Log == nil {
		b.Log = zap.NewNop().Sugar()
	}
	r.MustRegister(
		Handler{
			Action:         "open_application",
			RequiredParams: []string{"name"},
			DefaultTimeout: 15 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Desktop.OpenApplication(ctx, p["name"])
			},
		},
		Handler{
			Action:         "open_notepad",
			DefaultTimeout: 15 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Desktop.OpenApplication(ctx, "notepad")
			},
		},
		Handler{
			Action:          "open_notepad_create_file_write_article",
			RequiredParams:  []string{"topic", "filename"},
			ProducedOutputs: []string{OutputFilePath, OutputGeneratedContent},
			DefaultTimeout:  120 * time.Second,
			Fn:              compositeArticleFn(b),
		},
		Handler{
			Action:         "type_content",
			RequiredParams: []string{"text"},
			DefaultTimeout: 60 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Desktop.TypeText(ctx, p["text"])
			},
		},
		Handler{
			Action:         "type_text",
			RequiredParams: []string{"text"},
			DefaultTimeout: 60 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Desktop.TypeText(ctx, p["text"])
			},
		},
		Handler{
			Action:         "append_text",
			RequiredParams: []string{"text"},
			DefaultTimeout: 60 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Desktop.TypeText(ctx, "\n"+p["text"])
			},
		},
		Handler{
			Action:         "press_key",
			RequiredParams: []string{"key"},
			DefaultTimeout: 10 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Desktop.PressKey(ctx, p["key"])
			},
		},
		Handler{
			Action:         "click_at",
			RequiredParams: []string{"x", "y"},
			DefaultTimeout: 10 * time.Second,
			Fn:             clickAtFn(b),
		},
		Handler{
			Action:          "take_screenshot",
			ProducedOutputs: []string{OutputScreenshotPath},
			DefaultTimeout:  15 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				path, err := b.Screen.Capture(ctx)
				if err != nil {
					return nil, err
				}
				return Outputs{OutputScreenshotPath: path}, nil
			},
		},
		Handler{
			Action:         "open_browser",
			DefaultTimeout: 30 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Browser.Open(ctx)
			},
		},
		Handler{
			Action:         "search_product",
			RequiredParams: []string{"product"},
			DefaultTimeout: 45 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Browser.Search(ctx, p["product"], p["site"])
			},
		},
		Handler{
			Action:         "navigate_to",
			RequiredParams: []string{"url"},
			DefaultTimeout: 45 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.Browser.NavigateTo(ctx, p["url"])
			},
		},
		Handler{
			Action:          "create_document",
			RequiredParams:  []string{"document_type"},
			ProducedOutputs: []string{OutputFilePath, OutputGeneratedContent},
			DefaultTimeout:  120 * time.Second,
			Fn:              createDocumentFn(b, ""),
		},
		Handler{
			Action:          "create_article",
			RequiredParams:  []string{"topic"},
			ProducedOutputs: []string{OutputFilePath, OutputGeneratedContent},
			DefaultTimeout:  120 * time.Second,
			Fn:              createDocumentFn(b, "article"),
		},
		Handler{
			Action:          "create_leave_letter",
			ProducedOutputs: []string{OutputFilePath, OutputGeneratedContent},
			DefaultTimeout:  120 * time.Second,
			Fn:              createDocumentFn(b, "leave letter"),
		},
		Handler{
			Action:          "create_resume",
			ProducedOutputs: []string{OutputFilePath, OutputGeneratedContent},
			DefaultTimeout:  120 * time.Second,
			Fn:              createDocumentFn(b, "resume"),
		},
		Handler{
			Action:          "generate_article_content",
			RequiredParams:  []string{"topic"},
			ProducedOutputs: []string{OutputGeneratedContent},
			DefaultTimeout:  90 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				content, err := b.Content.GenerateArticle(ctx, p["topic"])
				if err != nil {
					return nil, err
				}
				return Outputs{OutputGeneratedContent: content}, nil
			},
		},
		Handler{
			Action:         "save_file",
			RequiredParams: []string{"path"},
			DefaultTimeout: 15 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.FS.Save(ctx, p["path"], p["content"])
			},
		},
		Handler{
			Action:         "open_file",
			RequiredParams: []string{"path"},
			DefaultTimeout: 15 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				exists, err := b.FS.Exists(ctx, p["path"])
				if err != nil {
					return nil, err
				}
				if !exists {
					return nil, fmt.Errorf("file %q does not exist", p["path"])
				}
				return nil, b.Desktop.OpenApplication(ctx, p["path"])
			},
		},
		Handler{
			Action:         "copy_file",
			RequiredParams: []string{"path"},
			DefaultTimeout: 30 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				dst := p["destination"]
				if dst == "" {
					dst = p["path"] + ".copy"
				}
				return nil, b.FS.Copy(ctx, p["path"], dst)
			},
		},
		Handler{
			Action:         "move_file",
			RequiredParams: []string{"path", "destination"},
			DefaultTimeout: 30 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.FS.Move(ctx, p["path"], p["destination"])
			},
		},
		Handler{
			Action:         "delete_files",
			RequiredParams: []string{"path"},
			DefaultTimeout: 30 * time.Second,
			Fn: func(ctx context.Context, p Params) (Outputs, error) {
				return nil, b.FS.Delete(ctx, p["path"])
			},
		},
		Handler{
			Action:          "analyze_command",
			RequiredParams:  []string{"command"},
			ProducedOutputs: []string{OutputAnalysis},
			DefaultTimeout:  10 * time.Second,
			Fn:              analyzeCommandFn(),
		},
	)
}

// compositeArticleFn generates the article and writes it in one handler
// invocation, standing in for the open/generate/type sequence.
func compositeArticleFn(b Backends) HandlerFunc {
	return func(ctx context.Context, p Params) (Outputs, error) {
		if err := b.Desktop.OpenApplication(ctx, "notepad"); err != nil {
			return nil, err
		}
		content, err := b.Content.GenerateArticle(ctx, p["topic"])
		if err != nil {
			return nil, err
		}
		path, err := b.Docs.Write(ctx, p["filename"], content)
		if err != nil {
			return nil, err
		}
		b.Log.Infow("article written", "path", path, "topic", p["topic"])
		return Outputs{OutputFilePath: path, OutputGeneratedContent: content}, nil
	}
}

// createDocumentFn builds documents of a fixed or parameterized type.
func createDocumentFn(b Backends, fixedType string) HandlerFunc {
	return func(ctx context.Context, p Params) (Outputs, error) {
		docType := fixedType
		if docType == "" {
			docType = p["document_type"]
		}
		content, err := b.Content.GenerateDocument(ctx, docType, p["topic"])
		if err != nil {
			return nil, err
		}
		path, err := b.Docs.Write(ctx, p["filename"], content)
		if err != nil {
			return nil, err
		}
		return Outputs{OutputFilePath: path, OutputGeneratedContent: content}, nil
	}
}

func clickAtFn(b Backends) HandlerFunc {
	return func(ctx context.Context, p Params) (Outputs, error) {
		x, errX := strconv.Atoi(p["x"])
		y, errY := strconv.Atoi(p["y"])
		if errX != nil || errY != nil {
			return nil, NewError(models.ErrInvalidParameters,
				"click_at needs integer coordinates, got x=%q y=%q", p["x"], p["y"])
		}
		return nil, b.Desktop.ClickAt(ctx, x, y)
	}
}

// analyzeCommandFn is the catch-all: it reports what the analyzer makes of
// the command instead of acting on it.
func analyzeCommandFn() HandlerFunc {
	return func(ctx context.Context, p Params) (Outputs, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a := intent.Analyze(p["command"])
		data, err := json.Marshal(a)
		if err != nil {
			return nil, NewError(models.ErrInternal, "marshal analysis: %v", err)
		}
		return Outputs{OutputAnalysis: string(data)}, nil
	}
}
