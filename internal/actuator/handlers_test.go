package actuator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// fake backends for handler tests

type fakeDesktop struct {
	opened []string
	typed  []string
	keys   []string
}

func (d *fakeDesktop) OpenApplication(ctx context.Context, name string) error {
	d.opened = append(d.opened, name)
	return nil
}
func (d *fakeDesktop) TypeText(ctx context.Context, text string) error {
	d.typed = append(d.typed, text)
	return nil
}
func (d *fakeDesktop) PressKey(ctx context.Context, key string) error {
	d.keys = append(d.keys, key)
	return nil
}
func (d *fakeDesktop) ClickAt(ctx context.Context, x, y int) error { return nil }

type fakeScreen struct{ path string }

func (s *fakeScreen) Capture(ctx context.Context) (string, error) { return s.path, nil }

type fakeBrowser struct {
	opened   bool
	searches []string
	urls     []string
}

func (b *fakeBrowser) Open(ctx context.Context) error { b.opened = true; return nil }
func (b *fakeBrowser) NavigateTo(ctx context.Context, url string) error {
	b.urls = append(b.urls, url)
	return nil
}
func (b *fakeBrowser) Search(ctx context.Context, query, site string) error {
	b.searches = append(b.searches, query+"@"+site)
	return nil
}
func (b *fakeBrowser) Close() error { return nil }

type fakeDocs struct{ written map[string]string }

func (d *fakeDocs) Write(ctx context.Context, filename, content string) (string, error) {
	if d.written == nil {
		d.written = make(map[string]string)
	}
	d.written[filename] = content
	return "/docs/" + filename, nil
}

type fakeFS struct{ saved map[string]string }

func (f *fakeFS) Save(ctx context.Context, path, content string) error {
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[path] = content
	return nil
}
func (f *fakeFS) Exists(ctx context.Context, path string) (bool, error) { return true, nil }
func (f *fakeFS) Copy(ctx context.Context, src, dst string) error       { return nil }
func (f *fakeFS) Move(ctx context.Context, src, dst string) error       { return nil }
func (f *fakeFS) Delete(ctx context.Context, path string) error         { return nil }

type fakeContent struct{}

func (c *fakeContent) GenerateArticle(ctx context.Context, topic string) (string, error) {
	return "article about " + topic, nil
}
func (c *fakeContent) GenerateDocument(ctx context.Context, docType, topic string) (string, error) {
	return docType + " about " + topic, nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeDesktop, *fakeBrowser, *fakeDocs) {
	t.Helper()
	desktop := &fakeDesktop{}
	browser := &fakeBrowser{}
	docs := &fakeDocs{}
	r := NewRegistry()
	RegisterDefaults(r, Backends{
		Desktop: desktop,
		Screen:  &fakeScreen{path: "/shots/1.png"},
		Browser: browser,
		Docs:    docs,
		FS:      &fakeFS{},
		Content: &fakeContent{},
	})
	return r, desktop, browser, docs
}

func TestDefaultsCoverMinimumHandlerSet(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	required := []string{
		"open_application", "open_notepad", "open_notepad_create_file_write_article",
		"type_content", "type_text", "append_text", "press_key", "click_at",
		"take_screenshot", "open_browser", "search_product", "navigate_to",
		"create_document", "create_article", "create_leave_letter", "create_resume",
		"save_file", "analyze_command",
	}
	for _, action := range required {
		if _, ok := r.Lookup(action); !ok {
			t.Errorf("handler %q not registered", action)
		}
	}
}

func TestTakeScreenshotOutput(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	out, err := r.Dispatch(context.Background(), "take_screenshot", nil)
	require.NoError(t, err)
	assert.Equal(t, "/shots/1.png", out[OutputScreenshotPath])
}

func TestCompositeArticleHandler(t *testing.T) {
	r, desktop, _, docs := newTestRegistry(t)
	out, err := r.Dispatch(context.Background(), "open_notepad_create_file_write_article",
		Params{"topic": "ai", "filename": "new.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"notepad"}, desktop.opened)
	assert.Contains(t, docs.written, "new.txt")
	assert.Equal(t, "/docs/new.txt", out[OutputFilePath])
	assert.Contains(t, out[OutputGeneratedContent], "ai")
}

func TestGenerateArticleContentOutput(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	out, err := r.Dispatch(context.Background(), "generate_article_content", Params{"topic": "quantum computing"})
	require.NoError(t, err)
	assert.Equal(t, "article about quantum computing", out[OutputGeneratedContent])
}

func TestSearchProductPassesSite(t *testing.T) {
	r, _, browser, _ := newTestRegistry(t)
	_, err := r.Dispatch(context.Background(), "search_product", Params{"product": "iphone", "site": "flipkart"})
	require.NoError(t, err)
	require.Len(t, browser.searches, 1)
	assert.Equal(t, "iphone@flipkart", browser.searches[0])
}

func TestClickAtRejectsBadCoordinates(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	_, err := r.Dispatch(context.Background(), "click_at", Params{"x": "ten", "y": "20"})
	assert.Equal(t, models.ErrInvalidParameters, KindOf(err))
}

func TestAnalyzeCommandOutput(t *testing.T) {
	r, _, _, _ := newTestRegistry(t)
	out, err := r.Dispatch(context.Background(), "analyze_command", Params{"command": "take a screenshot"})
	require.NoError(t, err)
	if !strings.Contains(out[OutputAnalysis], "complexity") {
		t.Errorf("analysis output missing fields: %s", out[OutputAnalysis])
	}
}
