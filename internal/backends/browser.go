package backends

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// RodBrowser drives a Chromium instance through go-rod. The browser is
// launched lazily on first use and reused for the life of the process.
type RodBrowser struct {
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
	log     *zap.SugaredLogger
}

// NewRodBrowser creates an unconnected browser backend.
func NewRodBrowser(log *zap.SugaredLogger) *RodBrowser {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RodBrowser{log: log}
}

// Open launches the browser if it is not already running.
func (b *RodBrowser) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensureLocked(ctx)
}

func (b *RodBrowser) ensureLocked(ctx context.Context) error {
	if b.browser != nil {
		return nil
	}
	u, err := launcher.New().Headless(false).Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	b.browser = browser
	b.log.Infow("browser launched")
	return nil
}

// NavigateTo opens the URL in the active page.
func (b *RodBrowser) NavigateTo(ctx context.Context, rawURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureLocked(ctx); err != nil {
		return err
	}
	if b.page == nil {
		page, err := b.browser.Page(proto.TargetCreateTarget{URL: rawURL})
		if err != nil {
			return fmt.Errorf("open page: %w", err)
		}
		b.page = page
	} else if err := b.page.Context(ctx).Navigate(rawURL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := b.page.Context(ctx).WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	b.log.Infow("browser navigated", "url", rawURL)
	return nil
}

// Search opens a search-results page for the query, on the named site when
// one is given.
func (b *RodBrowser) Search(ctx context.Context, query, site string) error {
	q := url.QueryEscape(query)
	target := "https://www.google.com/search?q=" + q
	if site != "" {
		target = fmt.Sprintf("https://www.%s.com/search?q=%s", site, q)
	}
	return b.NavigateTo(ctx, target)
}

// Close shuts the browser down.
func (b *RodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	b.page = nil
	return err
}
