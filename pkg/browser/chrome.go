// Package browser is the chromedp-backed automation layer. It owns the
// real Chrome processes: one per acquired account session, launched with
// that account's persistent user data directory so the platform's login
// cookies carry across runs. Everything above this package talks to the
// session and engine interfaces and never sees a DevTools context.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"croon/pkg/session"
)

// Default driver timings.
const (
	DefaultPageLoadTimeout = 30 * time.Second
	DefaultSubmitTimeout   = 20 * time.Second

	// sessionCookie is the platform's auth cookie, present once the
	// profile's stored login is accepted.
	sessionCookie = "__session"

	// cookiePollInterval paces AuthToken's wait for the login redirect
	// to land the session cookie.
	cookiePollInterval = 500 * time.Millisecond
)

// Config controls how Chrome is launched and where the creation page
// lives.
type Config struct {
	// ExecPath overrides the Chrome binary location. Empty means
	// chromedp's default lookup.
	ExecPath string

	// Headless runs Chrome without a window. Headed is the default:
	// the platform's bot detection is harsher on headless fingerprints
	// and a visible window lets the operator rescue a stuck login.
	Headless bool

	// CreateURL is the creation page, also used for token discovery.
	CreateURL string

	UserAgent       string
	PageLoadTimeout time.Duration
	SubmitTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.CreateURL == "" {
		c.CreateURL = "https://suno.com/create"
	}
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = DefaultSubmitTimeout
	}
	return c
}

// Driver launches Chrome instances. Implements session.Browser.
type Driver struct {
	cfg Config
}

// NewDriver builds a Driver from cfg, filling defaults.
func NewDriver(cfg Config) *Driver {
	return &Driver{cfg: cfg.withDefaults()}
}

// Launch starts Chrome against the given profile directory and waits for
// the first page load. The returned handle outlives ctx: ctx bounds the
// launch only, and the browser runs until Close.
func (d *Driver) Launch(ctx context.Context, profileDir string) (session.Handle, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	if d.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.cfg.UserAgent))
	}

	// The allocator parents on Background, not ctx: the session's
	// lifetime is managed by Close, not by whoever called Launch.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	h := &Handle{
		cfg:           d.cfg,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}

	loadCtx, cancel := context.WithTimeout(browserCtx, d.cfg.PageLoadTimeout)
	defer cancel()
	if err := chromedp.Run(loadCtx,
		network.Enable(),
		chromedp.Navigate(d.cfg.CreateURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		h.Close()
		return nil, fmt.Errorf("open %s: %w", d.cfg.CreateURL, err)
	}
	if err := ctx.Err(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// Handle is one running Chrome instance bound to an account profile.
type Handle struct {
	cfg           Config
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// AuthToken polls the browser's cookie jar for the platform session
// cookie. The profile's stored login normally lands it during the first
// page load; a freshly logged-out profile never will, and the caller's
// ctx deadline converts that into a failure.
func (h *Handle) AuthToken(ctx context.Context) (string, error) {
	for {
		var cookies []*network.Cookie
		err := chromedp.Run(h.browserCtx, chromedp.ActionFunc(func(cctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{h.cfg.CreateURL}).Do(cctx)
			return err
		}))
		if err != nil {
			return "", fmt.Errorf("read cookies: %w", err)
		}
		for _, c := range cookies {
			if c.Name == sessionCookie && c.Value != "" {
				return c.Value, nil
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("no %s cookie: %w", sessionCookie, ctx.Err())
		case <-time.After(cookiePollInterval):
		}
	}
}

// NewTab opens a fresh tab on the creation page.
func (h *Handle) NewTab(ctx context.Context) (session.Tab, error) {
	tabCtx, cancelTab := chromedp.NewContext(h.browserCtx)

	loadCtx, cancel := context.WithTimeout(tabCtx, h.cfg.PageLoadTimeout)
	defer cancel()
	if err := chromedp.Run(loadCtx,
		chromedp.Navigate(h.cfg.CreateURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		cancelTab()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	if err := ctx.Err(); err != nil {
		cancelTab()
		return nil, err
	}
	return &Tab{ctx: tabCtx, cancel: cancelTab, cfg: h.cfg}, nil
}

// Healthy probes the browser process with a trivial evaluation.
func (h *Handle) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(h.browserCtx, 5*time.Second)
	defer cancel()
	var ready string
	err := chromedp.Run(probeCtx, chromedp.Evaluate(`document.readyState`, &ready))
	return err == nil && ctx.Err() == nil
}

// Close shuts the browser down. Cancelling the chromedp context kills
// the Chrome process; profile data is already on disk.
func (h *Handle) Close() error {
	h.cancelBrowser()
	h.cancelAlloc()
	return nil
}

// Tab is one creation-page tab. Implements session.Tab; the form filler
// downcasts to reach the DevTools context.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
}

// Healthy reports whether the tab still answers DevTools commands.
func (t *Tab) Healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(t.ctx, 5*time.Second)
	defer cancel()
	var ready string
	err := chromedp.Run(probeCtx, chromedp.Evaluate(`document.readyState`, &ready))
	return err == nil && ctx.Err() == nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	t.cancel()
	return nil
}
