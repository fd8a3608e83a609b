package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"croon/pkg/catalog"
	"croon/pkg/engine"
	"croon/pkg/session"
)

// locationPollInterval paces the wait for the post-submit redirect.
const locationPollInterval = 250 * time.Millisecond

// Filler drives the platform's creation form inside a tab: switch to
// custom mode, fill lyrics, style and title, submit, and read the new
// song's ID off the redirect URL. Implements engine.FormFiller.
type Filler struct {
	cfg Config
}

// NewFiller builds a form filler sharing the driver's configuration.
func NewFiller(cfg Config) *Filler {
	return &Filler{cfg: cfg.withDefaults()}
}

// Fill submits one work item through the given tab.
func (f *Filler) Fill(ctx context.Context, tab session.Tab, item catalog.WorkItem) (engine.SubmissionRef, error) {
	ct, ok := tab.(*Tab)
	if !ok {
		return engine.SubmissionRef{}, fmt.Errorf("tab is %T, not a browser tab", tab)
	}

	fillCtx, cancel := context.WithTimeout(ct.ctx, f.cfg.PageLoadTimeout)
	defer cancel()

	if err := f.ensureCustomMode(fillCtx); err != nil {
		return engine.SubmissionRef{}, fmt.Errorf("custom mode: %w", err)
	}
	if err := setField(fillCtx, selLyricsTextarea, item.Lyrics); err != nil {
		return engine.SubmissionRef{}, fmt.Errorf("lyrics: %w", err)
	}
	if err := setField(fillCtx, selStyleTextarea, item.Style); err != nil {
		return engine.SubmissionRef{}, fmt.Errorf("style: %w", err)
	}
	// Title is optional on the form; the platform names untitled songs.
	if item.Title != "" {
		if err := setField(fillCtx, selTitleInput, item.Title); err != nil {
			return engine.SubmissionRef{}, fmt.Errorf("title: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return engine.SubmissionRef{}, err
	}

	id, err := f.submit(ctx, ct)
	if err != nil {
		return engine.SubmissionRef{}, err
	}
	return engine.SubmissionRef{ID: id}, nil
}

// ensureCustomMode clicks the Custom toggle unless it is already
// pressed. A page without the toggle is treated as already in custom
// mode; the form selectors below fail loudly if that guess is wrong.
func (f *Filler) ensureCustomMode(ctx context.Context) error {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx,
		chromedp.Nodes(selCustomButton, &nodes, chromedp.BySearch, chromedp.AtLeast(0)),
	); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	if pressed, ok := nodes[0].Attribute("aria-pressed"); ok && pressed == "true" {
		return nil
	}
	return chromedp.Run(ctx, chromedp.Click(selCustomButton, chromedp.BySearch))
}

// setField clears a form control and types the value into it.
func setField(ctx context.Context, sel, value string) error {
	return chromedp.Run(ctx,
		chromedp.WaitVisible(sel, chromedp.BySearch),
		chromedp.Click(sel, chromedp.BySearch),
		chromedp.SetValue(sel, "", chromedp.BySearch),
		chromedp.SendKeys(sel, value, chromedp.BySearch),
	)
}

// submit clicks the create button and waits for the redirect to the new
// song's page, whose URL carries the submission ID.
func (f *Filler) submit(ctx context.Context, ct *Tab) (string, error) {
	submitCtx, cancel := context.WithTimeout(ct.ctx, f.cfg.SubmitTimeout)
	defer cancel()

	if err := chromedp.Run(submitCtx, chromedp.Click(selCreateButton, chromedp.BySearch)); err != nil {
		return "", fmt.Errorf("create button: %w", err)
	}

	for {
		var loc string
		if err := chromedp.Run(submitCtx, chromedp.Location(&loc)); err != nil {
			return "", fmt.Errorf("read location: %w", err)
		}
		if id, err := songIDFromURL(loc); err == nil {
			return id, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-submitCtx.Done():
			return "", fmt.Errorf("no song redirect within %v", f.cfg.SubmitTimeout)
		case <-time.After(locationPollInterval):
		}
	}
}

// songIDFromURL extracts the song ID from a /song/<id> URL.
func songIDFromURL(u string) (string, error) {
	trimmed := strings.TrimRight(u, "/")
	marker := "/song/"
	i := strings.LastIndex(trimmed, marker)
	if i < 0 {
		return "", fmt.Errorf("url %q is not a song page", u)
	}
	id := trimmed[i+len(marker):]
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("url %q has no song id", u)
	}
	// Drop any query string the redirect tacked on.
	if j := strings.IndexByte(id, '?'); j >= 0 {
		id = id[:j]
	}
	if id == "" {
		return "", fmt.Errorf("url %q has no song id", u)
	}
	return id, nil
}
