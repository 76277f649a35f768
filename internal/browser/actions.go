package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page adapts a Playwright page to chat.Page. Probes report misses instead
// of errors; actions wrap the Playwright error.
type Page struct {
	page          playwright.Page
	actionTimeout time.Duration
	typeDelay     time.Duration
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (p *Page) URL() string {
	return p.page.URL()
}

func (p *Page) Visible(ctx context.Context, selector string, timeout time.Duration) bool {
	return p.wait(ctx, selector, timeout, playwright.WaitForSelectorStateVisible)
}

func (p *Page) Exists(ctx context.Context, selector string, timeout time.Duration) bool {
	return p.wait(ctx, selector, timeout, playwright.WaitForSelectorStateAttached)
}

func (p *Page) wait(ctx context.Context, selector string, timeout time.Duration, state *playwright.WaitForSelectorState) bool {
	loc := p.page.Locator(selector).First()
	if timeout <= 0 {
		ok, err := withContext(ctx, func() (bool, error) {
			if state == playwright.WaitForSelectorStateVisible {
				return loc.IsVisible()
			}
			n, err := loc.Count()
			return n > 0, err
		})
		return err == nil && ok
	}
	_, err := withContext(ctx, func() (struct{}, error) {
		return struct{}{}, loc.WaitFor(playwright.LocatorWaitForOptions{
			State:   state,
			Timeout: ms(timeout),
		})
	})
	return err == nil
}

// Click clicks the first element matching selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: ms(p.actionTimeout),
	})
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type presses each character of text so the target's own key handlers run.
func (p *Page) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay:   ms(p.typeDelay),
		Timeout: ms(p.actionTimeout + time.Duration(len(text))*p.typeDelay),
	})
	if err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

// Press sends a key chord to the focused element.
func (p *Page) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("press %s failed: %w", key, err)
	}
	return nil
}

// LastText returns the inner text of the last element matching selector,
// which is the newest message in a chat transcript.
func (p *Page) LastText(ctx context.Context, selector string) (string, error) {
	return withContext(ctx, func() (string, error) {
		loc := p.page.Locator(selector)
		n, err := loc.Count()
		if err != nil || n == 0 {
			return "", err
		}
		return loc.Nth(n - 1).InnerText(playwright.LocatorInnerTextOptions{
			Timeout: ms(p.actionTimeout),
		})
	})
}

func (p *Page) Count(ctx context.Context, selector string) int {
	n, err := withContext(ctx, func() (int, error) {
		return p.page.Locator(selector).Count()
	})
	if err != nil {
		return 0
	}
	return n
}

func (p *Page) Screenshot(ctx context.Context, path string) error {
	_, err := withContext(ctx, func() ([]byte, error) {
		return p.page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(false),
		})
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}
