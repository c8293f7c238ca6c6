// Package browser drives a real Chrome tab showing the interview page, through the DevTools protocol.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/alanbriolat/interview-archiver"
)

type LaunchOptions struct {
	// Run the browser without a window. Start with --headless=false to see the page, e.g. to log in by hand before
	// harvesting.
	Headless bool
	// DevTools websocket URL of an already running browser. When set, no browser is started.
	RemoteURL string
}

// Launch starts (or attaches to) a browser and opens a new tab. Cancelling the returned function closes the tab and,
// if it was started here, the browser.
func Launch(ctx context.Context, opts LaunchOptions) (context.Context, context.CancelFunc) {
	log := interview_archiver.Logger(ctx).Sugar().Named("browser")
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		log.Infof("Attaching to browser at %s", opts.RemoteURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Debugf),
		chromedp.WithErrorf(log.Errorf),
	)
	return tabCtx, func() {
		tabCancel()
		allocCancel()
	}
}

// Navigate loads url in the tab and waits for the document to finish loading.
func Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
