package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BackendChromedp 通过 chromedp 打印 HTML 版本。
const BackendChromedp = "chromedp"

type ChromedpBackend struct {
	ExecPath string
	Timeout  time.Duration
}

func NewChromedpBackend(execPath string, timeout time.Duration) *ChromedpBackend {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromedpBackend{ExecPath: execPath, Timeout: timeout}
}

func (b *ChromedpBackend) Name() string { return BackendChromedp }

func (b *ChromedpBackend) Render(ctx context.Context, doc *Document) ([]byte, error) {
	htmlContent, err := RenderHTML(doc)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, b.Timeout)
	defer cancel()

	var pdfBuf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(doc.Page.WidthIn()).
				WithPaperHeight(doc.Page.HeightIn()).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print via chromedp: %w", err)
	}
	return pdfBuf, nil
}
