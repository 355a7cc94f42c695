package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BackendRod 通过 go-rod 打印 HTML 版本。
const BackendRod = "rod"

// RodBackend 使用 go-rod 在无头浏览器中打印文档 HTML。
type RodBackend struct {
	// Bin 指定 Chromium 可执行文件；为空时使用 launcher.LookPath。
	Bin     string
	Timeout time.Duration
}

func NewRodBackend(bin string, timeout time.Duration) *RodBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RodBackend{Bin: bin, Timeout: timeout}
}

func (b *RodBackend) Name() string { return BackendRod }

func (b *RodBackend) Render(ctx context.Context, doc *Document) ([]byte, error) {
	htmlContent, err := RenderHTML(doc)
	if err != nil {
		return nil, err
	}

	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if b.Bin != "" {
		launch = launch.Bin(b.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	defer launch.Cleanup()

	browser := rod.New().Context(ctx).ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Timeout(b.Timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	page = page.Timeout(b.Timeout)
	if err := page.SetDocumentContent(htmlContent); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	// 等待字体就绪，避免回退字体度量导致排版差异
	_, _ = page.Eval(fontsReadyJS)

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(doc.Page.WidthIn()),
		PaperHeight:       float64Ptr(doc.Page.HeightIn()),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}

	return data, nil
}

const fontsReadyJS = `() => {
  if (document.fonts && document.fonts.ready) {
    return Promise.race([
      document.fonts.ready.then(() => true),
      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
    ]);
  }
  return true;
}`

func float64Ptr(value float64) *float64 {
	return &value
}
