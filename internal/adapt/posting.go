package adapt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrEmptyPosting 表示岗位既无文本也无 URL。
	ErrEmptyPosting = errors.New("job posting has no text or url")
	// ErrPostingUnavailable 包装所有从岗位 URL 获取文本的失败。
	ErrPostingUnavailable = errors.New("job posting unavailable")
)

// errBlockedAddress 表示目标解析到了内网、回环或链路本地地址。
var errBlockedAddress = errors.New("address not allowed")

const (
	maxPostingBytes     = 2 << 20
	maxPostingRedirects = 5
)

// JobPosting 描述 CV 所要适配的岗位。
type JobPosting struct {
	Raw     string `json:"raw"`
	URL     string `json:"url"`
	Company string `json:"company"`
	Name    string `json:"name"`
	Origin  string `json:"origin"`
}

// PostingFetcher 按 URL 下载职位描述。
// 只连接公网地址：校验发生在 DNS 解析之后的拨号阶段，重定向同样受约束。
type PostingFetcher struct {
	client    *http.Client
	userAgent string
	// allowAddr 决定拨号目标是否可达，默认只放行公网地址。
	allowAddr func(netip.Addr) bool
}

func NewPostingFetcher(timeout time.Duration) *PostingFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &PostingFetcher{
		userAgent: "Mozilla/5.0 (compatible; cvstudio/1.0)",
		allowAddr: isPublicAddr,
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   f.controlDial,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// 走代理时拨号对象是代理本身，校验会失效
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	f.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxPostingRedirects {
				return fmt.Errorf("stopped after %d redirects", maxPostingRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
	}
	return f
}

// controlDial 在连接建立前检查已解析的 IP。
func (f *PostingFetcher) controlDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !f.allowAddr(addr.Unmap()) {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast() &&
		!addr.IsUnspecified()
}

// Resolve 在 Raw 为空时从 URL 抓取并填充 Raw。
func (f *PostingFetcher) Resolve(ctx context.Context, p JobPosting) (JobPosting, error) {
	if strings.TrimSpace(p.Raw) != "" {
		return p, nil
	}
	if strings.TrimSpace(p.URL) == "" {
		return p, ErrEmptyPosting
	}

	u, err := url.Parse(p.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return p, fmt.Errorf("%w: invalid url %q", ErrPostingUnavailable, p.URL)
	}
	if addr, err := netip.ParseAddr(u.Hostname()); err == nil && !f.allowAddr(addr.Unmap()) {
		return p, fmt.Errorf("%w: %w: %s", ErrPostingUnavailable, errBlockedAddress, addr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return p, fmt.Errorf("build posting request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrPostingUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return p, fmt.Errorf("%w: http status %d", ErrPostingUnavailable, resp.StatusCode)
	}

	text, err := ExtractPostingText(io.LimitReader(resp.Body, maxPostingBytes))
	if err != nil {
		return p, fmt.Errorf("%w: %w", ErrPostingUnavailable, err)
	}
	if text == "" {
		return p, fmt.Errorf("%w: no text at %s", ErrPostingUnavailable, p.URL)
	}

	p.Raw = text
	if p.Origin == "" {
		p.Origin = u.Host
	}
	return p, nil
}

var postingSelectors = []string{
	".job-description",
	"#job-description",
	".description",
	"[data-testid=jobDescriptionText]",
	"main",
	"article",
}

// ExtractPostingText 返回岗位页面的可读文本。
func ExtractPostingText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse posting html: %w", err)
	}
	doc.Find("script, style, noscript, nav, footer, header, form").Remove()

	content := doc.Find("body")
	for _, sel := range postingSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			content = found.First()
			break
		}
	}

	var lines []string
	for _, line := range strings.Split(blockText(content), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "hr": true, "li": true, "main": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "td": true, "th": true,
	"tr": true, "ul": true,
}

// blockText 拼接文本节点，并在块级元素结束处换行，避免相邻段落粘连。
func blockText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			name := goquery.NodeName(child)
			if name == "#text" {
				sb.WriteString(child.Text())
				return
			}
			walk(child)
			if blockElements[name] {
				sb.WriteByte('\n')
			}
		})
	}
	walk(sel)
	return sb.String()
}
