package adapt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"cvstudio/internal/metrics"
	"cvstudio/internal/resume"
)

// ErrDisabled 表示未配置补全 API。
var ErrDisabled = errors.New("cv adaptation is not configured")

// Request 请求把 cv 按岗位改写。SessionID 为空时
// 开启新的对话。
type Request struct {
	SessionID string
	CV        resume.CV
	Posting   JobPosting
	Locale    resume.Locale
}

// Result 携带模型输出以及据此重建的 CV。
type Result struct {
	SessionID string           `json:"session_id"`
	Adapted   resume.AdaptedCV `json:"adapted"`
	CV        resume.CV        `json:"cv"`
}

// Gateway 负责与补全 API 的对话。
type Gateway struct {
	logger    *slog.Logger
	completer Completer
	sessions  SessionStore
	fetcher   *PostingFetcher
	limiter   *rate.Limiter
}

type GatewayOption func(*Gateway)

// WithRatePerMinute 限制对外补全调用的频率。
func WithRatePerMinute(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// WithFetcher 替换岗位抓取器。
func WithFetcher(f *PostingFetcher) GatewayOption {
	return func(g *Gateway) { g.fetcher = f }
}

// NewGateway 组装网关。completer 为 nil 时，Adapt
// 总是返回 ErrDisabled。
func NewGateway(logger *slog.Logger, completer Completer, sessions SessionStore, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		logger:    logger,
		completer: completer,
		sessions:  sessions,
		fetcher:   NewPostingFetcher(0),
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled 表示是否配置了 completer。
func (g *Gateway) Enabled() bool { return g.completer != nil }

// Adapt 按 req.Posting 改写 req.CV。会话历史随请求发送，
// 仅当回复合法时才追加本轮对话。
func (g *Gateway) Adapt(ctx context.Context, req Request) (*Result, error) {
	if g.completer == nil {
		return nil, ErrDisabled
	}

	posting, err := g.fetcher.Resolve(ctx, req.Posting)
	if err != nil {
		metrics.ObserveAdapt("bad_posting")
		return nil, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := g.logger.With(slog.String("session_id", sessionID))

	history, err := g.sessions.Load(ctx, sessionID)
	if err != nil {
		metrics.ObserveAdapt("error")
		return nil, err
	}

	prompt, err := buildPrompt(resume.ToAdapted(req.CV, req.Locale), posting)
	if err != nil {
		metrics.ObserveAdapt("error")
		return nil, err
	}
	user := Message{Role: RoleUser, Content: prompt}

	if err := g.limiter.Wait(ctx); err != nil {
		metrics.ObserveAdapt("rate_limited")
		return nil, fmt.Errorf("wait for completion slot: %w", err)
	}

	start := time.Now()
	reply, err := g.completer.Complete(ctx, append(history, user))
	if err != nil {
		metrics.ObserveAdapt("error")
		logger.Error("completion failed", slog.Any("error", err))
		return nil, fmt.Errorf("complete adaptation: %w", err)
	}

	adapted, err := ParseResponse(reply)
	if err != nil {
		metrics.ObserveAdapt("invalid")
		logger.Warn("completion returned an invalid cv", slog.Any("error", err))
		return nil, err
	}

	if err := g.sessions.Append(ctx, sessionID, user, Message{Role: RoleModel, Content: cleanJSONBlock(reply)}); err != nil {
		logger.Warn("store session history failed", slog.Any("error", err))
	}

	metrics.ObserveAdapt("ok")
	logger.Info("cv adapted",
		slog.Int("history", len(history)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		SessionID: sessionID,
		Adapted:   adapted,
		CV:        resume.ApplyAdapted(req.CV, adapted, req.Locale),
	}, nil
}

// ClearSession 清空会话历史。
func (g *Gateway) ClearSession(ctx context.Context, sessionID string) error {
	return g.sessions.Clear(ctx, sessionID)
}

func buildPrompt(cv resume.AdaptedCV, p JobPosting) (string, error) {
	data, err := json.MarshalIndent(cv, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode cv for prompt: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("My CV data:\n")
	sb.Write(data)
	sb.WriteString("\n\nThe job posting I want to apply to:\n")
	sb.WriteString(strings.TrimSpace(p.Raw))
	if p.Name != "" {
		sb.WriteString("\n\nJob title: " + p.Name)
	}
	if p.Company != "" {
		sb.WriteString("\n\nHiring company: " + p.Company)
	}
	if p.Origin != "" {
		sb.WriteString("\n\nPosting source: " + p.Origin)
	}
	sb.WriteString("\n\nAnalyse this posting and adapt my CV to highlight the most relevant skills and " +
		"experience. Keep every piece of information from the original CV, but reorder and rephrase " +
		"sections to maximise relevance. Do not invent experience. Reply with a JSON object of the form " +
		`{"cv": {...}} where the inner object has exactly the same structure as my CV data.`)
	return sb.String(), nil
}
