package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cvstudio/internal/pdf"
)

// 通知状态。
const (
	NotifyCompleted = "completed"
	NotifyError     = "error"
)

// RenderNotifyMessage 是通过 Redis Pub/Sub 转发给 WebSocket 客户端的渲染结果消息。
type RenderNotifyMessage struct {
	Status        string        `json:"status"`
	CVID          uint          `json:"cv_id"`
	CorrelationID string        `json:"correlation_id"`
	ErrorCode     int           `json:"error_code"`
	ErrorMessage  string        `json:"error_message"`
	Filename      string        `json:"filename,omitempty"`
	Warnings      []pdf.Warning `json:"warnings,omitempty"`
}

// NotifyChannel 是传递 cvID 渲染结果的 pub/sub 频道。
func NotifyChannel(cvID uint) string {
	return fmt.Sprintf("cv_notify:%d", cvID)
}

// PublishNotify 在 msg.CVID 对应的频道上发送 msg。
func PublishNotify(ctx context.Context, client *redis.Client, msg RenderNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(msg.CVID)
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
