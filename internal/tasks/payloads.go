package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"cvstudio/internal/pdf"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCVRender = "cv:render"
)

// CVRenderPayload 描述一次异步渲染。
type CVRenderPayload struct {
	CVID          uint       `json:"cv_id"`
	CorrelationID string     `json:"correlation_id"`
	Options       pdf.Params `json:"options"`
}

// NewCVRenderTask 构造一个新的简历 PDF 渲染任务。
func NewCVRenderTask(payload CVRenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal render payload: %w", err)
	}
	return asynq.NewTask(TypeCVRender, data, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute)), nil
}

// ParseCVRenderPayload 解码 TypeCVRender 任务的载荷。
func ParseCVRenderPayload(t *asynq.Task) (CVRenderPayload, error) {
	var payload CVRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("unmarshal render payload: %w", err)
	}
	if payload.CVID == 0 {
		return payload, fmt.Errorf("render payload has no cv id: %w", asynq.SkipRetry)
	}
	return payload, nil
}
