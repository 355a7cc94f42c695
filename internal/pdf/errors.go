package pdf

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBackend = errors.New("unknown pdf backend")
	ErrEmptyOutput    = errors.New("backend produced no pdf")
)

// RenderError 是渲染对外暴露的唯一失败类型，
// 出错时不返回不完整的文档。
type RenderError struct {
	Backend string
	Err     error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render pdf (%s): %v", e.Backend, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Warning 描述渲染过程中被跳过但不影响整体结果的问题（例如照片无效）。
type Warning struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
