package adapt

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"cvstudio/internal/resume"
)

// ErrInvalidResponse 表示模型回复不是合法的改写 CV。
var ErrInvalidResponse = errors.New("invalid adaptation response")

//go:embed adapted_cv.schema.json
var adaptedSchema string

var compiledSchema = mustCompile(adaptedSchema)

func mustCompile(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile adapted cv schema: %v", err))
	}
	return schema
}

// Schema 返回模型回复必须满足的 JSON schema。
func Schema() string { return adaptedSchema }

type envelope struct {
	CV resume.AdaptedCV `json:"cv"`
}

// ParseResponse 去掉代码块包裹，按内嵌 schema 校验回复
// 并解码。
func ParseResponse(raw string) (resume.AdaptedCV, error) {
	text := cleanJSONBlock(raw)
	if text == "" {
		return resume.AdaptedCV{}, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}

	result, err := compiledSchema.Validate(gojsonschema.NewStringLoader(text))
	if err != nil {
		return resume.AdaptedCV{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return resume.AdaptedCV{}, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(problems, "; "))
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return resume.AdaptedCV{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return env.CV, nil
}
