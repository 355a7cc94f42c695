package resume

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// 所有 *ValidationError 都匹配 ErrValidation。
var ErrValidation = errors.New("invalid cv")

// FieldError 描述一个被拒绝的字段。
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidationError 列出 CV 中所有被拒绝的字段。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Param != "" {
			parts = append(parts, fmt.Sprintf("%s (%s=%s)", f.Field, f.Rule, f.Param))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}
	return "invalid cv: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 检查必填与长度受限的字段以及跨条目规则
// （ref 唯一、技能分组指向存在的条目）。
func (cv *CV) Validate() error {
	var fields []FieldError

	if err := validate.Struct(cv); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate cv: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field: strings.TrimPrefix(fe.Namespace(), "CV."),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
	}

	refs := make(map[string]struct{}, len(cv.Entries))
	for i, e := range cv.Entries {
		if e.Ref == "" {
			continue
		}
		if _, dup := refs[e.Ref]; dup {
			fields = append(fields, FieldError{Field: "Entries[" + strconv.Itoa(i) + "].Ref", Rule: "unique"})
			continue
		}
		refs[e.Ref] = struct{}{}
	}
	for i, g := range cv.Skills {
		for _, ref := range g.EntryRefs {
			if _, ok := refs[ref]; !ok {
				fields = append(fields, FieldError{
					Field: "Skills[" + strconv.Itoa(i) + "].EntryRefs",
					Rule:  "unknown_entry",
					Param: ref,
				})
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

var strictPolicy = bluemonday.StrictPolicy()

const maxSanitizePasses = 4

// SanitizeText 去除标签并返回纯文本（实体已解码）。
// 多层转义的输入会反复处理直到结果不再变化，因此重复调用结果一致。
func SanitizeText(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := sanitizeOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func sanitizeOnce(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(html.UnescapeString(s))))
}

// Sanitize 去除所有自由文本字段中的标记，并为没有 ref 的
// 条目分配 ref。
func (cv *CV) Sanitize() {
	p := &cv.Personal
	for _, f := range []*string{&p.Name, &p.Headline, &p.Email, &p.Phone, &p.Location, &p.LinkedIn, &p.Website, &p.Summary} {
		*f = SanitizeText(*f)
	}

	for i := range cv.Entries {
		e := &cv.Entries[i]
		for _, f := range []*string{&e.Ref, &e.Title, &e.Organization, &e.Subtitle, &e.Location, &e.Duration, &e.Description, &e.Tech, &e.Grade} {
			*f = SanitizeText(*f)
		}
		e.Category = Category(strings.ToLower(strings.TrimSpace(string(e.Category))))
		e.Bullets = sanitizeList(e.Bullets)
		if e.Ref == "" {
			e.Ref = DefaultRef(i)
		}
	}

	for i := range cv.Skills {
		g := &cv.Skills[i]
		g.Category = SanitizeText(g.Category)
		g.Items = sanitizeList(g.Items)
		for j := range g.EntryRefs {
			g.EntryRefs[j] = strings.TrimSpace(g.EntryRefs[j])
		}
	}

	for i := range cv.Links {
		cv.Links[i].Kind = SanitizeText(cv.Links[i].Kind)
		cv.Links[i].URL = strings.TrimSpace(cv.Links[i].URL)
	}
}

// DefaultRef 是调用方未提供时第 i 个条目获得的 ref。
func DefaultRef(i int) string {
	return "entry-" + strconv.Itoa(i+1)
}

func sanitizeList(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, SanitizeText(item))
	}
	return out
}
