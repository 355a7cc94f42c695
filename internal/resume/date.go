package resume

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Date 是不含时刻的日历日期，始终以 UTC 保存。
// JSON 与 YAML 接受 "2006-01-02"、"2006-01" 以及 RFC 3339。
type Date struct {
	time.Time
}

var dateLayouts = []string{"2006-01-02", "2006-01", time.RFC3339}

// NewDate 构造 UTC 日期。
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf 把 t 截断到 UTC 日历日。
func DateOf(t time.Time) *Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate 按可接受的格式之一解析。
func ParseDate(raw string) (*Date, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DateOf(t), nil
		}
	}
	return nil, fmt.Errorf("parse date %q: expected YYYY-MM-DD, YYYY-MM or RFC 3339", raw)
}

// String 以 YYYY-MM-DD 形式输出日期。
func (d Date) String() string {
	return d.UTC().Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDate(node.Value)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// TimePtr 把可选日期转换为可选时间，用于持久化。
func (d *Date) TimePtr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.UTC()
	return &t
}

// DatePtr 是 TimePtr 的逆操作。
func DatePtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return DateOf(*t)
}
