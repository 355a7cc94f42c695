package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cvstudio/internal/resume"
)

// loadCV 读取 JSON 或 YAML 格式的简历（按扩展名判断，"-" 表示从标准输入读取 JSON），
// 并完成清洗与校验。
func loadCV(path string, stdin io.Reader) (resume.CV, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return resume.CV{}, fmt.Errorf("read %s: %w", path, err)
	}

	cv, err := decodeCV(data, formatOf(path))
	if err != nil {
		return cv, fmt.Errorf("decode %s: %w", path, err)
	}
	cv.ID = 0
	cv.Sanitize()
	if err := cv.Validate(); err != nil {
		return cv, fmt.Errorf("%s: %w", path, err)
	}
	return cv, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func decodeCV(data []byte, format string) (resume.CV, error) {
	var cv resume.CV
	if format == "yaml" {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cv); err != nil && err != io.EOF {
			return cv, err
		}
		return cv, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return cv, dec.Decode(&cv)
}

func encodeCV(w io.Writer, cv resume.CV, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cv); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cv)
}
