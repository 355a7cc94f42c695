package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	pdfPrefix   = "generated-cvs"
	photoPrefix = "cv-photos"
)

// PDFKey 为 cvID 生成的 PDF 返回新的对象 key。
func PDFKey(cvID uint) string {
	return fmt.Sprintf("%s/%d/%s.pdf", pdfPrefix, cvID, uuid.NewString())
}

// PhotoKey 为 cvID 的照片返回新的对象 key。
func PhotoKey(cvID uint, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d/%s.%s", photoPrefix, cvID, uuid.NewString(), ext)
}

// CVPrefixes 列出存放 cvID 对象的所有前缀。
func CVPrefixes(cvID uint) []string {
	return []string{
		fmt.Sprintf("%s/%d/", pdfPrefix, cvID),
		fmt.Sprintf("%s/%d/", photoPrefix, cvID),
	}
}

var keyPattern = regexp.MustCompile(`^(generated-cvs|cv-photos)/([0-9]+)/[0-9a-f-]{36}\.[a-z0-9]+$`)

// OwnedBy 表示 key 是否为 cvID 格式正确的对象 key。
func OwnedBy(key string, cvID uint) bool {
	m := keyPattern.FindStringSubmatch(key)
	return m != nil && m[2] == fmt.Sprint(cvID)
}
