package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"cvstudio/internal/api/middleware"
)

// readPhoto 读取 multipart 照片字段：拒绝空文件与超限文件，配置了 clamd 时先做病毒扫描。
func readPhoto(c *gin.Context, field string, maxBytes int64, clamdAddr string) ([]byte, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		BadRequest(c, "missing "+field)
		return nil, false
	}
	if file.Size == 0 {
		BadRequest(c, field+" is empty")
		return nil, false
	}
	if file.Size > maxBytes {
		Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", field, maxBytes))
		return nil, false
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return nil, false
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		Internal(c, "failed to read file")
		return nil, false
	}
	if len(data) == 0 {
		BadRequest(c, field+" is empty")
		return nil, false
	}
	if int64(len(data)) > maxBytes {
		Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d bytes", field, maxBytes))
		return nil, false
	}

	if clamdAddr != "" {
		if clean, ok := scanUpload(c, clamdAddr, data); !ok || !clean {
			return nil, false
		}
	}
	return data, true
}

func scanUpload(c *gin.Context, addr string, data []byte) (clean bool, ok bool) {
	log := middleware.LoggerFromContext(c)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamd.NewClamd(addr).ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		log.Error("scan file", slog.Any("error", err))
		Internal(c, "failed to scan file")
		return false, false
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			log.Warn("upload rejected by clamd", slog.String("status", result.Status), slog.String("description", result.Description))
			BadRequest(c, "malicious file detected")
			return false, true
		}
	}
	return true, true
}
