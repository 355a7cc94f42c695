package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxPhotoBytes 是照片上传的大小上限。
const DefaultMaxPhotoBytes = 5 << 20

const maxPhotoPixels = 4096

var (
	ErrPhotoEmpty    = errors.New("photo is empty")
	ErrPhotoTooLarge = errors.New("photo exceeds size limit")
	ErrPhotoFormat   = errors.New("photo format not supported")
	ErrPhotoDecode   = errors.New("photo cannot be decoded")
)

var photoMIMEs = []string{"image/jpeg", "image/png", "image/gif"}

// Photo 是已校验、可直接嵌入的图片，始终为 JPEG。
type Photo struct {
	Data   []byte
	Width  int
	Height int
}

// MIME 是 Data 的内容类型。
func (p *Photo) MIME() string { return "image/jpeg" }

// PreparePhoto 校验 raw 并重新编码为不透明的 JPEG，
// 透明区域以白色填充。
func PreparePhoto(raw []byte, maxBytes int) (*Photo, error) {
	if len(raw) == 0 {
		return nil, ErrPhotoEmpty
	}
	if maxBytes > 0 && len(raw) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrPhotoTooLarge, len(raw), maxBytes)
	}

	mtype := mimetype.Detect(raw)
	if !mimetype.EqualsAny(mtype.String(), photoMIMEs...) {
		return nil, fmt.Errorf("%w: %s", ErrPhotoFormat, mtype.String())
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxPhotoPixels || cfg.Height > maxPhotoPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrPhotoTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPhotoDecode, err)
	}

	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}

	return &Photo{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
