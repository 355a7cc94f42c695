package pdf

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreparePhoto(t *testing.T) {
	raw := testPNG(t, 20, 30)

	photo, err := PreparePhoto(raw, DefaultMaxPhotoBytes)
	require.NoError(t, err)
	assert.Equal(t, 20, photo.Width)
	assert.Equal(t, 30, photo.Height)
	assert.Equal(t, "image/jpeg", photo.MIME())

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(photo.Data))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
}

func TestPreparePhotoRejects(t *testing.T) {
	valid := testPNG(t, 16, 16)

	tests := []struct {
		name string
		raw  []byte
		max  int
		want error
	}{
		{name: "empty", raw: []byte{}, max: DefaultMaxPhotoBytes, want: ErrPhotoEmpty},
		{name: "too large", raw: valid, max: len(valid) - 1, want: ErrPhotoTooLarge},
		{name: "not an image", raw: []byte("%PDF-1.4 definitely not a photo"), max: DefaultMaxPhotoBytes, want: ErrPhotoFormat},
		{name: "truncated", raw: valid[:len(valid)/2], max: DefaultMaxPhotoBytes, want: ErrPhotoDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photo, err := PreparePhoto(tt.raw, tt.max)
			assert.Nil(t, photo)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
