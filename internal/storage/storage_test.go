package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	pdf := PDFKey(12)
	assert.True(t, strings.HasPrefix(pdf, "generated-cvs/12/"))
	assert.True(t, strings.HasSuffix(pdf, ".pdf"))
	assert.NotEqual(t, pdf, PDFKey(12))

	photo := PhotoKey(12, ".JPG")
	assert.True(t, strings.HasPrefix(photo, "cv-photos/12/"))
	assert.True(t, strings.HasSuffix(photo, ".jpg"))

	assert.True(t, OwnedBy(pdf, 12))
	assert.True(t, OwnedBy(photo, 12))
	assert.False(t, OwnedBy(pdf, 1))
	assert.False(t, OwnedBy("generated-cvs/12/../13/x.pdf", 12))
	assert.False(t, OwnedBy("other/12/"+strings.Repeat("a", 36)+".pdf", 12))

	assert.Equal(t, []string{"generated-cvs/12/", "cv-photos/12/"}, CVPrefixes(12))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchKey(fmt.Errorf("wrapped: %w", ErrObjectNotFound)))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(errors.New("connection refused")))

	assert.True(t, IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.False(t, IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchKey"}))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "generated-cvs/1/a.pdf", []byte("%PDF"), "application/pdf"))
	require.NoError(t, m.Put(ctx, "cv-photos/1/b.jpg", []byte("jpeg"), "image/jpeg"))
	require.NoError(t, m.Put(ctx, "generated-cvs/2/c.pdf", []byte("%PDF"), "application/pdf"))

	data, err := m.Get(ctx, "generated-cvs/1/a.pdf", 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
	assert.Equal(t, "application/pdf", m.ContentType("generated-cvs/1/a.pdf"))

	_, err = m.Get(ctx, "generated-cvs/1/a.pdf", 2)
	assert.ErrorContains(t, err, "exceeds")

	_, err = m.Get(ctx, "missing", 10)
	assert.True(t, IsNoSuchKey(err))

	link, err := m.PresignedURL(ctx, "generated-cvs/1/a.pdf", time.Minute, "CV.pdf")
	require.NoError(t, err)
	assert.Contains(t, link, "filename=CV.pdf")

	for _, prefix := range CVPrefixes(1) {
		require.NoError(t, m.DeletePrefix(ctx, prefix))
	}
	assert.Equal(t, []string{"generated-cvs/2/c.pdf"}, m.Keys())
}
