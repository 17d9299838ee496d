package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorage(t *testing.T) {
	ctx := context.Background()
	files, err := NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)

	key := "papers/Conf/20250101_000000_abc.pdf"
	require.NoError(t, files.Save(ctx, key, strings.NewReader("content")))

	rc, err := files.Open(ctx, key)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "content", string(data))

	require.NoError(t, files.Delete(ctx, key))
	_, err = files.Open(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, files.Delete(ctx, key), ErrNotFound)

	assert.Error(t, files.Save(ctx, "../escape.pdf", strings.NewReader("x")))
}
