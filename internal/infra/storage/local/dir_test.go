package local

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutThenOpen(t *testing.T) {
	d := Dir{Root: t.TempDir(), BaseURL: "http://localhost:8080/"}
	require.NoError(t, d.Put(context.Background(), "contracts/bk-1.pdf", []byte("%PDF-1.3"), "application/pdf"))

	f, err := d.Open("contracts/bk-1.pdf")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	url, err := d.URL(context.Background(), "contracts/bk-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/contracts/bk-1.pdf", url)
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	d := Dir{Root: root}
	require.NoError(t, d.Put(context.Background(), "../../outside.pdf", []byte("x"), ""))
	f, err := d.Open("outside.pdf")
	require.NoError(t, err)
	f.Close()

	assert.Error(t, d.Put(context.Background(), "  ", nil, ""))
}

func TestDeleteRemovesFileAndToleratesMissing(t *testing.T) {
	d := Dir{Root: t.TempDir()}
	require.NoError(t, d.Put(context.Background(), "contracts/bk-1.pdf", []byte("%PDF-1.3"), ""))
	require.NoError(t, d.Delete(context.Background(), "contracts/bk-1.pdf"))

	_, err := d.Open("contracts/bk-1.pdf")
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, d.Delete(context.Background(), "contracts/bk-1.pdf"))
}
