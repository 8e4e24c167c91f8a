package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go-relief-hub/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "exports/flash-update-1.pdf", want: "exports/flash-update-1.pdf"},
		{key: "/exports//a.pdf", want: "exports/a.pdf"},
		{key: "../../etc/passwd", want: "etc/passwd"},
		{key: `shares\my file.pdf`, want: "shares/my_file.pdf"},
		{key: "", wantErr: true},
		{key: "/", wantErr: true},
		{key: "..", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := cleanKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8080/media/")
	require.NoError(t, err)
	assert.Equal(t, dir, store.BasePath())

	url, err := store.Save(context.Background(), "exports/7/flash-update-7.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/exports/7/flash-update-7.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "exports", "7", "flash-update-7.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))

	_, err = os.Stat(filepath.Join(dir, "exports", "7", "flash-update-7.pdf.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreSaveStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "media"), "http://localhost/media")
	require.NoError(t, err)

	url, err := store.Save(context.Background(), "../escape.json", "application/json", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/media/escape.json", url)
	assert.FileExists(t, filepath.Join(dir, "media", "escape.json"))
	assert.NoFileExists(t, filepath.Join(dir, "escape.json"))
}

func TestLocalStoreSaveCanceled(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, "a.pdf", "", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	local, err := New(config.ExportConfig{Storage: "local", Local: config.LocalConfig{StoragePath: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, local)

	remote, err := New(config.ExportConfig{Storage: "minio", Minio: config.MinioConfig{
		Endpoint: "localhost:9000", AccessKeyID: "key", SecretAccessKey: "secret", Bucket: "exports",
	}})
	require.NoError(t, err)
	require.IsType(t, &MinioStore{}, remote)
	ms := remote.(*MinioStore)
	assert.Equal(t, "exports", ms.bucket)
	assert.Equal(t, "24h0m0s", ms.expiry.String())

	_, err = ms.Save(context.Background(), "", "application/pdf", nil)
	assert.ErrorContains(t, err, "invalid storage key")

	_, err = New(config.ExportConfig{Storage: "s3"})
	assert.EqualError(t, err, "unsupported export storage: s3")
}
