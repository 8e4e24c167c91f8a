// Package storage 保存渲染出的导出文件并生成可下载链接
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go-relief-hub/pkg/config"
)

// ArtifactStore 保存文件, 返回可供下载的URL
type ArtifactStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New 根据配置选择存储后端
func New(cfg config.ExportConfig) (ArtifactStore, error) {
	switch cfg.Storage {
	case "", "local":
		return NewLocalStore(cfg.Local.StoragePath, cfg.Local.BaseURL)
	case "minio":
		return NewMinioStore(cfg.Minio)
	default:
		return nil, fmt.Errorf("unsupported export storage: %s", cfg.Storage)
	}
}

// 净化对象键, 不允许跳出存储根目录
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.ReplaceAll(key, " ", "_")
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}
