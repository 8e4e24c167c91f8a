package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

// LocalStore 把文件写到本地目录, 由服务器以静态文件方式提供
type LocalStore struct {
	basePath string
	baseURL  string
}

func NewLocalStore(basePath, baseURL string) (*LocalStore, error) {
	if basePath == "" {
		basePath = "media"
	}
	// 确保目录存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) BasePath() string { return s.basePath }

func (s *LocalStore) Save(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	filePath := filepath.Join(s.basePath, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	// 先写临时文件再改名, 读者不会看到写了一半的文件
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}

	logger.L.Debug("Artifact stored locally", zap.String("path", filePath), zap.Int("size", len(data)))
	return s.baseURL + "/" + cleaned, nil
}
