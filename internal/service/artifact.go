package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"go-relief-hub/internal/render"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/storage"
)

// artifactBuilder 读取最新的快讯, 渲染并保存, 导出和分享共用
type artifactBuilder struct {
	flashUpdates *repository.FlashUpdateRepository
	renderers    render.Registry
	store        storage.ArtifactStore
	now          func() time.Time
}

func (b *artifactBuilder) build(ctx context.Context, subjectID uint, kind, keyPrefix string) (doc *render.FlashUpdateDocument, url string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panicked: %v", r)
		}
	}()

	renderer, err := b.renderers.Lookup(kind)
	if err != nil {
		return nil, "", err
	}

	fu, err := b.flashUpdates.FindByID(ctx, subjectID)
	if err != nil {
		return nil, "", fmt.Errorf("load flash update: %w", err)
	}
	if fu == nil {
		return nil, "", notFound("flash update", subjectID)
	}

	doc = render.NewFlashUpdateDocument(fu, b.now())
	artifact, err := renderer.Render(doc)
	if err != nil {
		return doc, "", err
	}

	url, err = b.store.Save(ctx, path.Join(keyPrefix, artifact.Filename), artifact.ContentType, artifact.Data)
	if err != nil {
		return doc, "", fmt.Errorf("store artifact: %w", err)
	}
	return doc, url, nil
}

// 错误摘要写入数据库前截断到500字节, 截断点落在字符边界上
func summarize(err error) string {
	const limit = 500
	msg := strings.ToValidUTF8(err.Error(), "\uFFFD")
	if len(msg) <= limit {
		return msg
	}
	i := limit
	for i > 0 && !utf8.RuneStart(msg[i]) {
		i--
	}
	return msg[:i]
}
