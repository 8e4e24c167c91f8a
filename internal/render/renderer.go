package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrUnsupportedKind = errors.New("unsupported export kind")

// Artifact 是待存储的渲染结果
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Renderer interface {
	Render(doc *FlashUpdateDocument) (*Artifact, error)
}

// RenderFunc 把普通函数适配为Renderer
type RenderFunc func(doc *FlashUpdateDocument) (*Artifact, error)

func (f RenderFunc) Render(doc *FlashUpdateDocument) (*Artifact, error) { return f(doc) }

// 导出类型到渲染器的映射
type Registry map[string]Renderer

func DefaultRegistry() Registry {
	return Registry{
		"pdf":  NewPDFRenderer(),
		"json": JSONRenderer{},
	}
}

func (r Registry) Lookup(kind string) (Renderer, error) {
	renderer, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return renderer, nil
}

func (r Registry) Kinds() []string {
	kinds := make([]string, 0, len(r))
	for k := range r {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

type JSONRenderer struct{}

func (JSONRenderer) Render(doc *FlashUpdateDocument) (*Artifact, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return &Artifact{
		Filename:    fileName(doc, "json"),
		ContentType: "application/json",
		Data:        data,
	}, nil
}

func fileName(doc *FlashUpdateDocument, ext string) string {
	return fmt.Sprintf("flash-update-%d-%s.%s", doc.ID, doc.GeneratedAt.Format("20060102-150405"), ext)
}
