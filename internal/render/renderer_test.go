package render

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"go-relief-hub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleFlashUpdate() *model.FlashUpdate {
	refDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &model.FlashUpdate{
		ID:                  12,
		Title:               "Earthquake in Gorkha",
		SituationalOverview: "A 6.1 magnitude earthquake struck at dawn.",
		ShareWith:           model.ShareWithRCRCNetwork,
		HazardType:          &model.DisasterType{ID: 1, Name: "Earthquake"},
		OriginatorName:      "Asha",
		OriginatorEmail:     "asha@example.org",
		CountryDistricts: []model.FlashCountryDistrict{{
			Country:   model.Country{Name: "Nepal"},
			Districts: []model.District{{Name: "Gorkha"}, {Name: "Lamjung"}},
		}},
		References: []model.FlashReference{
			{Date: &refDate, SourceDescription: "Field report", URL: "https://example.org/r1"},
			{SourceDescription: "Radio"},
		},
		ActionsTaken: []model.FlashActionTaken{{
			ID:           3,
			Organization: "NATIONAL_SOCIETY",
			Summary:      "Teams deployed",
			Actions:      []model.FlashAction{{Name: "Search and rescue"}},
		}},
	}
}

func TestNewFlashUpdateDocument(t *testing.T) {
	doc := NewFlashUpdateDocument(sampleFlashUpdate(), generatedAt.In(time.FixedZone("X", 3600)))

	assert.Equal(t, uint(12), doc.ID)
	assert.Equal(t, "RCRC_NETWORK", doc.ShareWith)
	assert.Equal(t, "Earthquake", doc.HazardType)
	assert.Equal(t, generatedAt, doc.GeneratedAt)
	assert.Equal(t, time.UTC, doc.GeneratedAt.Location())
	require.Len(t, doc.Countries, 1)
	assert.Equal(t, DocumentCountry{Name: "Nepal", Districts: []string{"Gorkha", "Lamjung"}}, doc.Countries[0])
	assert.Equal(t, []DocumentRef{
		{Date: "2026-03-01", SourceDescription: "Field report", URL: "https://example.org/r1"},
		{SourceDescription: "Radio"},
	}, doc.References)
	require.Len(t, doc.ActionsTaken, 1)
	assert.Equal(t, []string{"Search and rescue"}, doc.ActionsTaken[0].Actions)
	assert.Equal(t, "Asha", doc.Originator.Name)
}

func TestNewFlashUpdateDocumentEmptyChildren(t *testing.T) {
	doc := NewFlashUpdateDocument(&model.FlashUpdate{ID: 1, Title: "Bare"}, generatedAt)

	assert.Empty(t, doc.HazardType)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"country_district":[]`)
	assert.Contains(t, string(data), `"references":[]`)
	assert.NotContains(t, string(data), "hazard_type")
}

func TestJSONRenderer(t *testing.T) {
	doc := NewFlashUpdateDocument(sampleFlashUpdate(), generatedAt)
	art, err := JSONRenderer{}.Render(doc)
	require.NoError(t, err)

	assert.Equal(t, "flash-update-12-20260304-050607.json", art.Filename)
	assert.Equal(t, "application/json", art.ContentType)

	var back FlashUpdateDocument
	require.NoError(t, json.Unmarshal(art.Data, &back))
	assert.Equal(t, doc.Title, back.Title)
	assert.Equal(t, doc.Countries, back.Countries)
}

func TestPDFRenderer(t *testing.T) {
	doc := NewFlashUpdateDocument(sampleFlashUpdate(), generatedAt)
	art, err := NewPDFRenderer().Render(doc)
	require.NoError(t, err)

	assert.Equal(t, "flash-update-12-20260304-050607.pdf", art.Filename)
	assert.Equal(t, "application/pdf", art.ContentType)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))
}

func TestUTF8PDFRenderer(t *testing.T) {
	fu := sampleFlashUpdate()
	fu.Title = "Землетрясение: Séisme à Katmandou"
	doc := NewFlashUpdateDocument(fu, generatedAt)

	r, err := NewUTF8PDFRenderer(filepath.Join("testdata", "DejaVuSansCondensed.ttf"))
	require.NoError(t, err)
	art, err := r.Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(art.Data, []byte("%PDF-")))
	// glyphs are embedded as a unicode CID font rather than cp1252
	assert.Contains(t, string(art.Data), "/Encoding /Identity-H")

	plain, err := NewPDFRenderer().Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(plain.Data), "/Encoding /Identity-H")
}

func TestNewUTF8PDFRendererMissingFont(t *testing.T) {
	_, err := NewUTF8PDFRenderer(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.ErrorContains(t, err, "read pdf font")
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"json", "pdf"}, reg.Kinds())

	r, err := reg.Lookup("pdf")
	require.NoError(t, err)
	assert.IsType(t, &PDFRenderer{}, r)

	_, err = reg.Lookup("docx")
	assert.ErrorIs(t, err, ErrUnsupportedKind)
	assert.EqualError(t, err, `unsupported export kind: "docx"`)

	called := false
	reg["custom"] = RenderFunc(func(doc *FlashUpdateDocument) (*Artifact, error) {
		called = true
		return &Artifact{Filename: "x"}, nil
	})
	r, err = reg.Lookup("custom")
	require.NoError(t, err)
	_, err = r.Render(nil)
	require.NoError(t, err)
	assert.True(t, called)
}
