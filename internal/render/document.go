// Package render 把快讯渲染成可下载的文件
package render

import (
	"time"

	"go-relief-hub/internal/model"
)

// FlashUpdateDocument 是交给每个渲染器的固定序列化结构
type FlashUpdateDocument struct {
	ID                  uint              `json:"id"`
	Title               string            `json:"title"`
	SituationalOverview string            `json:"situational_overview"`
	ShareWith           string            `json:"share_with"`
	HazardType          string            `json:"hazard_type,omitempty"`
	Countries           []DocumentCountry `json:"country_district"`
	References          []DocumentRef     `json:"references"`
	ActionsTaken        []DocumentAction  `json:"actions_taken"`
	Originator          DocumentContact   `json:"originator"`
	IFRC                DocumentContact   `json:"ifrc"`
	GeneratedAt         time.Time         `json:"generated_at"`
}

type DocumentCountry struct {
	Name      string   `json:"country"`
	Districts []string `json:"districts"`
}

type DocumentRef struct {
	Date              string `json:"date,omitempty"`
	SourceDescription string `json:"source_description"`
	URL               string `json:"url"`
}

type DocumentAction struct {
	ID           uint     `json:"id"`
	Organization string   `json:"organization"`
	Summary      string   `json:"summary"`
	Actions      []string `json:"actions"`
}

type DocumentContact struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// fu 需要已预加载子记录
func NewFlashUpdateDocument(fu *model.FlashUpdate, now time.Time) *FlashUpdateDocument {
	doc := &FlashUpdateDocument{
		ID:                  fu.ID,
		Title:               fu.Title,
		SituationalOverview: fu.SituationalOverview,
		ShareWith:           string(fu.ShareWith),
		Countries:           make([]DocumentCountry, 0, len(fu.CountryDistricts)),
		References:          make([]DocumentRef, 0, len(fu.References)),
		ActionsTaken:        make([]DocumentAction, 0, len(fu.ActionsTaken)),
		Originator: DocumentContact{
			Name:  fu.OriginatorName,
			Title: fu.OriginatorTitle,
			Email: fu.OriginatorEmail,
			Phone: fu.OriginatorPhone,
		},
		IFRC: DocumentContact{
			Name:  fu.IFRCName,
			Title: fu.IFRCTitle,
			Email: fu.IFRCEmail,
			Phone: fu.IFRCPhone,
		},
		GeneratedAt: now.UTC(),
	}
	if fu.HazardType != nil {
		doc.HazardType = fu.HazardType.Name
	}

	for _, cd := range fu.CountryDistricts {
		c := DocumentCountry{Name: cd.Country.Name, Districts: make([]string, 0, len(cd.Districts))}
		for _, d := range cd.Districts {
			c.Districts = append(c.Districts, d.Name)
		}
		doc.Countries = append(doc.Countries, c)
	}
	for _, ref := range fu.References {
		r := DocumentRef{SourceDescription: ref.SourceDescription, URL: ref.URL}
		if ref.Date != nil {
			r.Date = ref.Date.Format("2006-01-02")
		}
		doc.References = append(doc.References, r)
	}
	for _, at := range fu.ActionsTaken {
		a := DocumentAction{ID: at.ID, Organization: at.Organization, Summary: at.Summary, Actions: make([]string, 0, len(at.Actions))}
		for _, act := range at.Actions {
			a.Actions = append(a.Actions, act.Name)
		}
		doc.ActionsTaken = append(doc.ActionsTaken, a)
	}
	return doc
}
