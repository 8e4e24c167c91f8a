package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/repository"
	"go-relief-hub/pkg/db"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

const referenceDateLayout = "2006-01-02"

type CountryDistrictInput struct {
	CountryID   uint   `json:"country" binding:"required"`
	DistrictIDs []uint `json:"district"`
}

type ReferenceInput struct {
	Date              string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	SourceDescription string `json:"source_description"`
	URL               string `json:"url"`
}

// Organization: NTLS 国家红会, PNS 合作红会, FDRN 联合会, GOV 政府
type ActionTakenInput struct {
	Organization string `json:"organization" binding:"required,oneof=NTLS PNS FDRN GOV"`
	Summary      string `json:"summary"`
	ActionIDs    []uint `json:"actions"`
}

// FlashUpdateInput 是创建和整体更新的请求体
type FlashUpdateInput struct {
	Title               string          `json:"title" binding:"required,max=300,singleline"`
	SituationalOverview string          `json:"situational_overview"`
	ShareWith           model.ShareWith `json:"share_with" binding:"omitempty,oneof=IFRC_SECRETARIAT RCRC_NETWORK RCRC_NETWORK_AND_DONORS"`
	HazardTypeID        *uint           `json:"hazard_type"`

	CountryDistricts []CountryDistrictInput `json:"country_district" binding:"dive"`
	References       []ReferenceInput       `json:"references" binding:"dive"`
	ActionsTaken     []ActionTakenInput     `json:"actions_taken" binding:"dive"`

	OriginatorName  string `json:"originator_name"`
	OriginatorTitle string `json:"originator_title"`
	OriginatorEmail string `json:"originator_email"`
	OriginatorPhone string `json:"originator_phone"`
	IFRCName        string `json:"ifrc_name"`
	IFRCTitle       string `json:"ifrc_title"`
	IFRCEmail       string `json:"ifrc_email"`
	IFRCPhone       string `json:"ifrc_phone"`
}

// FlashUpdatePatch 只包含要修改的字段; 子列表给出时整体替换
type FlashUpdatePatch struct {
	Title               *string          `json:"title"`
	SituationalOverview *string          `json:"situational_overview"`
	ShareWith           *model.ShareWith `json:"share_with"`
	HazardTypeID        *uint            `json:"hazard_type"`

	CountryDistricts *[]CountryDistrictInput `json:"country_district"`
	References       *[]ReferenceInput       `json:"references"`
	ActionsTaken     *[]ActionTakenInput     `json:"actions_taken"`

	OriginatorName  *string `json:"originator_name"`
	OriginatorTitle *string `json:"originator_title"`
	OriginatorEmail *string `json:"originator_email"`
	OriginatorPhone *string `json:"originator_phone"`
	IFRCName        *string `json:"ifrc_name"`
	IFRCTitle       *string `json:"ifrc_title"`
	IFRCEmail       *string `json:"ifrc_email"`
	IFRCPhone       *string `json:"ifrc_phone"`
}

// AutoNotifier 在快讯写入提交后被调用, ShareService实现
type AutoNotifier interface {
	AutoNotify(ctx context.Context, flashUpdateID uint)
}

type FlashUpdateService struct {
	uow          *db.UnitOfWork
	flashUpdates *repository.FlashUpdateRepository
	geo          *repository.GeoRepository
	notifier     AutoNotifier
}

func NewFlashUpdateService(uow *db.UnitOfWork, flashUpdates *repository.FlashUpdateRepository, geo *repository.GeoRepository, notifier AutoNotifier) *FlashUpdateService {
	return &FlashUpdateService{uow: uow, flashUpdates: flashUpdates, geo: geo, notifier: notifier}
}

func (s *FlashUpdateService) Create(ctx context.Context, userID uint, in FlashUpdateInput) (*model.FlashUpdate, error) {
	children, err := s.validate(ctx, &in)
	if err != nil {
		return nil, err
	}

	fu := &model.FlashUpdate{CreatedByID: userID}
	applyScalars(fu, &in)
	children.attach(fu)

	err = s.uow.Do(ctx, func(tx *db.Tx) error {
		if err := s.flashUpdates.WithTx(tx.DB).Create(ctx, fu); err != nil {
			return err
		}
		s.notifyOnCommit(tx, fu.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L.Info("Flash update created", zap.Uint("subject_id", fu.ID), zap.Uint("userID", userID))
	return s.Get(ctx, fu.ID)
}

// Update 整体替换字段和子记录
func (s *FlashUpdateService) Update(ctx context.Context, userID, id uint, in FlashUpdateInput) (*model.FlashUpdate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, existing, in, true)
}

func (s *FlashUpdateService) Patch(ctx context.Context, userID, id uint, patch FlashUpdatePatch) (*model.FlashUpdate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in := toInput(existing)
	replaceChildren := patch.apply(&in)
	return s.save(ctx, userID, existing, in, replaceChildren)
}

func (s *FlashUpdateService) save(ctx context.Context, userID uint, fu *model.FlashUpdate, in FlashUpdateInput, replaceChildren bool) (*model.FlashUpdate, error) {
	children, err := s.validate(ctx, &in)
	if err != nil {
		return nil, err
	}

	applyScalars(fu, &in)
	fu.ModifiedByID = &userID
	fu.HazardType, fu.ModifiedBy = nil, nil
	if replaceChildren {
		children.attach(fu)
	}

	err = s.uow.Do(ctx, func(tx *db.Tx) error {
		if err := s.flashUpdates.WithTx(tx.DB).Update(ctx, fu, replaceChildren); err != nil {
			return err
		}
		s.notifyOnCommit(tx, fu.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L.Info("Flash update saved", zap.Uint("subject_id", fu.ID), zap.Uint("userID", userID), zap.Bool("replaceChildren", replaceChildren))
	return s.Get(ctx, fu.ID)
}

func (s *FlashUpdateService) notifyOnCommit(tx *db.Tx, id uint) {
	if s.notifier == nil {
		return
	}
	tx.OnCommit("flash_update:auto_notify", func(ctx context.Context) {
		s.notifier.AutoNotify(ctx, id)
	})
}

// Delete 连同子记录、导出任务和分享记录一起删除
func (s *FlashUpdateService) Delete(ctx context.Context, id uint) error {
	exists, err := s.flashUpdates.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("flash update", id)
	}
	return s.uow.Do(ctx, func(tx *db.Tx) error {
		return s.flashUpdates.WithTx(tx.DB).Delete(ctx, id)
	})
}

func (s *FlashUpdateService) Get(ctx context.Context, id uint) (*model.FlashUpdate, error) {
	fu, err := s.flashUpdates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fu == nil {
		return nil, notFound("flash update", id)
	}
	return fu, nil
}

func (s *FlashUpdateService) List(ctx context.Context, filter repository.FlashUpdateFilter) ([]model.FlashUpdate, int64, error) {
	return s.flashUpdates.List(ctx, filter)
}

// 校验后的子记录, 尚未写库
type validatedChildren struct {
	countryDistricts []model.FlashCountryDistrict
	references       []model.FlashReference
	actionsTaken     []model.FlashActionTaken
}

func (c *validatedChildren) attach(fu *model.FlashUpdate) {
	fu.CountryDistricts = c.countryDistricts
	fu.References = c.references
	fu.ActionsTaken = c.actionsTaken
}

// validate 在任何写入之前执行; 字段规则来自 binding 标签, 需要查目录的规则在这里检查.
// 返回的错误为 *ValidationError 或数据库错误
func (s *FlashUpdateService) validate(ctx context.Context, in *FlashUpdateInput) (*validatedChildren, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.ShareWith == "" {
		in.ShareWith = model.ShareWithIFRCSecretariat
	}

	verr := &ValidationError{}
	if err := validateStruct(in); err != nil {
		fe, ok := err.(*ValidationError)
		if !ok {
			return nil, err
		}
		verr = fe
	}

	if in.HazardTypeID != nil {
		ok, err := s.geo.DisasterTypeExists(ctx, *in.HazardTypeID)
		if err != nil {
			return nil, err
		}
		if !ok {
			verr.Add("hazard_type", fmt.Sprintf("invalid hazard type %d", *in.HazardTypeID))
		}
	}

	children := &validatedChildren{}
	if err := s.validateCountryDistricts(ctx, in.CountryDistricts, verr, children); err != nil {
		return nil, err
	}

	for _, ref := range in.References {
		r := model.FlashReference{SourceDescription: ref.SourceDescription, URL: ref.URL}
		// 格式错误已由 datetime 规则报告
		if d, err := time.Parse(referenceDateLayout, ref.Date); err == nil {
			r.Date = &d
		}
		children.references = append(children.references, r)
	}

	var actionIDs []uint
	for _, at := range in.ActionsTaken {
		actionIDs = append(actionIDs, at.ActionIDs...)
	}
	knownActions, err := s.geo.FlashActionIDs(ctx, uniqueIDs(actionIDs))
	if err != nil {
		return nil, err
	}
	for i, at := range in.ActionsTaken {
		taken := model.FlashActionTaken{Organization: at.Organization, Summary: at.Summary}
		for _, id := range uniqueIDs(at.ActionIDs) {
			if !knownActions[id] {
				verr.Add(fmt.Sprintf("actions_taken[%d].actions", i), fmt.Sprintf("invalid action %d", id))
				continue
			}
			taken.Actions = append(taken.Actions, model.FlashAction{ID: id})
		}
		children.actionsTaken = append(children.actionsTaken, taken)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return children, nil
}

// 每个地区必须属于同一条目的国家
func (s *FlashUpdateService) validateCountryDistricts(ctx context.Context, in []CountryDistrictInput, verr *ValidationError, out *validatedChildren) error {
	var countryIDs, districtIDs []uint
	for _, cd := range in {
		countryIDs = append(countryIDs, cd.CountryID)
		districtIDs = append(districtIDs, cd.DistrictIDs...)
	}
	countries, err := s.geo.CountryIDs(ctx, uniqueIDs(countryIDs))
	if err != nil {
		return err
	}
	districtCountry, err := s.geo.DistrictCountries(ctx, uniqueIDs(districtIDs))
	if err != nil {
		return err
	}

	for i, cd := range in {
		field := fmt.Sprintf("country_district[%d]", i)
		if !countries[cd.CountryID] {
			verr.Add(field+".country", fmt.Sprintf("invalid country %d", cd.CountryID))
			continue
		}
		row := model.FlashCountryDistrict{CountryID: cd.CountryID}
		for _, did := range uniqueIDs(cd.DistrictIDs) {
			owner, ok := districtCountry[did]
			if !ok {
				verr.Add(field+".district", fmt.Sprintf("invalid district %d", did))
				continue
			}
			if owner != cd.CountryID {
				verr.Add(field+".district", fmt.Sprintf("district %d does not belong to country %d", did, cd.CountryID))
				continue
			}
			row.Districts = append(row.Districts, model.District{ID: did, CountryID: owner})
		}
		out.countryDistricts = append(out.countryDistricts, row)
	}
	return nil
}

func applyScalars(fu *model.FlashUpdate, in *FlashUpdateInput) {
	fu.Title = in.Title
	fu.SituationalOverview = in.SituationalOverview
	fu.ShareWith = in.ShareWith
	fu.HazardTypeID = in.HazardTypeID
	fu.OriginatorName = in.OriginatorName
	fu.OriginatorTitle = in.OriginatorTitle
	fu.OriginatorEmail = strings.TrimSpace(in.OriginatorEmail)
	fu.OriginatorPhone = in.OriginatorPhone
	fu.IFRCName = in.IFRCName
	fu.IFRCTitle = in.IFRCTitle
	fu.IFRCEmail = strings.TrimSpace(in.IFRCEmail)
	fu.IFRCPhone = in.IFRCPhone
}

func toInput(fu *model.FlashUpdate) FlashUpdateInput {
	in := FlashUpdateInput{
		Title:               fu.Title,
		SituationalOverview: fu.SituationalOverview,
		ShareWith:           fu.ShareWith,
		HazardTypeID:        fu.HazardTypeID,
		OriginatorName:      fu.OriginatorName,
		OriginatorTitle:     fu.OriginatorTitle,
		OriginatorEmail:     fu.OriginatorEmail,
		OriginatorPhone:     fu.OriginatorPhone,
		IFRCName:            fu.IFRCName,
		IFRCTitle:           fu.IFRCTitle,
		IFRCEmail:           fu.IFRCEmail,
		IFRCPhone:           fu.IFRCPhone,
	}
	for _, cd := range fu.CountryDistricts {
		c := CountryDistrictInput{CountryID: cd.CountryID}
		for _, d := range cd.Districts {
			c.DistrictIDs = append(c.DistrictIDs, d.ID)
		}
		in.CountryDistricts = append(in.CountryDistricts, c)
	}
	for _, ref := range fu.References {
		r := ReferenceInput{SourceDescription: ref.SourceDescription, URL: ref.URL}
		if ref.Date != nil {
			r.Date = ref.Date.Format(referenceDateLayout)
		}
		in.References = append(in.References, r)
	}
	for _, at := range fu.ActionsTaken {
		a := ActionTakenInput{Organization: at.Organization, Summary: at.Summary}
		for _, act := range at.Actions {
			a.ActionIDs = append(a.ActionIDs, act.ID)
		}
		in.ActionsTaken = append(in.ActionsTaken, a)
	}
	return in
}

// apply 把补丁合并进in, 返回子列表是否被替换
func (p *FlashUpdatePatch) apply(in *FlashUpdateInput) bool {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&in.Title, p.Title)
	setString(&in.SituationalOverview, p.SituationalOverview)
	setString(&in.OriginatorName, p.OriginatorName)
	setString(&in.OriginatorTitle, p.OriginatorTitle)
	setString(&in.OriginatorEmail, p.OriginatorEmail)
	setString(&in.OriginatorPhone, p.OriginatorPhone)
	setString(&in.IFRCName, p.IFRCName)
	setString(&in.IFRCTitle, p.IFRCTitle)
	setString(&in.IFRCEmail, p.IFRCEmail)
	setString(&in.IFRCPhone, p.IFRCPhone)
	if p.ShareWith != nil {
		in.ShareWith = *p.ShareWith
	}
	if p.HazardTypeID != nil {
		in.HazardTypeID = p.HazardTypeID
	}

	replaced := false
	if p.CountryDistricts != nil {
		in.CountryDistricts = *p.CountryDistricts
		replaced = true
	}
	if p.References != nil {
		in.References = *p.References
		replaced = true
	}
	if p.ActionsTaken != nil {
		in.ActionsTaken = *p.ActionsTaken
		replaced = true
	}
	return replaced
}
