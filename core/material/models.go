package material

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/worksheet"
)

// Material types
const (
	TypeTemplate  = "template"
	TypeWorksheet = "worksheet"
)

// Age groups
const (
	AgeGroupInfant  = "0-2"
	AgeGroupToddler = "3-4"
	AgeGroupPreK    = "5-6"
)

var AgeGroups = []string{AgeGroupInfant, AgeGroupToddler, AgeGroupPreK}

// Material is a template or worksheet owned by a school. Its worksheet document
// lives in the blob store under DocumentKey.
type Material struct {
	ID               string    `json:"id"`
	SchoolID         string    `json:"school_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Subject          string    `json:"subject"`
	AgeGroup         string    `json:"age_group"`
	Type             string    `json:"type"`
	Tags             []string  `json:"tags"`
	SourceTemplateID string    `json:"source_template_id,omitempty"`
	ElementCount     int       `json:"element_count"`
	DocumentKey      string    `json:"-"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
}

func (m Material) IsTemplate() bool { return m.Type == TypeTemplate }

// PreviewKey is the blob key of the rendered SVG preview.
func (m Material) PreviewKey() string {
	return previewKey(m.SchoolID, m.ID)
}

// CanvasSettings overrides the configured canvas defaults of a new material.
type CanvasSettings struct {
	Width      float64 `json:"width" validate:"omitempty,gt=0,lte=10000"`
	Height     float64 `json:"height" validate:"omitempty,gt=0,lte=10000"`
	Background string  `json:"background" validate:"omitempty,hexcolor_or_none"`
	Outline    *bool   `json:"outline"`
}

// NewMaterial contains information needed to create a new Material.
type NewMaterial struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Subject     string          `json:"subject" validate:"omitempty,max=64"`
	AgeGroup    string          `json:"age_group" validate:"omitempty,agegroup"`
	Type        string          `json:"type" validate:"omitempty,oneof=template worksheet"`
	Tags        []string        `json:"tags" validate:"max=20,unique,dive,min=1,max=32,alphanum_"`
	Canvas      *CanvasSettings `json:"canvas"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.Subject = core.CleanString(nm.Subject, true /* lower */)
	nm.AgeGroup = core.CleanString(nm.AgeGroup)
	nm.Type = core.CleanString(nm.Type, true /* lower */)
	if nm.Type == "" {
		nm.Type = TypeWorksheet
	}
	nm.Tags = core.CleanStrings(nm.Tags, true /* lower */)
	return validate.Struct(nm)
}

// UpdateMaterial defines what information may be provided to modify an existing Material.
// Empty fields keep their current value.
type UpdateMaterial struct {
	Title       string   `json:"title" validate:"max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Subject     *string  `json:"subject" validate:"omitempty,max=64"`
	AgeGroup    string   `json:"age_group" validate:"omitempty,agegroup"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,unique,dive,min=1,max=32,alphanum_"`
}

func (um *UpdateMaterial) Validate(validate *validator.Validate) error {
	um.Title = core.CleanString(um.Title)
	if um.Description != nil {
		d := core.CleanString(*um.Description)
		um.Description = &d
	}
	if um.Subject != nil {
		s := core.CleanString(*um.Subject, true /* lower */)
		um.Subject = &s
	}
	um.AgeGroup = core.CleanString(um.AgeGroup)
	if um.Tags != nil {
		um.Tags = core.CleanStrings(um.Tags, true /* lower */)
	}
	return validate.Struct(um)
}

func (um UpdateMaterial) apply(m Material) Material {
	if um.Title != "" {
		m.Title = um.Title
	}
	if um.Description != nil {
		m.Description = *um.Description
	}
	if um.Subject != nil {
		m.Subject = *um.Subject
	}
	if um.AgeGroup != "" {
		m.AgeGroup = um.AgeGroup
	}
	if um.Tags != nil {
		m.Tags = um.Tags
	}
	return m
}

// DuplicateMaterial instantiates a new worksheet from an existing material.
type DuplicateMaterial struct {
	Title string `json:"title" validate:"max=200"`
}

func (dm *DuplicateMaterial) Validate(validate *validator.Validate) error {
	dm.Title = core.CleanString(dm.Title)
	return validate.Struct(dm)
}

// ShareMaterial lists who should receive a worksheet by email.
type ShareMaterial struct {
	To      []string `json:"to" validate:"required,min=1,max=50,dive,email"`
	Message string   `json:"message" validate:"max=1000"`
}

func (sm *ShareMaterial) Validate(validate *validator.Validate) error {
	sm.To = core.CleanStrings(sm.To, true /* lower */)
	sm.Message = core.CleanString(sm.Message)
	return validate.Struct(sm)
}

// NewElement places a registry entry in a document. A nil Position picks a random
// spot on the canvas.
type NewElement struct {
	Identifier string           `json:"identifier" validate:"required,max=64"`
	Position   *worksheet.Point `json:"position"`
}

func (ne *NewElement) Validate(validate *validator.Validate) error {
	ne.Identifier = core.CleanString(ne.Identifier)
	return validate.Struct(ne)
}

type QueryFilter struct {
	SchoolID    string    `query:"-"`
	Search      string    `query:"search"`
	Type        string    `query:"type"`
	Subject     string    `query:"subject"`
	AgeGroup    string    `query:"age_group"`
	Tags        []string  `query:"tag"`
	CreatedBy   string    `query:"created_by"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Type == "" && qf.Subject == "" && qf.AgeGroup == "" &&
		qf.Tags == nil && qf.CreatedBy == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Type = core.CleanString(qf.Type, true /* lower */)
	qf.Subject = core.CleanString(qf.Subject, true /* lower */)
	qf.AgeGroup = core.CleanString(qf.AgeGroup)
	qf.CreatedBy = core.CleanString(qf.CreatedBy)
	if qf.Tags != nil {
		qf.Tags = core.CleanStrings(qf.Tags, true /* lower */)
	}
}
