package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
)

const materialColumns = `id, school_id, title, description, subject, age_group, type, tags,
	source_template_id, element_count, document_key, created_by, created_at, updated_at`

// API field name -> column
var materialOrderings = map[string]string{
	"title":         "title",
	"subject":       "subject",
	"age_group":     "age_group",
	"type":          "type",
	"element_count": "element_count",
	"created_at":    "created_at",
	"updated_at":    "updated_at",
}

// tagList is stored as a JSON array.
type tagList []string

func (tl tagList) Value() (driver.Value, error) {
	if tl == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(tl))
	return string(b), err
}

func (tl *tagList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*tl = tagList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.Errorf("tagList.Scan: unsupported type %T", src)
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return errors.Wrap(err, "tagList.Scan")
	}
	if tags == nil {
		tags = []string{}
	}
	*tl = tags
	return nil
}

type materialRow struct {
	ID               string      `db:"id"`
	SchoolID         string      `db:"school_id"`
	Title            string      `db:"title"`
	Description      null.String `db:"description"`
	Subject          null.String `db:"subject"`
	AgeGroup         string      `db:"age_group"`
	Type             string      `db:"type"`
	Tags             tagList     `db:"tags"`
	SourceTemplateID null.String `db:"source_template_id"`
	ElementCount     int         `db:"element_count"`
	DocumentKey      string      `db:"document_key"`
	CreatedBy        string      `db:"created_by"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func newMaterialRow(m material.Material) materialRow {
	return materialRow{
		ID:               m.ID,
		SchoolID:         m.SchoolID,
		Title:            m.Title,
		Description:      null.NewString(m.Description, m.Description != ""),
		Subject:          null.NewString(m.Subject, m.Subject != ""),
		AgeGroup:         m.AgeGroup,
		Type:             m.Type,
		Tags:             tagList(m.Tags),
		SourceTemplateID: null.NewString(m.SourceTemplateID, m.SourceTemplateID != ""),
		ElementCount:     m.ElementCount,
		DocumentKey:      m.DocumentKey,
		CreatedBy:        m.CreatedBy,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

func (r materialRow) toMaterial() material.Material {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return material.Material{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		Title:            r.Title,
		Description:      r.Description.String,
		Subject:          r.Subject.String,
		AgeGroup:         r.AgeGroup,
		Type:             r.Type,
		Tags:             tags,
		SourceTemplateID: r.SourceTemplateID.String,
		ElementCount:     r.ElementCount,
		DocumentKey:      r.DocumentKey,
		CreatedBy:        r.CreatedBy,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, m material.Material) (material.Material, error) {
	row := newMaterialRow(m)
	q := `INSERT INTO material (` + materialColumns + `) VALUES (
		:id, :school_id, :title, :description, :subject, :age_group, :type, :tags,
		:source_template_id, :element_count, :document_key, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return row.toMaterial(), nil
}

func (repo *materialRepository) GetMaterialByID(ctx context.Context, id string) (material.Material, error) {
	var row materialRow
	q := repo.db.Rebind(`SELECT ` + materialColumns + ` FROM material WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return material.Material{}, material.ErrNotFound
		}
		return material.Material{}, errors.Wrap(err, "selecting material")
	}
	return row.toMaterial(), nil
}

func (repo *materialRepository) QueryMaterials(ctx context.Context, filter material.QueryFilter, orderings ...core.DBOrdering) ([]material.Material, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, vals ...interface{}) {
		where = append(where, cond)
		args = append(args, vals...)
	}

	if filter.SchoolID != "" {
		add("school_id = ?", filter.SchoolID)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		add("(LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)", term, term)
	}
	if filter.Type != "" {
		add("type = ?", filter.Type)
	}
	if filter.Subject != "" {
		add("subject = ?", filter.Subject)
	}
	if filter.AgeGroup != "" {
		add("age_group = ?", filter.AgeGroup)
	}
	if filter.CreatedBy != "" {
		add("created_by = ?", filter.CreatedBy)
	}
	for _, tag := range filter.Tags {
		// tags is a JSON array of strings
		add("tags LIKE ?", `%"`+tag+`"%`)
	}
	if !filter.CreatedFrom.IsZero() {
		add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		add("created_at <= ?", filter.CreatedTo.UTC())
	}

	q := `SELECT ` + materialColumns + ` FROM material`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY ` + core.OrderBy(orderings, materialOrderings, "created_at DESC")

	var rows []materialRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}
	materials := make([]material.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.toMaterial())
	}
	return materials, nil
}

func (repo *materialRepository) UpdateMaterial(ctx context.Context, m material.Material) (material.Material, error) {
	row := newMaterialRow(m)
	q := `UPDATE material SET
		title = :title, description = :description, subject = :subject, age_group = :age_group,
		tags = :tags, element_count = :element_count, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "updating material")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return material.Material{}, material.ErrNotFound
	}
	return repo.GetMaterialByID(ctx, m.ID)
}

func (repo *materialRepository) DeleteMaterialsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM material WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting materials")
	}
	return nil
}
