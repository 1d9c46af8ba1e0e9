package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
)

type materialRepository struct {
	db *materialTable
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{db: db.material}
}

func copyMaterial(m material.Material) material.Material {
	m.Tags = append([]string{}, m.Tags...)
	return m
}

func (repo *materialRepository) CreateMaterial(_ context.Context, m material.Material) (material.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	m = copyMaterial(m)
	repo.db.table[m.ID] = &m
	return copyMaterial(m), nil
}

func (repo *materialRepository) GetMaterialByID(_ context.Context, id string) (material.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return copyMaterial(*m), nil
	}
	return material.Material{}, material.ErrNotFound
}

func matches(m material.Material, f material.QueryFilter) bool {
	if f.SchoolID != "" && m.SchoolID != f.SchoolID {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(m.Title), term) && !strings.Contains(strings.ToLower(m.Description), term) {
			return false
		}
	}
	if (f.Type != "" && m.Type != f.Type) ||
		(f.Subject != "" && m.Subject != f.Subject) ||
		(f.AgeGroup != "" && m.AgeGroup != f.AgeGroup) ||
		(f.CreatedBy != "" && m.CreatedBy != f.CreatedBy) {
		return false
	}
	for _, tag := range f.Tags {
		found := false
		for _, t := range m.Tags {
			if t == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.CreatedFrom.IsZero() && m.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && m.CreatedAt.After(f.CreatedTo) {
		return false
	}
	return true
}

// compare returns -1, 0 or 1 comparing field of a and b; ok is false for unknown fields.
func compare(a, b material.Material, field string) (c int, ok bool) {
	cmpStr := func(x, y string) int { return strings.Compare(x, y) }
	cmpInt := func(x, y int) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch field {
	case "title":
		return cmpStr(a.Title, b.Title), true
	case "subject":
		return cmpStr(a.Subject, b.Subject), true
	case "age_group":
		return cmpStr(a.AgeGroup, b.AgeGroup), true
	case "type":
		return cmpStr(a.Type, b.Type), true
	case "element_count":
		return cmpInt(a.ElementCount, b.ElementCount), true
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt), true
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt), true
	}
	return 0, false
}

func (repo *materialRepository) QueryMaterials(_ context.Context, filter material.QueryFilter, orderings ...core.DBOrdering) ([]material.Material, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	materials := make([]material.Material, 0)
	for _, m := range repo.db.table {
		if matches(*m, filter) {
			materials = append(materials, copyMaterial(*m))
		}
	}

	valid := make([]core.DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if _, ok := compare(material.Material{}, material.Material{}, ord.Field); ok {
			valid = append(valid, ord)
		}
	}
	if len(valid) == 0 {
		valid = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	sort.SliceStable(materials, func(i, j int) bool {
		for _, ord := range valid {
			c, _ := compare(materials[i], materials[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return materials, nil
}

func (repo *materialRepository) UpdateMaterial(_ context.Context, m material.Material) (material.Material, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save mutable fields
	orig, ok := repo.db.table[m.ID]
	if !ok {
		return material.Material{}, material.ErrNotFound
	}
	orig.Title = m.Title
	orig.Description = m.Description
	orig.Subject = m.Subject
	orig.AgeGroup = m.AgeGroup
	orig.Tags = append([]string{}, m.Tags...)
	orig.ElementCount = m.ElementCount
	orig.UpdatedAt = m.UpdatedAt
	return copyMaterial(*orig), nil
}

func (repo *materialRepository) DeleteMaterialsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
