package orchestrator

import "github.com/okanban/okanban/internal/model"

// CreateCategory adds a new kanban column. If slug is empty, it is
// derived from name (spec.md §4.B), disambiguating against existing
// slugs on collision.
func (o *Orchestrator) CreateCategory(name, slug string) (*model.Category, error) {
	if name == "" {
		return nil, newErr(KindUsage, "CreateCategory", "name is required", nil)
	}
	if len(name) > model.MaxCategoryNameLen {
		return nil, newErr(KindUsage, "CreateCategory", "name exceeds max length", nil)
	}

	if slug == "" {
		base := model.Slugify(name)
		if base == "" {
			return nil, newErr(KindUsage, "CreateCategory", "name has no usable slug characters", nil)
		}
		slug = model.DisambiguateSlug(base, func(candidate string) bool {
			_, err := o.store.GetCategoryBySlug(candidate)
			return err == nil
		})
	}

	c := &model.Category{Name: name, Slug: slug}
	if err := o.store.CreateCategory(c); err != nil {
		return nil, mapStoreError("CreateCategory", err)
	}
	return c, nil
}

// ListCategories returns every category in display order.
func (o *Orchestrator) ListCategories() ([]*model.Category, error) {
	cats, err := o.store.ListCategories()
	if err != nil {
		return nil, mapStoreError("ListCategories", err)
	}
	return cats, nil
}

// UpdateCategory renames a category and/or assigns it a new slug. Both
// empty is a usage error: there is nothing to change.
func (o *Orchestrator) UpdateCategory(id, name, slug string) (*model.Category, error) {
	if name == "" && slug == "" {
		return nil, newErr(KindUsage, "UpdateCategory", "at least one of name or slug is required", nil)
	}
	if len(name) > model.MaxCategoryNameLen {
		return nil, newErr(KindUsage, "UpdateCategory", "name exceeds max length", nil)
	}
	if err := o.store.UpdateCategory(id, name, slug); err != nil {
		return nil, mapStoreError("UpdateCategory", err)
	}
	c, err := o.store.GetCategory(id)
	if err != nil {
		return nil, mapStoreError("UpdateCategory", err)
	}
	return c, nil
}

// DeleteCategory removes an empty, non-last category.
func (o *Orchestrator) DeleteCategory(id string) error {
	if err := o.store.DeleteCategory(id); err != nil {
		return mapStoreError("DeleteCategory", err)
	}
	return nil
}
