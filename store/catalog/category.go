package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (s *Store) CreateCategory(ctx context.Context, in CategoryInput) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return 0, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	now := time.Now().UTC()
	cat := &Category{
		Name:        name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := db.NewInsert().Model(cat).Exec(ctx); err != nil {
		return 0, &StorageError{Op: "create category", Err: err}
	}
	return cat.ID, nil
}

// Categories returns one category when id is set, otherwise all ordered by
// name.
func (s *Store) Categories(ctx context.Context, id *int64) ([]Category, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var cats []Category
	q := db.NewSelect().Model(&cats)
	if id != nil {
		q = q.Where("c.id = ?", *id)
	} else {
		q = q.OrderExpr("c.category_name")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, &StorageError{Op: "list categories", Err: err}
	}
	return cats, nil
}

// UpdateCategory applies the supplied fields and refreshes updated_at. With
// no fields set it is a silent no-op.
func (s *Store) UpdateCategory(ctx context.Context, id int64, upd CategoryUpdate) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	q := db.NewUpdate().Model((*Category)(nil)).Where("id = ?", id)
	fields := 0
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return fmt.Errorf("%w: category name cannot be empty", ErrValidation)
		}
		q = q.Set("category_name = ?", name)
		fields++
	}
	if upd.Description != nil {
		q = q.Set("description = ?", *upd.Description)
		fields++
	}
	if upd.ImageURL != nil {
		q = q.Set("image_url = ?", *upd.ImageURL)
		fields++
	}
	if fields == 0 {
		return nil
	}
	q = q.Set("updated_at = ?", time.Now().UTC())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := q.Exec(ctx); err != nil {
		return &StorageError{Op: "update category", Err: err}
	}
	return nil
}

// DeleteCategory hard-deletes; products referencing the category keep their
// category_id and join to a nil name afterwards.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := db.NewDelete().Model((*Category)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return &StorageError{Op: "delete category", Err: err}
	}
	return nil
}
