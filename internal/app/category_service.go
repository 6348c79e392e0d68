package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

// CategoryService manages the shared category list. Categories are not owned
// by users.
type CategoryService struct {
	categories storage.CategoryRepository
	policy     AccessPolicy
	logger     *slog.Logger
}

func NewCategoryService(categories storage.CategoryRepository, policy AccessPolicy, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		policy:     policy,
		logger:     loggerOrDiscard(logger),
	}
}

func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*storage.Category, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.categories.GetByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, req.Name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("create category: %w", err)
	}

	category := &storage.Category{Name: req.Name}
	if err := s.categories.Create(ctx, category); err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, req.Name)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.logger.DebugContext(ctx, "category created", "category_id", category.ID, "name", category.Name)
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*storage.Category, error) {
	category, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) GetByName(ctx context.Context, name string) (*storage.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}
	category, err := s.categories.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]storage.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Delete removes the category and detaches its movies; the movies survive
// with no category.
func (s *CategoryService) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return false, err
	}
	ok, err := s.categories.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "category deleted", "category_id", id)
	}
	return ok, nil
}
