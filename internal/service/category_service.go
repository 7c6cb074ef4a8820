package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"todoTracker/internal/models/category"
	repo "todoTracker/internal/repository"
)

type CategoryService struct {
	storage Storage
}

func NewCategoryService(storage Storage) *CategoryService {
	return &CategoryService{storage: storage}
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name", "не может быть пустым")
	}
	if utf8.RuneCountInString(name) > category.MaxNameLength {
		return "", NewValidationError("name", fmt.Sprintf("не длиннее %d символов", category.MaxNameLength))
	}
	return name, nil
}

func mapCategoryErr(err error, id int64, name string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return NewNotFound(ResourceCategory, id)
	case errors.Is(err, repo.ErrDuplicate):
		return NewBusinessError(CodeCategoryExists, fmt.Sprintf("категория %q уже существует", name),
			ToDetail("name", name))
	default:
		return err
	}
}

func (s *CategoryService) Create(ctx context.Context, userID int64, name string, color *string) (*category.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	var created *category.Category
	err = s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		c, err := uow.Categories().Create(ctx, &category.Category{UserID: userID, Name: name, Color: color})
		if err != nil {
			return mapCategoryErr(err, 0, name)
		}
		created = c
		return nil
	})
	return created, err
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]*category.Category, error) {
	var list []*category.Category
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		list, err = uow.Categories().List(ctx, userID)
		return err
	})
	return list, err
}

func (s *CategoryService) Get(ctx context.Context, userID, id int64) (*category.Category, error) {
	var found *category.Category
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		c, err := uow.Categories().Get(ctx, userID, id)
		if err != nil {
			return mapCategoryErr(err, id, "")
		}
		found = c
		return nil
	})
	return found, err
}

func (s *CategoryService) Update(ctx context.Context, userID, id int64, name string, color *string) (*category.Category, error) {
	name, err := validateCategoryName(name)
	if err != nil {
		return nil, err
	}

	var updated *category.Category
	err = s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		c, err := uow.Categories().Update(ctx, &category.Category{ID: id, UserID: userID, Name: name, Color: color})
		if err != nil {
			return mapCategoryErr(err, id, name)
		}
		updated = c
		return nil
	})
	return updated, err
}

func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	return s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		if err := uow.Categories().Delete(ctx, userID, id); err != nil {
			return mapCategoryErr(err, id, "")
		}
		return nil
	})
}

func (s *CategoryService) OwnsCategory(ctx context.Context, userID, categoryID int64) (bool, error) {
	var owns bool
	err := s.storage.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		owns, err = ownsCategory(ctx, uow, userID, categoryID)
		return err
	})
	return owns, err
}
