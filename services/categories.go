package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

const categoryColumns = "categories.*, (SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id) AS posts_count"

// CategoryInput is used for create (all fields) and update (nil fields untouched).
type CategoryInput struct {
	Name        *string
	Description *string
}

// CategoriesService manages post categories.
type CategoriesService struct {
	db *gorm.DB
}

// NewCategoriesService builds a CategoriesService.
func NewCategoriesService(db *gorm.DB) *CategoriesService {
	return &CategoriesService{db: db}
}

// Create stores a category; its slug is derived from the name.
func (s *CategoriesService) Create(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == nil {
		return nil, ErrNameRequired
	}
	name, slug, err := nameAndSlug(*in.Name)
	if err != nil {
		return nil, err
	}
	if taken, err := slugTaken(s.db.WithContext(ctx), &models.Category{}, slug, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrCategoryExists
	}

	category := models.Category{Name: name, Slug: slug}
	if in.Description != nil {
		category.Description = strings.TrimSpace(utils.StripTags(*in.Description))
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	utils.InvalidateByPrefix(utils.CacheCategoriesKey)
	return &category, nil
}

// FindAll lists categories by name with their post counts. The list is cached.
func (s *CategoriesService) FindAll(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if utils.CacheGetJSON(utils.CacheCategoriesKey, &categories) {
		return categories, nil
	}
	if err := s.db.WithContext(ctx).Select(categoryColumns).Order("categories.name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(utils.CacheCategoriesKey, categories, 0)
	return categories, nil
}

// FindOne returns a category with its ten latest published posts.
func (s *CategoriesService) FindOne(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).
		Preload("Posts", func(db *gorm.DB) *gorm.DB {
			return db.Where("posts.published = ?", true).Order("posts.created_at DESC").Limit(10)
		}).
		Preload("Posts.Author", authorSummary).
		Select(categoryColumns).Where("categories.id = ?", id).
		Take(&category).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

// Update renames or re-describes a category.
func (s *CategoriesService) Update(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name, slug, err := nameAndSlug(*in.Name)
		if err != nil {
			return nil, err
		}
		if taken, err := slugTaken(s.db.WithContext(ctx), &models.Category{}, slug, id); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrCategoryExists
		}
		updates["name"] = name
		updates["slug"] = slug
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(utils.StripTags(*in.Description))
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&category).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return nil, ErrCategoryExists
			}
			return nil, err
		}
	}
	utils.InvalidateByPrefix(utils.CacheCategoriesKey)
	return s.FindOne(ctx, id)
}

// Remove deletes a category; its posts become uncategorised.
func (s *CategoriesService) Remove(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			if isNotFound(err) {
				return ErrCategoryNotFound
			}
			return err
		}
		if err := tx.Model(&models.Post{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err == nil {
		utils.InvalidateByPrefix(utils.CacheCategoriesKey)
	}
	return err
}

func nameAndSlug(raw string) (name, slug string, err error) {
	name = strings.TrimSpace(utils.StripTags(raw))
	if name == "" {
		return "", "", ErrNameRequired
	}
	slug = Slugify(name)
	if slug == "" {
		return "", "", ErrEmptySlug
	}
	return name, slug, nil
}

func slugTaken(db *gorm.DB, model interface{}, slug string, exceptID uint) (bool, error) {
	var n int64
	err := db.Model(model).Where("slug = ? AND id <> ?", slug, exceptID).Count(&n).Error
	return n > 0, err
}
