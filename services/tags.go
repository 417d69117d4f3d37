package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

const tagColumns = "tags.*, (SELECT COUNT(*) FROM post_tags WHERE post_tags.tag_id = tags.id) AS posts_count"

var tagNamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)

// ValidTagName reports whether name only uses letters, digits, spaces, hyphens and underscores.
func ValidTagName(name string) bool {
	return tagNamePattern.MatchString(name)
}

// TagQuery holds the listing query parameters.
type TagQuery struct {
	Search    string `form:"search"`
	SortBy    string `form:"sortBy" binding:"omitempty,oneof=name postCount createdAt"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

// TagsService manages tags.
type TagsService struct {
	db *gorm.DB
}

// NewTagsService builds a TagsService.
func NewTagsService(db *gorm.DB) *TagsService {
	return &TagsService{db: db}
}

func tagName(raw string) (name, slug string, err error) {
	name = strings.TrimSpace(raw)
	if name == "" {
		return "", "", ErrNameRequired
	}
	if !ValidTagName(name) {
		return "", "", ErrInvalidTagName
	}
	slug = Slugify(name)
	if slug == "" {
		return "", "", ErrEmptySlug
	}
	return name, slug, nil
}

// Create stores a tag.
func (s *TagsService) Create(ctx context.Context, rawName string) (*models.Tag, error) {
	name, slug, err := tagName(rawName)
	if err != nil {
		return nil, err
	}
	if taken, err := slugTaken(s.db.WithContext(ctx), &models.Tag{}, slug, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrTagExists
	}
	tag := models.Tag{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	utils.InvalidateByPrefix(utils.CachePopularTagsKey)
	return &tag, nil
}

// FindAll lists tags with post counts, by name ascending unless told otherwise.
func (s *TagsService) FindAll(ctx context.Context, q TagQuery) ([]models.Tag, error) {
	order := "tags.name"
	switch q.SortBy {
	case "postCount":
		order = "posts_count"
	case "createdAt":
		order = "tags.created_at"
	}
	dir := "ASC"
	if q.SortOrder == "desc" {
		dir = "DESC"
	}

	query := s.db.WithContext(ctx).Select(tagColumns)
	if term := strings.TrimSpace(q.Search); term != "" {
		query = query.Where("LOWER(tags.name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	tags := []models.Tag{}
	if err := query.Order(order + " " + dir).Order("tags.id ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// FindPopular returns the limit most-used tags. Results are cached per limit.
func (s *TagsService) FindPopular(ctx context.Context, limit int) ([]models.Tag, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	key := utils.CachePopularTagsKey + strconv.Itoa(limit)
	tags := []models.Tag{}
	if utils.CacheGetJSON(key, &tags) {
		return tags, nil
	}
	if err := s.db.WithContext(ctx).Select(tagColumns).
		Order("posts_count DESC").Order("tags.name ASC").
		Limit(limit).Find(&tags).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(key, tags, 0)
	return tags, nil
}

// FindOne returns a tag with its twenty latest published posts.
func (s *TagsService) FindOne(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).
		Select(tagColumns).Where("tags.id = ?", id).
		Take(&tag).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}

	posts := []models.Post{}
	if err := s.db.WithContext(ctx).
		Preload("Author", authorSummary).Preload("Category").
		Select(postColumns).
		Where("posts.published = ?", true).
		Where("posts.id IN (SELECT post_id FROM post_tags WHERE tag_id = ?)", id).
		Order("posts.created_at DESC").Limit(20).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	tag.Posts = posts
	return &tag, nil
}

// Update renames a tag.
func (s *TagsService) Update(ctx context.Context, id uint, rawName string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	name, slug, err := tagName(rawName)
	if err != nil {
		return nil, err
	}
	if taken, err := slugTaken(s.db.WithContext(ctx), &models.Tag{}, slug, id); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrTagExists
	}
	if err := s.db.WithContext(ctx).Model(&tag).Updates(map[string]interface{}{"name": name, "slug": slug}).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	utils.InvalidateByPrefix(utils.CachePopularTagsKey)
	return s.FindOne(ctx, id)
}

// Remove deletes a tag and unlinks it from every post.
func (s *TagsService) Remove(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.First(&tag, id).Error; err != nil {
			if isNotFound(err) {
				return ErrTagNotFound
			}
			return err
		}
		if err := tx.Model(&tag).Association("Posts").Clear(); err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
	if err == nil {
		utils.InvalidateByPrefix(utils.CachePopularTagsKey)
	}
	return err
}
