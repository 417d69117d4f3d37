package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/utils"
)

const userColumns = "users.*, " +
	"(SELECT COUNT(*) FROM posts WHERE posts.author_id = users.id) AS posts_count, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.author_id = users.id) AS comments_count"

// UserQuery filters the user directory.
type UserQuery struct {
	PageQuery
	Search string `form:"search"`
	Role   string `form:"role" binding:"omitempty,oneof=USER ADMIN"`
}

// UpdateUserInput is a partial profile update; nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Username *string
	Bio      *string
	Avatar   *string
}

// UsersService manages user profiles.
type UsersService struct {
	db         *gorm.DB
	bcryptCost int
}

// NewUsersService builds a UsersService hashing with bcryptCost.
func NewUsersService(db *gorm.DB, bcryptCost int) *UsersService {
	return &UsersService{db: db, bcryptCost: bcryptCost}
}

// FindAll lists users newest first with their post and comment counts.
func (s *UsersService) FindAll(ctx context.Context, q UserQuery) ([]models.User, Pagination, error) {
	page, limit := q.resolve(10)
	filter := func(db *gorm.DB) *gorm.DB {
		if term := strings.TrimSpace(q.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			db = db.Where("(LOWER(users.name) LIKE ? OR LOWER(users.username) LIKE ? OR LOWER(users.email) LIKE ?)", like, like, like)
		}
		if q.Role != "" {
			db = db.Where("users.role = ?", q.Role)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}
	users := []models.User{}
	if err := s.db.WithContext(ctx).Scopes(filter).
		Select(userColumns).
		Order("users.created_at DESC").Order("users.id DESC").
		Offset(offset(page, limit)).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, Pagination{}, err
	}
	return users, NewPagination(page, limit, total), nil
}

// FindOne returns a user by id with aggregate counts.
func (s *UsersService) FindOne(ctx context.Context, id uint) (*models.User, error) {
	return s.findBy(ctx, "users.id = ?", id)
}

// FindByUsername returns a user's public profile.
func (s *UsersService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findBy(ctx, "users.username = ?", username)
}

func (s *UsersService) findBy(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select(userColumns).Where(cond, arg).Take(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update applies a partial profile update. Email and username stay unique.
func (s *UsersService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			taken, err := s.taken(ctx, "email", email, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrEmailTaken
			}
			updates["email"] = email
		}
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, ErrUsernameRequired
		}
		if username != user.Username {
			taken, err := s.taken(ctx, "username", username, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrUsernameTaken
			}
			updates["username"] = username
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(utils.StripTags(*in.Name))
		if name == "" {
			return nil, ErrNameRequired
		}
		updates["name"] = name
	}
	if in.Bio != nil {
		updates["bio"] = strings.TrimSpace(utils.StripTags(*in.Bio))
	}
	if in.Avatar != nil {
		updates["avatar"] = strings.TrimSpace(*in.Avatar)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return nil, ErrUserExists
			}
			return nil, err
		}
	}
	return s.FindOne(ctx, id)
}

func (s *UsersService) taken(ctx context.Context, column, value string, exceptID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, exceptID).
		Count(&n).Error
	return n > 0, err
}

// ChangePassword re-verifies the current password before storing a new hash.
func (s *UsersService) ChangePassword(ctx context.Context, id uint, current, next string) error {
	if len(next) < 6 {
		return ErrPasswordTooShort
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("password_hash", hash).Error
}

// Remove deletes a user with their posts, the comments on those posts, and
// every comment they wrote together with the replies beneath it.
func (s *UsersService) Remove(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if isNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM post_tags WHERE post_id IN ?", postIDs).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}

		var roots []uint
		if err := tx.Model(&models.Comment{}).Where("author_id = ?", id).Pluck("id", &roots).Error; err != nil {
			return err
		}
		doomed, err := collectSubtree(tx, roots)
		if err != nil {
			return err
		}
		if len(doomed) > 0 {
			if err := tx.Where("id IN ?", doomed).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if err == nil {
		invalidateListings()
	}
	return err
}

// collectSubtree returns roots plus the ids of every comment nested beneath them.
func collectSubtree(tx *gorm.DB, roots []uint) ([]uint, error) {
	all := append([]uint{}, roots...)
	frontier := roots
	for len(frontier) > 0 {
		var next []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &next).Error; err != nil {
			return nil, err
		}
		all = append(all, next...)
		frontier = next
	}
	return utils.UniqueUint(all), nil
}

// invalidateListings drops cached aggregates that embed post counts.
func invalidateListings() {
	utils.InvalidateByPrefix(utils.CacheCategoriesKey)
	utils.InvalidateByPrefix(utils.CachePopularTagsKey)
}
