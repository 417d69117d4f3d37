// Package seed fills a database with demo users, categories, tags, posts and comments.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/cppla/blogd/models"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

// Summary reports what Run created.
type Summary struct {
	Users      int
	Categories int
	Tags       int
	Posts      int
	Comments   int
}

// Options tunes a seeding run.
type Options struct {
	BcryptCost int
	ExtraUsers int
	Rand       *rand.Rand
}

var (
	adjectives = []string{"quiet", "bold", "rapid", "gentle", "modern", "classic", "bright", "hidden", "open", "lucky", "steady", "curious"}
	nouns      = []string{"river", "compiler", "garden", "server", "journey", "pattern", "kernel", "harbor", "signal", "library", "canvas", "engine"}
	words      = strings.Fields("lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam quis nostrud exercitation ullamco laboris")
)

// Run wipes every blog table and fills it with demo content. The admin
// (admin@blog.com / admin123) and test (test@blog.com / test123) accounts are
// always created.
func Run(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if opts.ExtraUsers == 0 {
		opts.ExtraUsers = 10
	}
	var sum Summary

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := wipe(tx); err != nil {
			return err
		}

		users := []models.User{
			{Email: "admin@blog.com", Username: "admin", Name: "Admin User", Bio: "System administrator and blogger", Role: models.RoleAdmin},
			{Email: "test@blog.com", Username: "testuser", Name: "Test User", Bio: "Just a test user", Role: models.RoleUser},
		}
		passwords := []string{"admin123", "test123"}
		for i := 0; i < opts.ExtraUsers; i++ {
			name := fmt.Sprintf("%s %s", title(pick(rng, adjectives)), title(pick(rng, nouns)))
			users = append(users, models.User{
				Email:    fmt.Sprintf("user%d@blog.com", i+1),
				Username: fmt.Sprintf("user%d", i+1),
				Name:     name,
				Bio:      sentence(rng, 8),
			})
			passwords = append(passwords, "password123")
		}
		for i := range users {
			hash, err := utils.HashPassword(passwords[i], opts.BcryptCost)
			if err != nil {
				return err
			}
			users[i].PasswordHash = hash
			if err := tx.Create(&users[i]).Error; err != nil {
				return fmt.Errorf("create user %s: %w", users[i].Username, err)
			}
		}
		sum.Users = len(users)

		categories := make([]models.Category, 0, 8)
		for i := 0; len(categories) < 8; i++ {
			name := fmt.Sprintf("%s %d", title(pick(rng, adjectives)), i+1)
			c := models.Category{Name: name, Slug: services.Slugify(name), Description: sentence(rng, 10)}
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("create category: %w", err)
			}
			categories = append(categories, c)
		}
		sum.Categories = len(categories)

		tags := make([]models.Tag, 0, 20)
		for i := 0; len(tags) < 20; i++ {
			name := fmt.Sprintf("%s-%s-%d", pick(rng, adjectives), pick(rng, nouns), i+1)
			t := models.Tag{Name: name, Slug: services.Slugify(name)}
			if err := tx.Create(&t).Error; err != nil {
				return fmt.Errorf("create tag: %w", err)
			}
			tags = append(tags, t)
		}
		sum.Tags = len(tags)

		var posts []models.Post
		for _, u := range users {
			for i, n := 0, rng.Intn(5)+1; i < n; i++ {
				postTitle := fmt.Sprintf("The %s %s %d-%d", pick(rng, adjectives), pick(rng, nouns), u.ID, i+1)
				category := categories[rng.Intn(len(categories))]
				p := models.Post{
					Title:      postTitle,
					Slug:       services.Slugify(postTitle),
					Content:    paragraphs(rng, 5),
					Excerpt:    sentence(rng, 20),
					Published:  rng.Intn(2) == 0,
					Featured:   rng.Intn(5) == 0,
					AuthorID:   u.ID,
					CategoryID: &category.ID,
					Tags:       sample(rng, tags, rng.Intn(4)+1),
				}
				if err := tx.Omit("Tags.*").Create(&p).Error; err != nil {
					return fmt.Errorf("create post: %w", err)
				}
				posts = append(posts, p)
			}
		}
		sum.Posts = len(posts)

		for _, p := range posts {
			for i, n := 0, rng.Intn(8); i < n; i++ {
				c := models.Comment{
					Content:  "This is a great post! " + sentence(rng, 6),
					AuthorID: users[rng.Intn(len(users))].ID,
					PostID:   p.ID,
				}
				if err := tx.Create(&c).Error; err != nil {
					return fmt.Errorf("create comment: %w", err)
				}
				sum.Comments++
				if rng.Float64() > 0.7 {
					reply := models.Comment{
						Content:  "I agree with your comment! " + sentence(rng, 5),
						AuthorID: users[rng.Intn(len(users))].ID,
						PostID:   p.ID,
						ParentID: &c.ID,
						Depth:    1,
					}
					if err := tx.Create(&reply).Error; err != nil {
						return fmt.Errorf("create reply: %w", err)
					}
					sum.Comments++
				}
			}
		}
		return nil
	})
	if err == nil {
		utils.InvalidateByPrefix(utils.CacheCategoriesKey)
		utils.InvalidateByPrefix(utils.CachePopularTagsKey)
	}
	return sum, err
}

func wipe(tx *gorm.DB) error {
	if err := tx.Exec("DELETE FROM post_tags").Error; err != nil {
		return err
	}
	for _, m := range []interface{}{&models.Comment{}, &models.Post{}, &models.Tag{}, &models.Category{}, &models.User{}, &models.PageView{}} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

func title(s string) string {
	return cases.Title(language.English).String(s)
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

func sentence(rng *rand.Rand, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = pick(rng, words)
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func paragraphs(rng *rand.Rand, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = sentence(rng, 12+rng.Intn(12))
	}
	return strings.Join(ps, "\n\n")
}

func sample(rng *rand.Rand, tags []models.Tag, n int) []models.Tag {
	idx := rng.Perm(len(tags))[:n]
	out := make([]models.Tag, n)
	for i, j := range idx {
		out[i] = tags[j]
	}
	return out
}
