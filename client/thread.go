package client

import "github.com/cppla/blogd/models"

// ThreadItem is one comment of a flattened thread with its nesting level.
type ThreadItem struct {
	Comment models.Comment
	Depth   int
}

// FlattenThread walks a nested thread depth first, for renderers that indent by level.
func FlattenThread(comments []models.Comment) []ThreadItem {
	var out []ThreadItem
	var walk func(list []models.Comment, depth int)
	walk = func(list []models.Comment, depth int) {
		for _, c := range list {
			replies := c.Replies
			c.Replies = nil
			out = append(out, ThreadItem{Comment: c, Depth: depth})
			walk(replies, depth+1)
		}
	}
	walk(comments, 0)
	return out
}

func insertReply(list []models.Comment, parentID uint, reply models.Comment) []models.Comment {
	editThread(list, parentID, func(c *models.Comment) {
		c.Replies = append(c.Replies, reply)
		c.RepliesCount++
	})
	return list
}

// editThread applies fn to the comment with id wherever it sits in the thread.
func editThread(list []models.Comment, id uint, fn func(*models.Comment)) bool {
	for i := range list {
		if list[i].ID == id {
			fn(&list[i])
			return true
		}
		if editThread(list[i].Replies, id, fn) {
			return true
		}
	}
	return false
}

// cloneThread copies every level of the thread so snapshots never share
// backing arrays with the store.
func cloneThread(list []models.Comment) []models.Comment {
	if list == nil {
		return nil
	}
	out := make([]models.Comment, len(list))
	for i, c := range list {
		c.Replies = cloneThread(c.Replies)
		out[i] = c
	}
	return out
}

func removeFromThread(list []models.Comment, id uint) []models.Comment {
	if list == nil {
		return nil
	}
	out := make([]models.Comment, 0, len(list))
	for _, c := range list {
		if c.ID == id {
			continue
		}
		c.Replies = removeFromThread(c.Replies, id)
		out = append(out, c)
	}
	return out
}
