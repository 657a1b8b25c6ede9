package domain

import "slices"

// Settings is one operator's review program: what may be reviewed, what a
// review costs, and which wallet collects the proceeds.
type Settings struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Wallet       string   `json:"wallet"`
	Cost         int64    `json:"cost"` // smallest currency unit; 0 means reviews are free
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	CommentLimit int      `json:"comment_word_limit"` // max comment length; 0 = unlimited
	Tags         []string `json:"tags"`
}

func (s Settings) AllowsTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// MergeTags adds the given tags to the allowed set, preserving existing
// entries and their order. Returns the number of tags actually added.
func (s *Settings) MergeTags(tags []string) int {
	added := 0
	for _, t := range tags {
		if t == "" || slices.Contains(s.Tags, t) {
			continue
		}
		s.Tags = append(s.Tags, t)
		added++
	}
	return added
}
