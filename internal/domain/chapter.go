package domain

import (
	"math"
	"strings"
	"time"
)

// WordsPerMinute is the reading speed used for EstimatedReadingTime.
const WordsPerMinute = 200

// Chapter is a node of the table of contents. Subchapters are owned by value;
// ParentID and Level are derived from physical nesting and recomputed on every commit.
type Chapter struct {
	ID                   string         `json:"id" bson:"id"`
	Title                string         `json:"title" bson:"title"`
	Description          string         `json:"description,omitempty" bson:"description,omitempty"`
	Level                int            `json:"level" bson:"level"`
	Order                int            `json:"order" bson:"order"`
	ParentID             *string        `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	ContentID            *string        `json:"content_id,omitempty" bson:"content_id,omitempty"`
	Content              *string        `json:"content,omitempty" bson:"content,omitempty"`
	Status               ChapterStatus  `json:"status" bson:"status"`
	WordCount            int            `json:"word_count" bson:"word_count"`
	EstimatedReadingTime int            `json:"estimated_reading_time" bson:"estimated_reading_time"`
	LastModified         time.Time      `json:"last_modified" bson:"last_modified"`
	Subchapters          []Chapter      `json:"subchapters,omitempty" bson:"subchapters,omitempty"`
	IsDeleted            bool           `json:"is_deleted,omitempty" bson:"is_deleted,omitempty"`
	DeletedAt            *time.Time     `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	DeletedBy            *string        `json:"deleted_by,omitempty" bson:"deleted_by,omitempty"`
	StatusBeforeDelete   *ChapterStatus `json:"status_before_delete,omitempty" bson:"status_before_delete,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// SetContent stores the inline body and recomputes word count and reading time.
// A nil body clears both counters.
func (c *Chapter) SetContent(body *string) {
	c.Content = body
	if body == nil {
		c.WordCount = 0
		c.EstimatedReadingTime = 0
		return
	}
	c.WordCount = CountWords(*body)
	c.EstimatedReadingTime = ReadingTime(c.WordCount)
}

// Summary returns the fields recorded in audit before/after snapshots.
func (c *Chapter) Summary() map[string]any {
	m := map[string]any{
		"id":     c.ID,
		"title":  c.Title,
		"level":  c.Level,
		"order":  c.Order,
		"status": string(c.Status),
	}
	if c.ParentID != nil {
		m["parent_id"] = *c.ParentID
	}
	if c.IsDeleted {
		m["is_deleted"] = true
	}
	if c.StatusBeforeDelete != nil {
		m["status_before_delete"] = string(*c.StatusBeforeDelete)
	}
	return m
}

// CountWords counts whitespace separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// ReadingTime returns minutes to read words at WordsPerMinute, at least one.
func ReadingTime(words int) int {
	minutes := int(math.Round(float64(words) / WordsPerMinute))
	return max(1, minutes)
}
