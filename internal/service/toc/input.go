package toc

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/frankbria/auto-author/internal/domain"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxChapterIDLength   = 64
	MaxMetadataKeys      = 50
)

var (
	requiredUUID = validation.By(func(value any) error {
		if id, ok := value.(uuid.UUID); ok && id == uuid.Nil {
			return errors.New("cannot be blank")
		}
		return nil
	})

	chapterIDRules = []validation.Rule{validation.Required, validation.Length(1, MaxChapterIDLength)}

	validStatus = validation.By(func(value any) error {
		s, ok := value.(*domain.ChapterStatus)
		if !ok || s == nil {
			return nil
		}
		if !s.IsValid() {
			return errors.New("must be one of draft, in-progress, completed, published")
		}
		return nil
	})
)

// toValidationError converts ozzo errors into a domain.ValidationError with
// fields sorted by name.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]domain.FieldError, 0, len(fields))
	for _, field := range fields {
		out = append(out, domain.FieldError{Field: field, Message: errs[field].Error()})
	}
	return domain.NewValidationErrors(out)
}

// AddChapterInput holds the parameters for adding a chapter.
// Position is the requested sibling order; 0 appends at the end.
type AddChapterInput struct {
	BookID      uuid.UUID `json:"book_id"`
	ParentID    *string   `json:"parent_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
}

func (i AddChapterInput) normalize() AddChapterInput {
	i.Title = strings.TrimSpace(i.Title)
	i.Description = strings.TrimSpace(i.Description)
	i.ParentID = trimOrNil(i.ParentID)
	return i
}

// Validate checks all fields and collects all errors.
func (i AddChapterInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.BookID, requiredUUID),
		validation.Field(&i.ParentID, validation.Length(1, MaxChapterIDLength)),
		validation.Field(&i.Title, validation.Required, validation.Length(1, MaxTitleLength)),
		validation.Field(&i.Description, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&i.Position, validation.Min(0)),
	))
}

// UpdateChapterInput holds the parameters for updating a chapter.
// Nil fields are left unchanged. A nil value in Metadata removes that key.
type UpdateChapterInput struct {
	BookID      uuid.UUID             `json:"book_id"`
	ChapterID   string                `json:"chapter_id"`
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	ContentID   *string               `json:"content_id"` // ptr("") clears
	Content     *string               `json:"content"`
	Status      *domain.ChapterStatus `json:"status"`
	Metadata    map[string]any        `json:"metadata"`
}

func (i UpdateChapterInput) normalize() UpdateChapterInput {
	i.ChapterID = strings.TrimSpace(i.ChapterID)
	if i.Title != nil {
		i.Title = ptr(strings.TrimSpace(*i.Title))
	}
	if i.Description != nil {
		i.Description = ptr(strings.TrimSpace(*i.Description))
	}
	if i.ContentID != nil {
		i.ContentID = ptr(strings.TrimSpace(*i.ContentID))
	}
	return i
}

func (i UpdateChapterInput) empty() bool {
	return i.Title == nil && i.Description == nil && i.ContentID == nil &&
		i.Content == nil && i.Status == nil && len(i.Metadata) == 0
}

// Validate checks all fields and collects all errors.
func (i UpdateChapterInput) Validate() error {
	err := validation.ValidateStruct(&i,
		validation.Field(&i.BookID, requiredUUID),
		validation.Field(&i.ChapterID, chapterIDRules...),
		validation.Field(&i.Title, validation.NilOrNotEmpty, validation.Length(1, MaxTitleLength)),
		validation.Field(&i.Description, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&i.Status, validStatus),
		validation.Field(&i.Metadata, validation.Length(0, MaxMetadataKeys)),
	)
	if err == nil && i.empty() {
		return domain.NewValidationError("input", "at least one field must be provided")
	}
	return toValidationError(err)
}

// DeleteChapterInput holds the parameters for soft-deleting a chapter.
type DeleteChapterInput struct {
	BookID    uuid.UUID `json:"book_id"`
	ChapterID string    `json:"chapter_id"`
}

func (i DeleteChapterInput) normalize() DeleteChapterInput {
	i.ChapterID = strings.TrimSpace(i.ChapterID)
	return i
}

// Validate checks all fields and collects all errors.
func (i DeleteChapterInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.BookID, requiredUUID),
		validation.Field(&i.ChapterID, chapterIDRules...),
	))
}

// RestoreChapterInput holds the parameters for restoring a soft-deleted chapter.
type RestoreChapterInput struct {
	BookID    uuid.UUID `json:"book_id"`
	ChapterID string    `json:"chapter_id"`
}

func (i RestoreChapterInput) normalize() RestoreChapterInput {
	i.ChapterID = strings.TrimSpace(i.ChapterID)
	return i
}

// Validate checks all fields and collects all errors.
func (i RestoreChapterInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.BookID, requiredUUID),
		validation.Field(&i.ChapterID, chapterIDRules...),
	))
}

// ReorderChaptersInput holds the new order of one sibling list.
// OrderedIDs must contain exactly the current children of ParentID.
type ReorderChaptersInput struct {
	BookID     uuid.UUID `json:"book_id"`
	ParentID   *string   `json:"parent_id"`
	OrderedIDs []string  `json:"ordered_ids"`
}

func (i ReorderChaptersInput) normalize() ReorderChaptersInput {
	i.ParentID = trimOrNil(i.ParentID)
	ids := make([]string, len(i.OrderedIDs))
	for n, id := range i.OrderedIDs {
		ids[n] = strings.TrimSpace(id)
	}
	i.OrderedIDs = ids
	return i
}

// Validate checks all fields and collects all errors.
func (i ReorderChaptersInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.BookID, requiredUUID),
		validation.Field(&i.ParentID, validation.Length(1, MaxChapterIDLength)),
		validation.Field(&i.OrderedIDs, validation.Each(validation.Required)),
	))
}

// MoveChapterInput holds the parameters for re-attaching a chapter subtree
// under another parent. A nil NewParentID moves it to the top level.
type MoveChapterInput struct {
	BookID      uuid.UUID `json:"book_id"`
	ChapterID   string    `json:"chapter_id"`
	NewParentID *string   `json:"new_parent_id"`
	Position    int       `json:"position"`
}

func (i MoveChapterInput) normalize() MoveChapterInput {
	i.ChapterID = strings.TrimSpace(i.ChapterID)
	i.NewParentID = trimOrNil(i.NewParentID)
	return i
}

// Validate checks all fields and collects all errors.
func (i MoveChapterInput) Validate() error {
	return toValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.BookID, requiredUUID),
		validation.Field(&i.ChapterID, chapterIDRules...),
		validation.Field(&i.NewParentID, validation.Length(1, MaxChapterIDLength)),
		validation.Field(&i.Position, validation.Min(0)),
	))
}
