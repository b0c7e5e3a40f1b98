package domain

// ChapterStatus represents the editorial state of a chapter.
type ChapterStatus string

const (
	ChapterStatusDraft      ChapterStatus = "draft"
	ChapterStatusInProgress ChapterStatus = "in-progress"
	ChapterStatusCompleted  ChapterStatus = "completed"
	ChapterStatusPublished  ChapterStatus = "published"

	// ChapterStatusDeleted is set only by soft delete and cannot be requested directly.
	ChapterStatusDeleted ChapterStatus = "deleted"
)

func (s ChapterStatus) String() string { return string(s) }

// IsValid reports whether s is a status a caller may request.
func (s ChapterStatus) IsValid() bool {
	switch s {
	case ChapterStatusDraft, ChapterStatusInProgress, ChapterStatusCompleted, ChapterStatusPublished:
		return true
	}
	return false
}

var chapterTransitions = map[ChapterStatus][]ChapterStatus{
	ChapterStatusDraft:      {ChapterStatusInProgress},
	ChapterStatusInProgress: {ChapterStatusDraft, ChapterStatusCompleted},
	ChapterStatusCompleted:  {ChapterStatusInProgress, ChapterStatusPublished},
	ChapterStatusPublished:  {ChapterStatusCompleted},
}

// CanTransitionTo reports whether a chapter in state s may move to next.
// Staying in the same state is always allowed.
func (s ChapterStatus) CanTransitionTo(next ChapterStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range chapterTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AuditAction represents the kind of TOC mutation recorded in the audit log.
type AuditAction string

const (
	AuditActionAddChapter     AuditAction = "ADD_CHAPTER"
	AuditActionUpdateChapter  AuditAction = "UPDATE_CHAPTER"
	AuditActionDeleteChapter  AuditAction = "DELETE_CHAPTER"
	AuditActionRestoreChapter AuditAction = "RESTORE_CHAPTER"
	AuditActionReorder        AuditAction = "REORDER_CHAPTERS"
	AuditActionMoveChapter    AuditAction = "MOVE_CHAPTER"
	AuditActionPurge          AuditAction = "PURGE_DELETED"
)

func (a AuditAction) String() string { return string(a) }

func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionAddChapter, AuditActionUpdateChapter, AuditActionDeleteChapter,
		AuditActionRestoreChapter, AuditActionReorder, AuditActionMoveChapter, AuditActionPurge:
		return true
	}
	return false
}

// AuditOutcome tells whether the audited mutation was committed.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "SUCCESS"
	AuditOutcomeFailure AuditOutcome = "FAILURE"
)

func (o AuditOutcome) String() string { return string(o) }

// TOCStatus is the free-form status of a whole table of contents.
const (
	TOCStatusGenerated = "generated"
	TOCStatusEdited    = "edited"
)
