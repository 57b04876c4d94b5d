package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StoryMap struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is a user granted access to a story map. The owner is not
// stored as a member row; callers treat ownership as an implicit admin.
type Member struct {
	StoryMapID  string
	UserID      string
	Role        string
	DisplayName string
	Email       string
	AddedAt     time.Time
}

type Journey struct {
	ID          string
	StoryMapID  string
	Name        string
	Description string
	Color       string
	SortOrder   int
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Step carries StoryMapID derived through its journey so ownership can
// be checked without a second query.
type Step struct {
	ID          string
	JourneyID   string
	StoryMapID  string
	Name        string
	Description string
	SortOrder   int
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Release struct {
	ID           string
	StoryMapID   string
	Name         string
	Description  string
	StartDate    *time.Time
	DueDate      *time.Time
	Shipped      bool
	IsUnassigned bool
	SortOrder    int
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Story statuses.
const (
	StatusNotReady   = "NOT_READY"
	StatusReady      = "READY"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusBlocked    = "BLOCKED"
)

// Story carries StoryMapID derived through step -> journey so ownership
// can be checked without extra queries. Its cell is (StepID, ReleaseID).
type Story struct {
	ID          string
	StepID      string
	ReleaseID   string
	StoryMapID  string
	Title       string
	Description string
	Status      string
	Size        *int
	SortOrder   int
	Labels      string
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Story link types.
const (
	LinkLinkedTo       = "LINKED_TO"
	LinkBlocks         = "BLOCKS"
	LinkIsBlockedBy    = "IS_BLOCKED_BY"
	LinkDuplicates     = "DUPLICATES"
	LinkIsDuplicatedBy = "IS_DUPLICATED_BY"
)

type StoryLink struct {
	ID            string
	SourceStoryID string
	TargetStoryID string
	LinkType      string
	CreatedAt     time.Time
}

type Tag struct {
	ID         string
	StoryMapID string
	Name       string
	Color      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Persona struct {
	ID          string
	StoryMapID  string
	Name        string
	Description string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment snapshots the author's display name at creation time; a later
// profile rename does not rewrite old comments.
type Comment struct {
	ID         string
	StoryID    string
	AuthorID   string
	AuthorName string
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Attachment struct {
	ID          string
	StoryID     string
	StoryMapID  string
	FileName    string
	ContentType string
	Size        int64
	ObjectKey   string
	UploadedBy  string
	CreatedAt   time.Time
}
