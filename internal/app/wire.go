package app

import (
	"time"

	"storymapper/api/internal/store"
)

// Wire types are the JSON shapes shared by the REST handlers and the
// collaboration gateway, so both surfaces emit identical payloads.

type wireUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type wireStoryMap struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wireMember struct {
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AddedAt     time.Time `json:"added_at"`
}

type wireJourney struct {
	ID          string    `json:"id"`
	StoryMapID  string    `json:"story_map_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	SortOrder   int       `json:"sort_order"`
	CreatedBy   string    `json:"created_by"`
	UpdatedBy   string    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wireStep struct {
	ID          string    `json:"id"`
	JourneyID   string    `json:"journey_id"`
	StoryMapID  string    `json:"story_map_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	CreatedBy   string    `json:"created_by"`
	UpdatedBy   string    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wireRelease struct {
	ID           string     `json:"id"`
	StoryMapID   string     `json:"story_map_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	StartDate    *time.Time `json:"start_date"`
	DueDate      *time.Time `json:"due_date"`
	Shipped      bool       `json:"shipped"`
	IsUnassigned bool       `json:"is_unassigned"`
	SortOrder    int        `json:"sort_order"`
	CreatedBy    string     `json:"created_by"`
	UpdatedBy    string     `json:"updated_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type wireStory struct {
	ID          string    `json:"id"`
	StepID      string    `json:"step_id"`
	ReleaseID   string    `json:"release_id"`
	StoryMapID  string    `json:"story_map_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Size        *int      `json:"size"`
	SortOrder   int       `json:"sort_order"`
	Labels      string    `json:"labels"`
	CreatedBy   string    `json:"created_by"`
	UpdatedBy   string    `json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wireStoryLink struct {
	ID            string    `json:"id"`
	SourceStoryID string    `json:"source_story_id"`
	TargetStoryID string    `json:"target_story_id"`
	LinkType      string    `json:"link_type"`
	CreatedAt     time.Time `json:"created_at"`
}

type wireTag struct {
	ID         string    `json:"id"`
	StoryMapID string    `json:"story_map_id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type wirePersona struct {
	ID          string    `json:"id"`
	StoryMapID  string    `json:"story_map_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wireComment struct {
	ID         string    `json:"id"`
	StoryID    string    `json:"story_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type wireAttachment struct {
	ID          string    `json:"id"`
	StoryID     string    `json:"story_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// wireBoard is the full grid for a story map: everything a client needs
// to render journeys across the top, releases down the side and stories
// in the cells.
type wireBoard struct {
	StoryMap wireStoryMap  `json:"story_map"`
	Journeys []wireJourney `json:"journeys"`
	Steps    []wireStep    `json:"steps"`
	Releases []wireRelease `json:"releases"`
	Stories  []wireStory   `json:"stories"`
}

func toWireUser(u store.User) wireUser {
	return wireUser{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email, AvatarURL: u.AvatarURL}
}

func toWireStoryMap(m store.StoryMap) wireStoryMap {
	return wireStoryMap{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		OwnerID:     m.OwnerID,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toWireMember(m store.Member) wireMember {
	return wireMember{
		UserID:      m.UserID,
		Role:        m.Role,
		DisplayName: m.DisplayName,
		Email:       m.Email,
		AddedAt:     m.AddedAt,
	}
}

func toWireJourney(j store.Journey) wireJourney {
	return wireJourney{
		ID:          j.ID,
		StoryMapID:  j.StoryMapID,
		Name:        j.Name,
		Description: j.Description,
		Color:       j.Color,
		SortOrder:   j.SortOrder,
		CreatedBy:   j.CreatedBy,
		UpdatedBy:   j.UpdatedBy,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

func toWireStep(s store.Step) wireStep {
	return wireStep{
		ID:          s.ID,
		JourneyID:   s.JourneyID,
		StoryMapID:  s.StoryMapID,
		Name:        s.Name,
		Description: s.Description,
		SortOrder:   s.SortOrder,
		CreatedBy:   s.CreatedBy,
		UpdatedBy:   s.UpdatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toWireRelease(r store.Release) wireRelease {
	return wireRelease{
		ID:           r.ID,
		StoryMapID:   r.StoryMapID,
		Name:         r.Name,
		Description:  r.Description,
		StartDate:    r.StartDate,
		DueDate:      r.DueDate,
		Shipped:      r.Shipped,
		IsUnassigned: r.IsUnassigned,
		SortOrder:    r.SortOrder,
		CreatedBy:    r.CreatedBy,
		UpdatedBy:    r.UpdatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toWireStory(st store.Story) wireStory {
	return wireStory{
		ID:          st.ID,
		StepID:      st.StepID,
		ReleaseID:   st.ReleaseID,
		StoryMapID:  st.StoryMapID,
		Title:       st.Title,
		Description: st.Description,
		Status:      st.Status,
		Size:        st.Size,
		SortOrder:   st.SortOrder,
		Labels:      st.Labels,
		CreatedBy:   st.CreatedBy,
		UpdatedBy:   st.UpdatedBy,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

func toWireStoryLink(l store.StoryLink) wireStoryLink {
	return wireStoryLink{
		ID:            l.ID,
		SourceStoryID: l.SourceStoryID,
		TargetStoryID: l.TargetStoryID,
		LinkType:      l.LinkType,
		CreatedAt:     l.CreatedAt,
	}
}

func toWireTag(t store.Tag) wireTag {
	return wireTag{
		ID:         t.ID,
		StoryMapID: t.StoryMapID,
		Name:       t.Name,
		Color:      t.Color,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func toWirePersona(p store.Persona) wirePersona {
	return wirePersona{
		ID:          p.ID,
		StoryMapID:  p.StoryMapID,
		Name:        p.Name,
		Description: p.Description,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toWireComment(c store.Comment) wireComment {
	return wireComment{
		ID:         c.ID,
		StoryID:    c.StoryID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func toWireAttachment(a store.Attachment) wireAttachment {
	return wireAttachment{
		ID:          a.ID,
		StoryID:     a.StoryID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Size:        a.Size,
		UploadedBy:  a.UploadedBy,
		CreatedAt:   a.CreatedAt,
	}
}

func toWireJourneys(items []store.Journey) []wireJourney {
	out := make([]wireJourney, 0, len(items))
	for _, j := range items {
		out = append(out, toWireJourney(j))
	}
	return out
}

func toWireSteps(items []store.Step) []wireStep {
	out := make([]wireStep, 0, len(items))
	for _, st := range items {
		out = append(out, toWireStep(st))
	}
	return out
}

func toWireReleases(items []store.Release) []wireRelease {
	out := make([]wireRelease, 0, len(items))
	for _, r := range items {
		out = append(out, toWireRelease(r))
	}
	return out
}

func toWireStories(items []store.Story) []wireStory {
	out := make([]wireStory, 0, len(items))
	for _, st := range items {
		out = append(out, toWireStory(st))
	}
	return out
}

// Input types. Pointer fields distinguish "absent" from "set to zero"
// so a PATCH never clobbers a field the client did not send.

type CreateStoryMapInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateStoryMapInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type MemberInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type CreateJourneyInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type UpdateJourneyInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

type CreateStepInput struct {
	JourneyID   string `json:"journey_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateStepInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CreateReleaseInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateReleaseInput struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	Shipped     *bool      `json:"shipped"`
}

type ReorderInput struct {
	NewSortOrder int `json:"new_sort_order"`
}

type CreateStoryInput struct {
	StepID      string `json:"step_id"`
	ReleaseID   string `json:"release_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Size        *int   `json:"size"`
	Labels      string `json:"labels"`
}

type UpdateStoryInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Size        *int    `json:"size"`
	Labels      *string `json:"labels"`
	SortOrder   *int    `json:"sort_order"`
}

type MoveStoryInput struct {
	StepID    string `json:"step_id"`
	ReleaseID string `json:"release_id"`
}

type CreateLinkInput struct {
	SourceStoryID string `json:"source_story_id"`
	TargetStoryID string `json:"target_story_id"`
	LinkType      string `json:"link_type"`
}

type CreateTagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type UpdateTagInput struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type CreatePersonaInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url"`
}

type UpdatePersonaInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
}

type CommentInput struct {
	Content string `json:"content"`
}
