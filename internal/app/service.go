package app

import (
	"context"
	"errors"
	"io"
	"time"

	"storymapper/api/internal/auth"
	"storymapper/api/internal/authpw"
	"storymapper/api/internal/config"
	"storymapper/api/internal/rbac"
	"storymapper/api/internal/store"
	"storymapper/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

// DataStore is the persistence surface the service depends on.
// *store.PostgresStore implements it; tests substitute fakes.
type DataStore interface {
	CreateUser(context.Context, store.User) error
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	CreateStoryMap(context.Context, store.StoryMap, store.Release) error
	GetStoryMap(context.Context, string) (store.StoryMap, error)
	ListStoryMapsForUser(context.Context, string) ([]store.StoryMap, error)
	UpdateStoryMap(context.Context, store.StoryMap) error
	DeleteStoryMap(context.Context, string) error
	AddMember(context.Context, string, string, string) error
	RemoveMember(context.Context, string, string) error
	ListMembers(context.Context, string) ([]store.Member, error)
	GetMemberRole(context.Context, string, string) (string, error)

	InsertJourney(context.Context, store.Journey) (store.Journey, error)
	GetJourney(context.Context, string) (store.Journey, error)
	ListJourneys(context.Context, string) ([]store.Journey, error)
	UpdateJourney(context.Context, store.Journey) error
	DeleteJourney(context.Context, string, string) error
	ReorderJourneys(context.Context, string, string, int) error

	InsertStep(context.Context, store.Step) (store.Step, error)
	GetStep(context.Context, string) (store.Step, error)
	ListSteps(context.Context, string) ([]store.Step, error)
	ListStepsByMap(context.Context, string) ([]store.Step, error)
	UpdateStep(context.Context, store.Step) error
	DeleteStep(context.Context, string, string) error
	ReorderSteps(context.Context, string, string, int) error

	InsertRelease(context.Context, store.Release) (store.Release, error)
	GetRelease(context.Context, string) (store.Release, error)
	GetUnassignedRelease(context.Context, string) (store.Release, error)
	ListReleases(context.Context, string) ([]store.Release, error)
	UpdateRelease(context.Context, store.Release) error
	DeleteRelease(context.Context, string, string) (int, error)
	ReorderReleases(context.Context, string, string, int) error

	InsertStory(context.Context, store.Story) (store.Story, error)
	GetStory(context.Context, string) (store.Story, error)
	ListStoriesByMap(context.Context, string) ([]store.Story, error)
	ListStoriesByStep(context.Context, string) ([]store.Story, error)
	UpdateStory(context.Context, store.Story) error
	MoveStory(context.Context, string, string, string, string) (int, error)
	DeleteStory(context.Context, string) (int, []store.Attachment, error)

	InsertStoryLink(context.Context, store.StoryLink) error
	GetStoryLink(context.Context, string) (store.StoryLink, error)
	ListLinksForStory(context.Context, string) ([]store.StoryLink, error)
	DeleteStoryLink(context.Context, string) error

	InsertTag(context.Context, store.Tag) error
	GetTag(context.Context, string) (store.Tag, error)
	ListTags(context.Context, string) ([]store.Tag, error)
	UpdateTag(context.Context, store.Tag) error
	DeleteTag(context.Context, string) error
	AssignTag(context.Context, string, string) error
	UnassignTag(context.Context, string, string) error
	ListTagsForStory(context.Context, string) ([]store.Tag, error)

	InsertPersona(context.Context, store.Persona) error
	GetPersona(context.Context, string) (store.Persona, error)
	ListPersonas(context.Context, string) ([]store.Persona, error)
	UpdatePersona(context.Context, store.Persona) error
	DeletePersona(context.Context, string) error
	AssignPersona(context.Context, string, string) error
	UnassignPersona(context.Context, string, string) error
	ListPersonasForStory(context.Context, string) ([]store.Persona, error)

	InsertComment(context.Context, store.Comment) error
	GetComment(context.Context, string) (store.Comment, error)
	ListComments(context.Context, string) ([]store.Comment, error)
	UpdateComment(context.Context, store.Comment) error
	DeleteComment(context.Context, string) error

	InsertAttachment(context.Context, store.Attachment) error
	GetAttachment(context.Context, string) (store.Attachment, error)
	ListAttachments(context.Context, string) ([]store.Attachment, error)
	DeleteAttachment(context.Context, string) error

	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions. Redis in production, the
// Postgres store doubles as a fallback when Redis is not configured.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, store.User, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
}

// storySearcher indexes stories for full-text lookup. Indexing is
// best-effort; a nil searcher disables the endpoint gracefully.
type storySearcher interface {
	IndexStory(story store.Story)
	RemoveStory(storyMapID, storyID string)
	RemoveMap(storyMapID string)
	Search(ctx context.Context, storyMapID, query string) ([]store.Story, error)
}

// objectStore persists attachment blobs. MinIO in production; a nil
// store disables attachment endpoints.
type objectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// mailer sends member notifications. A nil mailer disables mail.
type mailer interface {
	IsConfigured() bool
	SendMemberAdded(to, userName, inviterName, storyMapName, role string) error
}

type Service struct {
	cfg      config.Config
	store    DataStore
	sessions sessionStore
	accounts *authpw.Service
	search   storySearcher
	files    objectStore
	mail     mailer
}

func New(cfg config.Config, dataStore DataStore, sessions sessionStore, searcher storySearcher, files objectStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		accounts: authpw.NewService(dataStore),
		search:   searcher,
		files:    files,
	}
}

// WithMailer enables member notification mail.
func (s *Service) WithMailer(mail mailer) *Service {
	s.mail = mail
	return s
}

func (s *Service) Signup(ctx context.Context, email, password, displayName string) (Session, error) {
	user, err := s.accounts.SignUp(ctx, authpw.SignUpRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrEmailTaken):
			return Session{}, conflictError("email already registered")
		case errors.Is(err, authpw.ErrWeakPassword):
			return Session{}, validationError(err.Error(), nil)
		default:
			return Session{}, validationError(err.Error(), nil)
		}
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return Session{}, unauthorizedError("invalid email or password")
		}
		return Session{}, validationError(err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, unauthorizedError("invalid refresh token")
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.DisplayName,
		Email: user.Email,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, unauthorizedError("invalid or expired token")
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, unauthorizedError("invalid or expired token")
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Email:     claims.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// Profile returns the authenticated user's account record.
func (s *Service) Profile(ctx context.Context, session Session) (wireUser, error) {
	u, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return wireUser{}, translateStoreError(err, "user")
	}
	return toWireUser(u), nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// roleOnMap resolves the requester's effective role for a story map.
// The owner holds admin implicitly; everyone else needs a member row.
func (s *Service) roleOnMap(ctx context.Context, session Session, storyMapID string) (rbac.Role, error) {
	m, err := s.store.GetStoryMap(ctx, storyMapID)
	if err != nil {
		return "", translateStoreError(err, "story map")
	}
	if m.OwnerID == session.UserID {
		return rbac.RoleAdmin, nil
	}
	role, err := s.store.GetMemberRole(ctx, storyMapID, session.UserID)
	if err != nil {
		return "", accessDeniedError()
	}
	return rbac.Normalize(role), nil
}

// requireAccess enforces the per-map role check for every scoped
// operation. Non-members are rejected before insufficient roles so the
// two failure modes stay distinguishable.
func (s *Service) requireAccess(ctx context.Context, session Session, storyMapID string, action rbac.Action) error {
	role, err := s.roleOnMap(ctx, session, storyMapID)
	if err != nil {
		return err
	}
	if !rbac.Can(role, action) {
		return permissionDeniedError(string(action))
	}
	return nil
}
