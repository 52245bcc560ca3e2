package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/comments"
	"folio/api/internal/config"
	"folio/api/internal/content"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/gitrepo"
	"folio/api/internal/search"
	"folio/api/internal/store"
	"folio/api/internal/util"
	"folio/api/internal/validate"
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

// Actor is the comment identity of the session. The zero Session has none.
func (s Session) Actor() *comments.Actor {
	if s.UserID == "" {
		return nil
	}
	return &comments.Actor{ID: s.UserID, Email: s.Email, Name: s.UserName}
}

type dataStore interface {
	comments.Store
	comments.Directory
	sessionStore
	CreateUser(context.Context, store.User) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
}

// sessionStore keeps refresh sessions and revoked access tokens. Both the
// SQL store and the Redis store satisfy it.
type sessionStore interface {
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (string, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(ctx context.Context) error
}

type postLibrary interface {
	List() ([]content.Post, error)
	Get(slug string) (content.Post, error)
	Tags() ([]string, error)
	ByTag(tag string) ([]content.Post, error)
}

type historySource interface {
	History(slug string, limit int) ([]gitrepo.Revision, error)
}

type postSearcher interface {
	Search(q search.Query) search.Response
}

type postExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type mailer interface {
	IsConfigured() bool
	SendReplyNotification(to, recipientName, replierName, postTitle, postSlug, content string) error
	SendProjectRequest(to string, req email.ProjectRequest) error
}

// Deps are the collaborators of a Service. Sessions defaults to Store when
// nil; History, Search, Export and Mail may be nil when not configured.
type Deps struct {
	Store    dataStore
	Sessions sessionStore
	Posts    postLibrary
	History  historySource
	Search   postSearcher
	Export   postExporter
	Mail     mailer
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	posts     postLibrary
	history   historySource
	search    postSearcher
	exporter  postExporter
	mail      mailer
	accounts  *authpw.Service
	validator *validate.Validator
	engine    *comments.Engine

	// sharedSessions is set when refresh sessions live in the main store.
	sharedSessions bool

	// notify runs reply notifications; tests replace it to run synchronously.
	notify func(func())
}

func New(cfg config.Config, deps Deps) *Service {
	v := validate.New()
	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  deps.Sessions,
		posts:     deps.Posts,
		history:   deps.History,
		search:    deps.Search,
		exporter:  deps.Export,
		mail:      deps.Mail,
		accounts:  authpw.NewService(deps.Store, v),
		validator: v,
		notify:    func(fn func()) { go fn() },
	}
	if s.sessions == nil {
		s.sessions = deps.Store
		s.sharedSessions = true
	}
	s.engine = comments.NewEngine(deps.Store, deps.Store, comments.WithNotifier(s))
	return s
}

// Engine exposes the comment engine, for in-process views.
func (s *Service) Engine() *comments.Engine {
	return s.engine
}

// Sessions

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.accounts.SignUp(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.accounts.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
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
		Email: user.Email,
		Name:  user.Name,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Name,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken resolves an access token. Name and email come from the
// signed claims, so a valid token costs one revocation lookup.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    claims.Sub,
		UserName:  claims.Name,
		Email:     claims.Email,
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			log.Printf("auth: revoke access token: %v", err)
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			log.Printf("auth: revoke refresh session: %v", err)
		}
	}
	return nil
}

// Comments

func (s *Service) ListComments(ctx context.Context, postSlug string) (comments.Forest, error) {
	return s.engine.List(ctx, postSlug)
}

func (s *Service) CreateComment(ctx context.Context, session Session, postSlug, text string, parentID *string) (comments.Comment, error) {
	comment, err := s.engine.Create(ctx, session.Actor(), postSlug, text, parentID)
	observeMutation("create", err)
	return comment, err
}

func (s *Service) EditComment(ctx context.Context, session Session, id, text string) (comments.Comment, error) {
	comment, err := s.engine.Edit(ctx, session.Actor(), id, text)
	observeMutation("edit", err)
	return comment, err
}

func (s *Service) DeleteComment(ctx context.Context, session Session, id string) error {
	err := s.engine.Delete(ctx, session.Actor(), id)
	observeMutation("delete", err)
	return err
}

func (s *Service) PinComment(ctx context.Context, session Session, id string, pinned bool) (comments.Comment, error) {
	comment, err := s.engine.TogglePin(ctx, session.Actor(), id, pinned)
	observeMutation("pin", err)
	return comment, err
}

// CommentReplied mails the author of the parent comment. It returns at once;
// lookups and delivery happen in the background and failures are only logged.
func (s *Service) CommentReplied(notice comments.ReplyNotice) {
	if s.mail == nil || !s.mail.IsConfigured() {
		return
	}
	s.notify(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		recipient, err := s.store.GetUserByID(ctx, notice.ParentAuthorID)
		if err != nil {
			log.Printf("email: reply notification for %s: lookup parent author: %v", notice.CommentID, err)
			return
		}
		title := notice.PostSlug
		if post, err := s.posts.Get(notice.PostSlug); err == nil {
			title = post.Title
		}
		err = s.mail.SendReplyNotification(
			recipient.Email,
			recipient.Name,
			notice.Replier.Name,
			title,
			notice.PostSlug,
			notice.Content,
		)
		if err != nil {
			log.Printf("email: reply notification for %s: %v", notice.CommentID, err)
		}
	})
}

// Posts

type PostDetail struct {
	content.Post
	Content string `json:"content"`
	HTML    string `json:"html"`
}

func (s *Service) ListPosts(tag string) ([]content.Post, error) {
	if tag = strings.TrimSpace(tag); tag != "" {
		return s.posts.ByTag(tag)
	}
	return s.posts.List()
}

func (s *Service) GetPost(slug string) (PostDetail, error) {
	post, err := s.posts.Get(slug)
	if err != nil {
		return PostDetail{}, err
	}
	return PostDetail{Post: post, Content: post.Body, HTML: content.Render(post.Body)}, nil
}

func (s *Service) Tags() ([]string, error) {
	return s.posts.Tags()
}

func (s *Service) Search(q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search is not configured", nil)
	}
	return s.search.Search(q), nil
}

func (s *Service) PostHistory(slug string, limit int) ([]gitrepo.Revision, error) {
	if _, err := s.posts.Get(slug); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []gitrepo.Revision{}, nil
	}
	revisions, err := s.history.History(slug, limit)
	if errors.Is(err, gitrepo.ErrNoHistory) {
		return []gitrepo.Revision{}, nil
	}
	return revisions, err
}

func (s *Service) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	if s.exporter == nil {
		return nil, export.ErrPDFDependencyMissing
	}
	return s.exporter.Export(ctx, req)
}

// Contact

type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=50,max=5000"`
}

func (s *Service) Contact(req ContactRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	if s.mail == nil || !s.mail.IsConfigured() || s.cfg.ContactTo == "" {
		return email.ErrNotConfigured
	}
	if err := s.mail.SendProjectRequest(s.cfg.ContactTo, email.ProjectRequest{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}); err != nil {
		return fmt.Errorf("send project request: %w", err)
	}
	return nil
}

// Ping checks the database and, when separate, the session store.
func (s *Service) Ping(ctx context.Context) map[string]error {
	checks := map[string]error{"database": s.store.Ping(ctx)}
	if !s.sharedSessions {
		checks["sessions"] = s.sessions.Ping(ctx)
	}
	return checks
}
