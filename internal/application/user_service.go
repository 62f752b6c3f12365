package application

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/bunny/boardhole/config"
	"github.com/bunny/boardhole/internal/domain/entity"
	repo "github.com/bunny/boardhole/internal/domain/repository"
	"github.com/bunny/boardhole/pkg/helpers"
	"github.com/bunny/boardhole/pkg/mailer"
	tpl "github.com/bunny/boardhole/pkg/mailer/templates"
)

// Pagination bounds. Out-of-range values are clamped, never rejected.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

const (
	verifyTokenTTL = 24 * time.Hour
	changeTokenTTL = 24 * time.Hour
)

func keyVerifyToken(t string) string { return "email:verify:token:" + t }
func keyChangeToken(t string) string { return "email:change:token:" + t }

// Pageable echoes the clamped pagination parameters back to the client.
type Pageable struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// Page is the listing envelope.
type Page struct {
	Content       []*entity.User `json:"content"`
	Pageable      Pageable       `json:"pageable"`
	TotalElements int64          `json:"totalElements"`
	TotalPages    int64          `json:"totalPages"`
}

// Service is the user directory. It owns identity, profile, credential, and
// verification state, and hands notification jobs to the dispatcher without
// blocking callers on delivery.
type Service struct {
	Repo         repo.UserRepository
	Tokens       TokenStore
	Mail         mailer.Dispatcher
	Logger       *logrus.Logger
	Cfg          *config.Config
	ES           *elasticsearch.Client
	ESUsersIndex string

	// per-user locks serialize the read-check-write of password changes
	locks sync.Map
}

func NewService(r repo.UserRepository, tokens TokenStore, mail mailer.Dispatcher, logger *logrus.Logger, cfg *config.Config, es *elasticsearch.Client, esUsersIndex string) *Service {
	return &Service{
		Repo:         r,
		Tokens:       tokens,
		Mail:         mail,
		Logger:       logger,
		Cfg:          cfg,
		ES:           es,
		ESUsersIndex: esUsersIndex,
	}
}

func (s *Service) userLock(id int64) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// SignupInput carries the validated signup payload.
type SignupInput struct {
	Username string
	Email    string
	Name     string
	Password string
}

// Signup creates a user with the USER role. When email verification is
// required the account starts unverified and a verification mail goes out;
// otherwise the account is verified immediately and greeted with the welcome
// mail.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Username:      in.Username,
		Email:         in.Email,
		Name:          in.Name,
		Password:      hash,
		Roles:         []entity.Role{entity.RoleUser},
		EmailVerified: !s.Cfg.RequireEmailVerification,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	if s.Cfg.RequireEmailVerification {
		if err := s.sendSignupVerification(ctx, u); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("signup verification dispatch failed")
		}
	} else {
		s.dispatch(ctx, mailer.EmailJob{
			To:       u.Email,
			Template: tpl.Welcome,
			Data:     tpl.NewWelcomeData(s.Cfg, u.Name, u.Username, u.Email),
		})
	}

	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) sendSignupVerification(ctx context.Context, u *entity.User) error {
	token, err := helpers.GenToken(32)
	if err != nil {
		return err
	}
	if err := s.Tokens.Set(ctx, keyVerifyToken(token), strconv.FormatInt(u.ID, 10), verifyTokenTTL); err != nil {
		return err
	}
	s.dispatch(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.SignupVerification,
		Data:     tpl.NewSignupVerificationData(s.Cfg, u.Name, u.Username, u.Email, token, tpl.WithExpiresIn(verifyTokenTTL)),
	})
	return nil
}

// ConfirmVerification marks the account behind the token verified and sends
// the welcome mail.
func (s *Service) ConfirmVerification(ctx context.Context, token string) (*entity.User, error) {
	raw, err := s.Tokens.Get(ctx, keyVerifyToken(token))
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	u.EmailVerified = true
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	_ = s.Tokens.Del(ctx, keyVerifyToken(token))

	s.dispatch(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(s.Cfg, u.Name, u.Username, u.Email),
	})
	s.indexUser(ctx, u)
	return u, nil
}

// Authenticate validates username/password for login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns a page of users. page and size are clamped server-side:
// negative page becomes 0, non-positive size becomes the default, oversized
// size is capped. An out-of-range page yields an empty content slice, not an
// error. Whitespace-only search means no filter.
func (s *Service) List(ctx context.Context, page, size int, search string) (*Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	// Keep page*size within int32 so the offset never wraps negative; a
	// page that far out resolves to an empty slice anyway.
	if page > math.MaxInt32/size {
		page = math.MaxInt32 / size
	}
	search = strings.TrimSpace(search)

	users, total, err := s.Repo.List(ctx, repo.ListQuery{
		Offset: page * size,
		Limit:  size,
		Search: search,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*entity.User{}
	}
	totalPages := total / int64(size)
	if total%int64(size) != 0 {
		totalPages++
	}
	return &Page{
		Content:       users,
		Pageable:      Pageable{PageNumber: page, PageSize: size},
		TotalElements: total,
		TotalPages:    totalPages,
	}, nil
}

// Update replaces the display name. Content is stored verbatim; rendering
// layers are responsible for escaping.
func (s *Service) Update(ctx context.Context, id int64, name string) (*entity.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = name
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.indexUser(ctx, u)
	return u, nil
}

// ChangePassword verifies the current credential and stores the new hash.
// The check-and-set is serialized per user id so concurrent changes cannot
// both pass the current-password check against a stale value.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, newPassword string) error {
	mu := s.userLock(id)
	mu.Lock()
	defer mu.Unlock()

	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !helpers.CompareHashAndPassword(u.Password, current) {
		return ErrInvalidCredentials
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes the user. Repeating the call yields ErrNotFound; ids are
// never reinstated.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.removeUserIndex(ctx, id)
	return nil
}

// RequestEmailChange issues a change token and mails a verification link to
// the prospective address. The stored email stays untouched until confirmed.
func (s *Service) RequestEmailChange(ctx context.Context, id int64, newEmail string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	token, err := helpers.GenToken(32)
	if err != nil {
		return err
	}
	payload, _ := json.Marshal(map[string]string{
		"user_id": strconv.FormatInt(u.ID, 10),
		"email":   newEmail,
	})
	if err := s.Tokens.Set(ctx, keyChangeToken(token), string(payload), changeTokenTTL); err != nil {
		return err
	}
	s.dispatch(ctx, mailer.EmailJob{
		To:       newEmail,
		Template: tpl.EmailChangeVerification,
		Data:     tpl.NewEmailChangeVerificationData(s.Cfg, u.Name, u.Username, newEmail, token, tpl.WithExpiresIn(changeTokenTTL)),
	})
	return nil
}

// ConfirmEmailChange applies the pending change behind the token and notifies
// the new address.
func (s *Service) ConfirmEmailChange(ctx context.Context, token string) (*entity.User, error) {
	raw, err := s.Tokens.Get(ctx, keyChangeToken(token))
	if err != nil {
		return nil, err
	}
	var payload struct {
		UserID string `json:"user_id"`
		Email  string `json:"email"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, ErrInvalidToken
	}
	id, err := strconv.ParseInt(payload.UserID, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	u.Email = payload.Email
	u.EmailVerified = true
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	_ = s.Tokens.Del(ctx, keyChangeToken(token))

	s.dispatch(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.EmailChanged,
		Data:     tpl.NewEmailChangedData(s.Cfg, u.Name, u.Username, u.Email),
	})
	s.indexUser(ctx, u)
	return u, nil
}

func (s *Service) dispatch(ctx context.Context, job mailer.EmailJob) {
	if s.Mail == nil || (s.Cfg != nil && !s.Cfg.MailSendEnabled) {
		return
	}
	s.Mail.Dispatch(ctx, job)
}

// ---- Elasticsearch (best-effort, nil-guarded) ----

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	doc := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"name":       u.Name,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{
		Index:      s.ESUsersIndex,
		DocumentID: strconv.FormatInt(u.ID, 10),
		Body:       strings.NewReader(string(b)),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
}

func (s *Service) removeUserIndex(ctx context.Context, id int64) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: strconv.FormatInt(id, 10)}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}

// SearchUsers performs a multi_match search on username, email, and name.
// Returns an empty result when Elasticsearch is not configured.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "email^2", "name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESUsersIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
