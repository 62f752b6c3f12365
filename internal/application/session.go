package application

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bunny/boardhole/internal/domain/entity"
	"github.com/bunny/boardhole/pkg/helpers"
)

func sessionKey(userID int64) string {
	return "user:session:" + strconv.FormatInt(userID, 10)
}

// SessionManager issues and resolves the cookie-backed sessions. The signed
// token only carries the user and session ids; roles live in the Redis hash
// so revocation and role changes take effect without re-login.
type SessionManager struct {
	RDB *redis.Client
	JWT *helpers.SessionTokenManager
	TTL time.Duration
}

func NewSessionManager(rdb *redis.Client, jwt *helpers.SessionTokenManager, ttl time.Duration) *SessionManager {
	return &SessionManager{RDB: rdb, JWT: jwt, TTL: ttl}
}

// Issue records a session for u and returns the signed cookie token.
func (m *SessionManager) Issue(ctx context.Context, u *entity.User) (string, time.Time, error) {
	sid := uuid.NewString()
	token, exp, err := m.JWT.Generate(u.ID, sid)
	if err != nil {
		return "", time.Time{}, err
	}

	key := sessionKey(u.ID)
	fields := map[string]any{
		"user_id":    u.ID,
		"username":   u.Username,
		"name":       u.Name,
		"roles":      strings.Join(entity.RoleNames(u.Roles), ","),
		"sid":        sid,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	pipe := m.RDB.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, m.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Resolve validates a cookie token against the stored session and returns the
// caller principal. Any mismatch yields ErrInvalidCredentials.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := m.JWT.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	data, err := m.RDB.HGetAll(ctx, sessionKey(claims.UserID)).Result()
	if err != nil || len(data) == 0 || data["sid"] != claims.SessionID {
		return nil, ErrInvalidCredentials
	}
	var roles []entity.Role
	if data["roles"] != "" {
		roles = entity.ParseRoles(strings.Split(data["roles"], ","))
	}
	return &Principal{
		ID:       claims.UserID,
		Username: data["username"],
		Roles:    roles,
	}, nil
}

// Revoke drops the session for the given user id.
func (m *SessionManager) Revoke(ctx context.Context, userID int64) error {
	return m.RDB.Del(ctx, sessionKey(userID)).Err()
}
