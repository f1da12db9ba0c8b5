package data

import (
	"context"
	"strconv"
	"time"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	pkgredis "github.com/lk2023060901/filestore-backend/internal/pkg/redis"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "upload_session:"
	sessionActivityKey = "upload_sessions:activity"

	// DefaultSessionTTL 兜底过期时间，正常情况下由空闲清理任务先行回收
	DefaultSessionTTL = 24 * time.Hour
)

// KEYS[1] session hash, KEYS[2] activity zset
// ARGV: session id, last_activity_at, score, user id, ttl ms
const incrementSessionScript = `
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
    return {}
end
redis.call('HINCRBY', KEYS[1], 'file_count', 1)
redis.call('HSET', KEYS[1], 'last_activity_at', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[4])
return redis.call('HGETALL', KEYS[1])
`

// ARGV: session id (empty matches any), user id
const deleteSessionScript = `
if ARGV[1] ~= '' and redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
    return 0
end
local n = redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[2])
return n
`

// SessionStore 基于 Redis 的上传会话存储。
// 每个用户一个哈希，另有一个按最后活跃时间排序的有序集合用于空闲清理。
type SessionStore struct {
	rdb *pkgredis.Client
	ttl time.Duration
}

// NewSessionStore 创建 Redis 会话存储，ttl <= 0 时使用默认值
func NewSessionStore(rdb *pkgredis.Client, ttl time.Duration) biz.SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func activityScore(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Get 获取用户当前会话
func (s *SessionStore) Get(ctx context.Context, userID int64) (*biz.UploadSession, error) {
	fields, err := s.rdb.HGetAll(ctx, sessionKey(userID))
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeSession(fields)
}

// Put 写入会话，覆盖用户已有的会话
func (s *SessionStore) Put(ctx context.Context, sess *biz.UploadSession) error {
	key := sessionKey(sess.UserID)
	err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, encodeSession(sess)...)
		p.PExpire(ctx, key, s.ttl)
		p.ZAdd(ctx, sessionActivityKey, redis.Z{
			Score:  activityScore(sess.LastActivityAt),
			Member: strconv.FormatInt(sess.UserID, 10),
		})
		return nil
	})
	if err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

// Increment 会话文件数 +1；会话不存在或已被替换时返回 nil
func (s *SessionStore) Increment(ctx context.Context, userID int64, sessionID string, at time.Time) (*biz.UploadSession, error) {
	res, err := s.rdb.Eval(ctx, incrementSessionScript,
		[]string{sessionKey(userID), sessionActivityKey},
		sessionID,
		at.UTC().Format(time.RFC3339Nano),
		activityScore(at),
		strconv.FormatInt(userID, 10),
		s.ttl.Milliseconds(),
	)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	pairs, ok := res.([]interface{})
	if !ok || len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, _ := pairs[i].(string)
		v, _ := pairs[i+1].(string)
		fields[k] = v
	}
	return decodeSession(fields)
}

// Delete 删除会话；sessionID 非空时只删除该会话
func (s *SessionStore) Delete(ctx context.Context, userID int64, sessionID string) (bool, error) {
	res, err := s.rdb.Eval(ctx, deleteSessionScript,
		[]string{sessionKey(userID), sessionActivityKey},
		sessionID,
		strconv.FormatInt(userID, 10),
	)
	if err != nil {
		return false, apperrors.NewStoreUnavailableError(err)
	}
	n, _ := res.(int64)
	return n > 0, nil
}

// ListIdle 最后活跃时间早于 before 的会话
func (s *SessionStore) ListIdle(ctx context.Context, before time.Time, limit int) ([]*biz.UploadSession, error) {
	opt := &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(activityScore(before), 'f', -1, 64),
	}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	members, err := s.rdb.ZRangeByScore(ctx, sessionActivityKey, opt)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	var idle []*biz.UploadSession
	for _, member := range members {
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			_, _ = s.rdb.ZRem(ctx, sessionActivityKey, member)
			continue
		}
		sess, err := s.Get(ctx, userID)
		if err != nil {
			return idle, err
		}
		if sess == nil {
			// 哈希已过期，顺手清掉索引
			_, _ = s.rdb.ZRem(ctx, sessionActivityKey, member)
			continue
		}
		idle = append(idle, sess)
	}
	return idle, nil
}

func encodeSession(s *biz.UploadSession) []interface{} {
	return []interface{}{
		"id", s.ID,
		"user_id", strconv.FormatInt(s.UserID, 10),
		"state", string(s.State),
		"mode", string(s.Mode),
		"group_id", strconv.FormatInt(s.GroupID, 10),
		"group_name", s.GroupName,
		"file_count", strconv.Itoa(s.FileCount),
		"started_at", s.StartedAt.UTC().Format(time.RFC3339Nano),
		"last_activity_at", s.LastActivityAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeSession(fields map[string]string) (*biz.UploadSession, error) {
	s := &biz.UploadSession{
		ID:        fields["id"],
		State:     biz.SessionState(fields["state"]),
		Mode:      biz.UploadMode(fields["mode"]),
		GroupName: fields["group_name"],
	}

	var err error
	if s.UserID, err = strconv.ParseInt(fields["user_id"], 10, 64); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "decode session user_id")
	}
	if s.GroupID, err = strconv.ParseInt(fields["group_id"], 10, 64); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "decode session group_id")
	}
	if s.FileCount, err = strconv.Atoi(fields["file_count"]); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "decode session file_count")
	}
	if s.StartedAt, err = time.Parse(time.RFC3339Nano, fields["started_at"]); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "decode session started_at")
	}
	if s.LastActivityAt, err = time.Parse(time.RFC3339Nano, fields["last_activity_at"]); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternalServer, "decode session last_activity_at")
	}
	return s, nil
}
