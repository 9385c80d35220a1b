package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
)

func newProtectedHandler(t *testing.T) (*rsa.PrivateKey, *goredis.Client, http.Handler) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := ClaimsFromContext(r.Context())
		assert.True(t, ok, "claims must be stored for downstream handlers")
		w.WriteHeader(http.StatusOK)
	})

	return key, rdb, JWTAuth(&key.PublicKey, rdb)(next)
}

func seedSession(t *testing.T, rdb *goredis.Client, userID, jti string) {
	t.Helper()

	now := time.Now().Unix()
	session := types.Session{
		UserId:   userID,
		JTI:      jti,
		IssueAt:  now,
		ExpireAt: now + 3600,
		Status:   "valid",
	}
	require.NoError(t, utils.SetCacheData(context.Background(), rdb, fmt.Sprintf("session:%s", userID), &session, time.Hour))
}

func doRequest(handler http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_AcceptsTokenWithLiveSession(t *testing.T) {
	key, rdb, handler := newProtectedHandler(t)

	userID := uuid.New().String()
	access, _, jti, err := utils.IssueNewTokens(userID, "alice", []string{"user"}, key)
	require.NoError(t, err)
	seedSession(t, rdb, userID, jti)

	rec := doRequest(handler, access)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuth_RejectsRevokedSession(t *testing.T) {
	// a valid signature is not enough: without the redis session the request
	// must be rejected, otherwise logout has no effect until token expiry
	key, _, handler := newProtectedHandler(t)

	access, _, _, err := utils.IssueNewTokens(uuid.New().String(), "alice", []string{"user"}, key)
	require.NoError(t, err)

	rec := doRequest(handler, access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_RejectsLogout(t *testing.T) {
	key, rdb, handler := newProtectedHandler(t)

	userID := uuid.New().String()
	access, _, jti, err := utils.IssueNewTokens(userID, "alice", []string{"user"}, key)
	require.NoError(t, err)
	seedSession(t, rdb, userID, jti)

	require.NoError(t, utils.DeleteCacheData(context.Background(), rdb, fmt.Sprintf("session:%s", userID)))

	rec := doRequest(handler, access)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_RejectsMissingAndMalformedHeaders(t *testing.T) {
	_, _, handler := newProtectedHandler(t)

	assert.Equal(t, http.StatusUnauthorized, doRequest(handler, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(handler, "not-a-token").Code)
}
