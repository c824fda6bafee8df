package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/internal/infrastructure/repository/memory"
)

func newIdempotentRouter(t *testing.T) (*gin.Engine, repository.IdempotencyRepository, *int) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := memory.NewIdempotencyRepository(memory.NewStore())
	calls := 0

	router := gin.New()
	router.POST("/api/v1/orders", Idempotency(repo), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})
	return router, repo, &calls
}

func postOrders(router *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_CachesSuccessfulResponse(t *testing.T) {
	router, repo, calls := newIdempotentRouter(t)

	first := postOrders(router, "tok-1")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, "tok-1", first.Header().Get(IdempotencyKeyHeader))

	rec, err := repo.GetByKey(context.Background(), "tok-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsFinished())
	assert.Equal(t, http.StatusCreated, rec.ResponseCode)
}

func TestIdempotencyMiddleware_ReplaysFinishedKey(t *testing.T) {
	router, _, calls := newIdempotentRouter(t)

	first := postOrders(router, "tok-1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := postOrders(router, "tok-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	assert.Equal(t, 1, *calls, "handler must not re-run for a finished key")
}

func TestIdempotencyMiddleware_NoKeyRunsEveryTime(t *testing.T) {
	router, _, calls := newIdempotentRouter(t)

	postOrders(router, "")
	postOrders(router, "")
	assert.Equal(t, 2, *calls)
}

func TestIdempotencyMiddleware_InFlightKeyConflicts(t *testing.T) {
	router, repo, calls := newIdempotentRouter(t)

	_, _, err := repo.CreateIfAbsent(context.Background(), &entity.IdempotencyKey{
		Key:           "tok-1",
		RequestMethod: http.MethodPost,
		RequestPath:   "/api/v1/orders",
		RecoveryPoint: enum.RecoveryPointStarted,
	})
	require.NoError(t, err)

	w := postOrders(router, "tok-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, *calls)
}

func TestIdempotencyMiddleware_MismatchedSignatureConflicts(t *testing.T) {
	router, repo, calls := newIdempotentRouter(t)

	_, _, err := repo.CreateIfAbsent(context.Background(), &entity.IdempotencyKey{
		Key:           "tok-1",
		RequestMethod: http.MethodPost,
		RequestPath:   "/api/v1/customers",
		RecoveryPoint: enum.RecoveryPointFinished,
	})
	require.NoError(t, err)

	w := postOrders(router, "tok-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 0, *calls)
}

func TestIdempotencyMiddleware_ConcurrentFirstCallsRunHandlerOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := memory.NewIdempotencyRepository(memory.NewStore())

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	router := gin.New()
	router.POST("/api/v1/orders", Idempotency(repo), func(c *gin.Context) {
		if atomic.AddInt32(&calls, 1) == 1 {
			entered <- struct{}{}
			<-release
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	firstDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		firstDone <- postOrders(router, "same-key")
	}()
	<-entered

	// The key is claimed before the handler runs, so the second call
	// conflicts while the first is still in flight.
	second := postOrders(router, "same-key")
	assert.Equal(t, http.StatusConflict, second.Code)

	close(release)
	first := <-firstDone
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIdempotencyMiddleware_FailedCallReleasesKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := memory.NewIdempotencyRepository(memory.NewStore())

	calls := 0
	router := gin.New()
	router.POST("/api/v1/orders", Idempotency(repo), func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	first := postOrders(router, "tok-1")
	require.Equal(t, http.StatusBadRequest, first.Code)

	rec, err := repo.GetByKey(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Nil(t, rec, "a failed call must not leave the key claimed")

	second := postOrders(router, "tok-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 2, calls)
}
