package middleware

import (
	"bytes"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/sokoflow/commerce-api/internal/application/service"
	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

// IdempotencyKeyHeader is the HTTP header for idempotency keys
const IdempotencyKeyHeader = "Idempotency-Key"

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency makes simple single-stage POST endpoints replayable under the
// Idempotency-Key header. The key is claimed before the handler runs, so of
// two concurrent first calls exactly one executes and the other observes the
// in-flight record and conflicts. A finished key returns its cached
// response; a handler failure releases the key so the client's retry
// re-executes. Multi-stage operations do not use this middleware; they drive
// the key service through their own workflow.
func Idempotency(repo repository.IdempotencyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		signature := service.BuildRequestParams(params)

		rec := &entity.IdempotencyKey{
			Key:           key,
			RequestMethod: c.Request.Method,
			RequestPath:   c.FullPath(),
			RequestParams: signature,
			RecoveryPoint: enum.RecoveryPointStarted,
		}
		stored, created, err := repo.CreateIfAbsent(c.Request.Context(), rec)
		if err != nil {
			log.Printf("idempotency middleware: claim key %s: %v", key, err)
			c.Next()
			return
		}

		if !created {
			if !stored.MatchesRequest(c.Request.Method, c.FullPath(), signature) {
				abortWith(c, apperror.ErrMismatchedRequest)
				return
			}
			if stored.IsFinished() {
				c.Header(IdempotencyKeyHeader, stored.Key)
				c.Header("X-Idempotency-Replayed", "true")
				c.Data(stored.ResponseCode, "application/json", []byte(stored.ResponseBody))
				c.Abort()
				return
			}
			abortWith(c, apperror.ErrIdempotencyLocked)
			return
		}

		blw := &responseWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Header(IdempotencyKeyHeader, key)

		c.Next()

		// Only successful responses become replayable; a failed call
		// releases the claimed key so the client's retry re-executes the
		// handler.
		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			point := enum.RecoveryPointFinished
			code := c.Writer.Status()
			body := blw.body.String()
			_, err := repo.Update(c.Request.Context(), key, repository.KeyPatch{
				RecoveryPoint: &point,
				ResponseCode:  &code,
				ResponseBody:  &body,
			})
			if err != nil {
				log.Printf("idempotency middleware: finish key %s: %v", key, err)
			}
			return
		}

		if err := repo.Delete(c.Request.Context(), key); err != nil {
			log.Printf("idempotency middleware: release key %s: %v", key, err)
		}
	}
}

func abortWith(c *gin.Context, appErr *apperror.AppError) {
	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"success": false,
		"message": appErr.Message,
	})
}
