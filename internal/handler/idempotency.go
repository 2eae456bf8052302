package handler

import (
	"bytes"
	"net/http"
	"sync"

	"go-gin-ticket-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// Idempotency 購買類端點的重送保護：同一呼叫者帶相同 Idempotency-Key
// 時直接回放第一次的回應，不再重複扣款。5xx 回應不快取。
type Idempotency struct {
	cache *lru.Cache

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewIdempotency(size int) (*Idempotency, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Idempotency{cache: cache, inFlight: make(map[string]struct{})}, nil
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (m *Idempotency) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if m == nil || key == "" {
			c.Next()
			return
		}
		cacheKey := c.GetHeader(CallerHeader) + "|" + c.Request.Method + "|" + c.Request.URL.Path + "|" + key

		if v, ok := m.cache.Get(cacheKey); ok {
			resp := v.(*cachedResponse)
			c.Header(ReplayedHeader, "true")
			c.Data(resp.status, resp.contentType, resp.body)
			c.Abort()
			return
		}

		if !m.begin(cacheKey) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "request with this idempotency key is in progress",
				"code":  "RequestInProgress",
				"kind":  "state",
			})
			return
		}
		defer m.end(cacheKey)

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		if w.Status() >= http.StatusInternalServerError {
			return
		}
		m.cache.Add(cacheKey, &cachedResponse{
			status:      w.Status(),
			contentType: w.Header().Get("Content-Type"),
			body:        append([]byte(nil), w.body.Bytes()...),
		})
		logger.WithComponent("handler").Debug("idempotent response stored",
			zap.String("path", c.Request.URL.Path), zap.Int("status", w.Status()))
	}
}

func (m *Idempotency) begin(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[key]; busy {
		return false
	}
	m.inFlight[key] = struct{}{}
	return true
}

func (m *Idempotency) end(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, key)
}
