package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// brotliMinLength is the smallest body worth compressing. Responses
// below it are written through uncompressed.
const brotliMinLength = 1024

type brotliWriter struct {
	gin.ResponseWriter
	bw         *brotli.Writer
	buf        []byte
	once       sync.Once
	compressed bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	w.buf = append(w.buf, data...)
	if len(w.buf) < brotliMinLength {
		return len(data), nil
	}

	w.once.Do(func() {
		w.compressed = true
		w.ResponseWriter.Header().Set("Content-Encoding", "br")
		w.ResponseWriter.Header().Del("Content-Length")
	})

	n, err := w.bw.Write(w.buf)
	w.buf = w.buf[:0]
	return n, err
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// passthrough writes any body that stayed under the threshold.
func (w *brotliWriter) passthrough() error {
	if len(w.buf) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.buf)
	w.buf = nil
	return err
}

// Brotli compresses responses for clients that advertise br support.
// Bodies under brotliMinLength and WebSocket upgrades pass through;
// wrapping the upgrade response would break the handshake.
func Brotli() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			c.Next()
			return
		}
		if !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &brotliWriter{
			ResponseWriter: c.Writer,
			bw:             brotli.NewWriterLevel(c.Writer, brotli.DefaultCompression),
		}
		c.Writer = w

		defer func() {
			if err := w.passthrough(); err != nil {
				_ = c.Error(err)
			}
			if w.compressed {
				w.bw.Close()
			}
		}()

		c.Next()
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.ToLower(enc)) == "br" {
			return true
		}
	}
	return false
}
