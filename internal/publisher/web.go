package publisher

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/ryosukesatoh/daily-fact/internal/fetcher"
)

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"join": func(authors []string) string { return strings.Join(authors, ", ") },
	"factText": func(rec fetcher.Record) string {
		text, _ := rec.Fact.Text()
		return text
	},
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Daily Fact</title><style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 700px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
.card { border: 1px solid #ddd; border-radius: 8px; padding: 15px; }
.card h2 { margin-top: 0; color: #0f3460; }
.meta { color: #666; font-size: 0.9em; margin-bottom: 10px; }
.fact { background: #f0f0f0; padding: 15px; border-radius: 8px; }
.pending { color: #999; font-style: italic; }
.error { color: #b00020; }
</style></head><body>
<h1>Daily Fact</h1>
{{if .Record}}{{with .Record}}<div class="card">
<h2><a href="{{.Link}}">{{.Title}}</a></h2>
<div class="meta">{{join .Authors}}{{if .Category}} | {{.Category}}{{end}} | {{.Published.Format "January 2, 2006"}}</div>
{{if .Fact.IsReady}}<p class="fact">{{factText .}}</p>{{else}}<p class="pending">Generating fact&hellip;</p>{{end}}
</div>{{end}}{{else}}<p>No record loaded yet. Check back later.</p>{{end}}
{{if .LastError}}<p class="error">{{.LastError}}</p>{{end}}
</body></html>`))

// WebPublisher serves the active record over HTTP and lets clients trigger
// a refresh.
type WebPublisher struct {
	addr      string
	server    *http.Server
	logger    *log.Logger
	mu        sync.RWMutex
	latest    *fetcher.Record
	lastErr   string
	refresher Refresher
}

func NewWebPublisher(addr string, logger *log.Logger) *WebPublisher {
	wp := &WebPublisher{addr: addr, logger: logger.With("component", "web")}
	wp.server = &http.Server{
		Addr:              addr,
		Handler:           wp.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return wp
}

// SetRefresher connects the refresh endpoint and live record lookups to r.
func (wp *WebPublisher) SetRefresher(r Refresher) {
	wp.mu.Lock()
	wp.refresher = r
	wp.mu.Unlock()
}

// Router builds the gin engine serving the web and API routes.
func (wp *WebPublisher) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), wp.requestLogger())
	router.SetHTMLTemplate(indexTemplate)

	router.GET("/", wp.handleIndex)

	api := router.Group("/api")
	{
		api.GET("/record", wp.handleAPIRecord)
		api.POST("/refresh", wp.handleAPIRefresh)
		api.GET("/health", wp.handleAPIHealth)
	}
	return router
}

// Start begins serving HTTP in the background. Call Shutdown to stop.
func (wp *WebPublisher) Start() error {
	ln, err := net.Listen("tcp", wp.addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", wp.addr, err)
	}
	go func() {
		wp.logger.Info("listening", "addr", ln.Addr().String())
		if err := wp.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			wp.logger.Error("server error", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (wp *WebPublisher) Shutdown(ctx context.Context) error {
	return wp.server.Shutdown(ctx)
}

func (wp *WebPublisher) Publish(_ context.Context, ev Event) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	switch ev.Kind {
	case EventRecordLoaded, EventFactReady:
		rec := ev.Record
		wp.latest = &rec
		wp.lastErr = ""
	case EventGenerationFailed:
		wp.lastErr = fmt.Sprintf("Fact generation failed: %v", ev.Err)
	case EventFetchFailed:
		wp.lastErr = fmt.Sprintf("Refresh failed: %v", ev.Err)
	case EventNoRecord:
		wp.lastErr = "The feed returned no entries."
	}
	wp.logger.Debug("updated", "event", ev.Kind, "cycle", ev.Cycle)
	return nil
}

// current prefers the live controller state over the last published event.
func (wp *WebPublisher) current() (fetcher.Record, bool, string) {
	wp.mu.RLock()
	r, latest, lastErr := wp.refresher, wp.latest, wp.lastErr
	wp.mu.RUnlock()

	if r != nil {
		rec, ok := r.CurrentRecord()
		return rec, ok, lastErr
	}
	if latest == nil {
		return fetcher.Record{}, false, lastErr
	}
	return *latest, true, lastErr
}

func (wp *WebPublisher) handleIndex(c *gin.Context) {
	rec, ok, lastErr := wp.current()
	data := gin.H{"LastError": lastErr}
	if ok {
		data["Record"] = rec
	}
	c.HTML(http.StatusOK, "index", data)
}

func (wp *WebPublisher) handleAPIRecord(c *gin.Context) {
	rec, ok, _ := wp.current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no record loaded"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (wp *WebPublisher) handleAPIRefresh(c *gin.Context) {
	wp.mu.RLock()
	r := wp.refresher
	wp.mu.RUnlock()

	if r == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh not available"})
		return
	}
	if err := r.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	rec, ok := r.CurrentRecord()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "empty"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "record": rec})
}

func (wp *WebPublisher) handleAPIHealth(c *gin.Context) {
	_, ok, _ := wp.current()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "loaded": ok})
}

func (wp *WebPublisher) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		wp.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
