package transform

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/wamuir/go-xslt"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "annex_xslt_cache_hits_total",
		Help: "Compiled stylesheet cache hits",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "annex_xslt_cache_misses_total",
		Help: "Compiled stylesheet cache misses",
	})
	transformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annex_xslt_transform_duration_seconds",
			Help:    "Time spent applying a stylesheet",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stylesheet"},
	)
)

// stylesheet is a compiled XSLT program
type stylesheet interface {
	Transform(xml []byte) ([]byte, error)
	Close()
}

type compileFunc func(src []byte) (stylesheet, error)

func compileXSLT(src []byte) (stylesheet, error) {
	ss, err := xslt.NewStylesheet(src)
	if err != nil {
		return nil, err
	}
	return libxslt{ss}, nil
}

// libxslt applies a compiled stylesheet without parameters
type libxslt struct {
	*xslt.Stylesheet
}

func (l libxslt) Transform(doc []byte) ([]byte, error) {
	return l.Stylesheet.Transform(doc)
}

// Engine is a Transformer backed by libxslt. Compiled stylesheets are kept in
// an expiring LRU cache keyed by stylesheet name.
type Engine struct {
	dir     string
	cache   *expirable.LRU[string, *entry]
	compile compileFunc
	logger  *slog.Logger

	// serializes compilation so a stylesheet is compiled once per miss
	mu sync.Mutex
}

// NewEngine creates an Engine loading stylesheets from dir
func NewEngine(dir string, cacheSize int, ttl time.Duration, logger *slog.Logger) *Engine {
	return newEngine(dir, cacheSize, ttl, compileXSLT, logger)
}

func newEngine(
	dir string,
	cacheSize int,
	ttl time.Duration,
	compile compileFunc,
	logger *slog.Logger,
) *Engine {
	onEvict := func(name string, ent *entry) {
		logger.Debug("stylesheet evicted", "stylesheet", name)
		ent.evict()
	}
	return &Engine{
		dir:     dir,
		cache:   expirable.NewLRU[string, *entry](cacheSize, onEvict, ttl),
		compile: compile,
		logger:  logger,
	}
}

// Transform applies the stylesheet file named name to doc
func (e *Engine) Transform(
	ctx context.Context,
	doc *etree.Document,
	name string,
) (*etree.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	ent, err := e.acquire(name)
	if err != nil {
		return nil, &Error{Stylesheet: name, Err: err}
	}
	defer ent.release()

	input, err := doc.WriteToBytes()
	if err != nil {
		return nil, &Error{Stylesheet: name, Err: fmt.Errorf("serialize input: %w", err)}
	}

	output, err := ent.sheet.Transform(input)
	if err != nil {
		return nil, &Error{Stylesheet: name, Err: err}
	}

	result := etree.NewDocument()
	// Stylesheets with an html root or method="html" are serialized as HTML
	result.ReadSettings.Permissive = true
	result.ReadSettings.AutoClose = xml.HTMLAutoClose
	result.ReadSettings.Entity = xml.HTMLEntity
	if err := result.ReadFromBytes(output); err != nil {
		return nil, &Error{Stylesheet: name, Err: fmt.Errorf("parse output: %w", err)}
	}

	transformDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return result, nil
}

// Close releases every cached stylesheet
func (e *Engine) Close() {
	e.cache.Purge()
}

func (e *Engine) acquire(name string) (*entry, error) {
	if ent, ok := e.cache.Get(name); ok && ent.acquire() {
		cacheHitsTotal.Inc()
		return ent, nil
	}
	cacheMissesTotal.Inc()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another request may have compiled it while we waited
	if ent, ok := e.cache.Get(name); ok && ent.acquire() {
		return ent, nil
	}

	src, err := os.ReadFile(filepath.Join(e.dir, name))
	if err != nil {
		return nil, fmt.Errorf("load stylesheet: %w", err)
	}
	sheet, err := e.compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile stylesheet: %w", err)
	}
	e.logger.Debug("stylesheet compiled", "stylesheet", name)

	ent := &entry{sheet: sheet}
	ent.acquire()
	// Remove fires the eviction callback for a stale entry that Add would
	// otherwise overwrite silently.
	e.cache.Remove(name)
	e.cache.Add(name, ent)
	return ent, nil
}

// entry reference-counts a compiled stylesheet so that eviction never frees
// it while a transform is running
type entry struct {
	sheet stylesheet

	mu      sync.Mutex
	refs    int
	evicted bool
}

func (e *entry) acquire() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false
	}
	e.refs++
	return true
}

func (e *entry) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refs--
	if e.refs == 0 && e.evicted {
		e.sheet.Close()
	}
}

func (e *entry) evict() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return
	}
	e.evicted = true
	if e.refs == 0 {
		e.sheet.Close()
	}
}
