package transform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSheet wraps its input document in the stylesheet source's root name
type fakeSheet struct {
	src    []byte
	closed atomic.Bool
	fail   error
	output []byte
}

func (f *fakeSheet) Transform(xml []byte) ([]byte, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if f.output != nil {
		return f.output, nil
	}
	var buf bytes.Buffer
	buf.WriteString("<" + string(f.src) + ">")
	buf.Write(xml)
	buf.WriteString("</" + string(f.src) + ">")
	return buf.Bytes(), nil
}

func (f *fakeSheet) Close() {
	f.closed.Store(true)
}

type fakeCompiler struct {
	mu     sync.Mutex
	calls  int
	sheets []*fakeSheet
	fail   error
	// configure adjusts each compiled sheet
	configure func(*fakeSheet)
}

func (c *fakeCompiler) compile(src []byte) (stylesheet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	s := &fakeSheet{src: bytes.TrimSpace(src)}
	if c.configure != nil {
		c.configure(s)
	}
	c.sheets = append(c.sheets, s)
	return s, nil
}

func writeSheet(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func newTestEngine(t *testing.T, size int, ttl time.Duration) (*Engine, *fakeCompiler, string) {
	t.Helper()
	dir := t.TempDir()
	c := &fakeCompiler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newEngine(dir, size, ttl, c.compile, logger), c, dir
}

func docOf(t *testing.T, xml string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(xml))
	return doc
}

func TestTransform_AppliesStylesheet(t *testing.T) {
	e, _, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "brief.xsl", "brief")

	out, err := e.Transform(context.Background(), docOf(t, "<record><title>T</title></record>"), "brief.xsl")
	require.NoError(t, err)

	root := out.Root()
	require.NotNil(t, root)
	assert.Equal(t, "brief", root.Tag)
	assert.Equal(t, "T", root.FindElement("record/title").Text())
}

func TestTransform_CachesCompiledStylesheet(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "brief.xsl", "brief")

	for i := 0; i < 3; i++ {
		_, err := e.Transform(context.Background(), docOf(t, "<a/>"), "brief.xsl")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, c.calls)
}

func TestTransform_ConcurrentCompilesOnce(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "annex.xsl", "annex")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Transform(context.Background(), etree.NewDocument(), "annex.xsl")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.calls)
}

func TestTransform_MissingStylesheet(t *testing.T) {
	e, _, _ := newTestEngine(t, 4, time.Hour)

	_, err := e.Transform(context.Background(), docOf(t, "<a/>"), "missing.xsl")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransform)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "missing.xsl", terr.Stylesheet)
}

func TestTransform_CompileError(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "bad.xsl", "<xsl:oops")
	c.fail = errors.New("malformed stylesheet")

	_, err := e.Transform(context.Background(), docOf(t, "<a/>"), "bad.xsl")
	assert.ErrorIs(t, err, ErrTransform)
	assert.Contains(t, err.Error(), "malformed stylesheet")
}

func TestTransform_RuntimeError(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "brief.xsl", "brief")
	c.configure = func(s *fakeSheet) { s.fail = errors.New("xsl:message terminate") }

	_, err := e.Transform(context.Background(), docOf(t, "<a/>"), "brief.xsl")
	assert.ErrorIs(t, err, ErrTransform)
}

func TestTransform_UnparseableOutput(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "brief.xsl", "brief")
	c.configure = func(s *fakeSheet) { s.output = []byte("<open><") }

	_, err := e.Transform(context.Background(), docOf(t, "<a/>"), "brief.xsl")
	assert.ErrorIs(t, err, ErrTransform)
	assert.Contains(t, err.Error(), "parse output")
}

func TestTransform_HTMLOutput(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "annex.xsl", "annex")
	c.configure = func(s *fakeSheet) {
		s.output = []byte("<html><body>\n<p>Terms<br>apply&nbsp;here</p><hr></body></html>\n")
	}

	out, err := e.Transform(context.Background(), docOf(t, "<a/>"), "annex.xsl")
	require.NoError(t, err)

	p := out.FindElement("/html/body/p")
	require.NotNil(t, p)
	assert.NotNil(t, p.SelectElement("br"))
	assert.Contains(t, p.Text(), "Terms")
	assert.NotNil(t, out.FindElement("/html/body/hr"))
}

func TestTransform_CanceledContext(t *testing.T) {
	e, c, dir := newTestEngine(t, 4, time.Hour)
	writeSheet(t, dir, "brief.xsl", "brief")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Transform(ctx, docOf(t, "<a/>"), "brief.xsl")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.calls)
}

func TestEngine_EvictionClosesStylesheet(t *testing.T) {
	e, c, dir := newTestEngine(t, 1, time.Hour)
	writeSheet(t, dir, "one.xsl", "one")
	writeSheet(t, dir, "two.xsl", "two")

	_, err := e.Transform(context.Background(), docOf(t, "<a/>"), "one.xsl")
	require.NoError(t, err)
	_, err = e.Transform(context.Background(), docOf(t, "<a/>"), "two.xsl")
	require.NoError(t, err)

	require.Len(t, c.sheets, 2)
	assert.True(t, c.sheets[0].closed.Load(), "evicted stylesheet should be closed")
	assert.False(t, c.sheets[1].closed.Load())

	e.Close()
	assert.True(t, c.sheets[1].closed.Load())
}

func TestEntry_EvictWhileInUse(t *testing.T) {
	sheet := &fakeSheet{}
	ent := &entry{sheet: sheet}

	require.True(t, ent.acquire())
	ent.evict()
	assert.False(t, sheet.closed.Load(), "must not close while referenced")
	assert.False(t, ent.acquire(), "evicted entry cannot be acquired")

	ent.release()
	assert.True(t, sheet.closed.Load())
}
