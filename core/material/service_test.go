package material_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/worksheet"
	emailsvc "github.com/chihwayi/ecd-materials-generator-sub003/services/email"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/blob/memory"
	inmemdb "github.com/chihwayi/ecd-materials-generator-sub003/storage/database/inmem"
	"github.com/chihwayi/ecd-materials-generator-sub003/tests"
)

type fakeRecorder struct {
	mu     sync.Mutex
	ops    map[string]int
	misses []string
}

func (r *fakeRecorder) Observe(op string, ok bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	key := op
	if !ok {
		key += ":error"
	}
	r.ops[key]++
}

func (r *fakeRecorder) RegistryMiss(identifier string) {
	r.mu.Lock()
	r.misses = append(r.misses, identifier)
	r.mu.Unlock()
}

// flakyStore fails the first failures Put calls.
type flakyStore struct {
	core.BlobStore
	failures int
	puts     int
}

func (s *flakyStore) Put(ctx context.Context, key string, r io.Reader, opts core.BlobPutOptions) (core.BlobInfo, error) {
	s.puts++
	if s.puts <= s.failures {
		return core.BlobInfo{}, errors.New("connection reset")
	}
	return s.BlobStore.Put(ctx, key, r, opts)
}

// gatedStore blocks the first Delete call until release is closed.
type gatedStore struct {
	core.BlobStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) Delete(ctx context.Context, key string) (bool, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.BlobStore.Delete(ctx, key)
}

type fixture struct {
	svc     *material.Service
	repo    material.Repository
	blobs   *memory.Store
	metrics *fakeRecorder
	conf    *core.Config
}

func setup(t *testing.T, blobs ...core.BlobStore) fixture {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger(conf)
	testutil.ParseEmailTemplates(conf)

	f := fixture{
		repo:    inmemdb.NewMaterialRepository(inmemdb.Open()),
		blobs:   memory.New(),
		metrics: new(fakeRecorder),
		conf:    conf,
	}
	var store core.BlobStore = f.blobs
	if len(blobs) > 0 {
		store = blobs[0]
	}
	svc, err := material.NewService(material.Deps{
		Repo:    f.repo,
		Blobs:   store,
		MailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
		Logger:  logger,
		Conf:    conf,
		Metrics: f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f fixture) create(t *testing.T, school, title, typ string) material.Material {
	mat, err := f.svc.Create(context.Background(), school, "teacher-1", material.NewMaterial{Title: title, Type: typ})
	require.NoError(t, err)
	return mat
}

func TestNewService(t *testing.T) {
	_, err := material.NewService(material.Deps{})
	assert.Error(t, err)
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	outline := true

	mat, err := f.svc.Create(ctx, "s1", "teacher-1", material.NewMaterial{
		Title:  "Shapes",
		Tags:   []string{"shapes"},
		Canvas: &material.CanvasSettings{Width: 600, Background: "#FFF", Outline: &outline},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, mat.ID)
	assert.Equal(t, "s1", mat.SchoolID)
	assert.Equal(t, material.TypeWorksheet, mat.Type)
	assert.Equal(t, "teacher-1", mat.CreatedBy)
	assert.Equal(t, 0, mat.ElementCount)
	assert.Equal(t, material.DocumentKey("s1", mat.ID), mat.DocumentKey)

	_, doc, err := f.svc.LoadDocument(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 600.0, doc.Canvas.Width)
	assert.Equal(t, f.conf.Worksheet.Height, doc.Canvas.Height)
	assert.True(t, doc.Outline)
	assert.Equal(t, 1, f.metrics.ops["create"])
}

func TestService_GetByID_otherSchool(t *testing.T) {
	f := setup(t)
	mat := f.create(t, "s1", "Mine", "")

	_, err := f.svc.GetByID(context.Background(), "s2", mat.ID)
	assert.Equal(t, material.ErrNotFound, err)

	_, err = f.svc.Update(context.Background(), "s2", mat.ID, material.UpdateMaterial{Title: "stolen"})
	assert.Equal(t, material.ErrNotFound, errors.Cause(err))
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	mat := f.create(t, "s1", "Draft", "")
	desc := "counting to ten"

	got, err := f.svc.Update(context.Background(), "s1", mat.ID, material.UpdateMaterial{Description: &desc, Tags: []string{"counting"}})
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)
	assert.Equal(t, desc, got.Description)
	assert.Equal(t, []string{"counting"}, got.Tags)
}

func TestService_AddElement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	restore := material.SetRandFloat(func() float64 { return 0.5 })
	defer restore()

	mat := f.create(t, "s1", "Sheet", "")

	tests := []struct {
		name       string
		element    material.NewElement
		wantOrigin worksheet.Point
		wantKind   string
	}{
		{
			name:       "explicit position",
			element:    material.NewElement{Identifier: "circle", Position: &worksheet.Point{X: 10, Y: 20}},
			wantOrigin: worksheet.Point{X: 10, Y: 20},
			wantKind:   "circle",
		},
		{
			name:       "random position",
			element:    material.NewElement{Identifier: "square"},
			wantOrigin: worksheet.Point{X: 50 + 0.5*(f.conf.Worksheet.Width-200), Y: 50 + 0.5*(f.conf.Worksheet.Height-200)},
			wantKind:   string(worksheet.KindRectangle),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := f.svc.AddElement(ctx, "s1", mat.ID, tt.element)
			require.NoError(t, err)
			assert.NotEmpty(t, el.ID)
			assert.Equal(t, tt.wantOrigin, el.Body.Origin())
			assert.Equal(t, tt.wantKind, el.Kind())
		})
	}

	got, err := f.svc.GetByID(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ElementCount)
}

func TestService_AddElement_registryMiss(t *testing.T) {
	f := setup(t)
	mat := f.create(t, "s1", "Sheet", "")

	el, err := f.svc.AddElement(context.Background(), "s1", mat.ID, material.NewElement{Identifier: "dragon"})
	require.NoError(t, err)
	assert.NotEmpty(t, el.ID, "placeholder added")
	assert.Equal(t, []string{"dragon"}, f.metrics.misses)

	_, doc, err := f.svc.LoadDocument(context.Background(), "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
}

func TestService_elementEdits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := f.create(t, "s1", "Sheet", "")

	el, err := f.svc.AddElement(ctx, "s1", mat.ID, material.NewElement{Identifier: "square", Position: &worksheet.Point{}})
	require.NoError(t, err)

	moved, err := f.svc.MoveElement(ctx, "s1", mat.ID, el.ID, worksheet.Point{X: 300, Y: 120})
	require.NoError(t, err)
	assert.Equal(t, worksheet.Point{X: 300, Y: 120}, moved.Body.Origin())

	outlined, err := f.svc.ToggleFill(ctx, "s1", mat.ID, el.ID, worksheet.FillOutline)
	require.NoError(t, err)
	shape, ok := outlined.Shape()
	require.True(t, ok)
	assert.Equal(t, worksheet.NoFill, shape.Style.Fill)

	filled, err := f.svc.ToggleFill(ctx, "s1", mat.ID, el.ID, worksheet.FillFilled)
	require.NoError(t, err)
	shape, _ = filled.Shape()
	assert.Equal(t, worksheet.PaletteColorFor(0), shape.Style.Fill)

	_, err = f.svc.MoveElement(ctx, "s1", mat.ID, "unknown", worksheet.Point{})
	assert.True(t, worksheet.IsNotFound(err))
	_, err = f.svc.ToggleFill(ctx, "s1", mat.ID, "unknown", worksheet.FillFilled)
	assert.True(t, worksheet.IsNotFound(err))

	got, err := f.svc.RemoveElement(ctx, "s1", mat.ID, el.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ElementCount)

	// removing twice is a no-op
	_, err = f.svc.RemoveElement(ctx, "s1", mat.ID, el.ID)
	assert.NoError(t, err)

	for _, id := range []string{"circle", "star", "apple"} {
		_, err = f.svc.AddElement(ctx, "s1", mat.ID, material.NewElement{Identifier: id})
		require.NoError(t, err)
	}
	got, err = f.svc.ClearDocument(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ElementCount)
}

func TestService_LoadDocument_missingBlob(t *testing.T) {
	f := setup(t)
	mat := f.create(t, "s1", "Sheet", "")
	_, err := f.blobs.Delete(context.Background(), mat.DocumentKey)
	require.NoError(t, err)

	_, doc, err := f.svc.LoadDocument(context.Background(), "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, f.svc.DefaultCanvas(), doc.Canvas)
}

func TestService_LoadDocument_corruptElements(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := f.create(t, "s1", "Sheet", "")

	stored := `{"version":1,"canvas":{"width":640,"height":480},"elements":[
		{"id":"a","zOrder":0,"kind":"circle","position":{"x":50,"y":50},"radius":30,"style":{"fill":"none","stroke":"#111827","strokeWidth":2}},
		{"id":"b","zOrder":1,"kind":"hexapus","style":{"fill":"none"}}
	]}`
	_, err := f.blobs.Put(ctx, mat.DocumentKey, strings.NewReader(stored), core.BlobPutOptions{ContentType: "application/json"})
	require.NoError(t, err)

	_, doc, err := f.svc.LoadDocument(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
	_, ok := doc.Element("a")
	assert.True(t, ok)

	svg, err := f.svc.RenderPreview(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<circle")

	dup, err := f.svc.Duplicate(ctx, "s1", "teacher-2", mat.ID, material.DuplicateMaterial{})
	require.NoError(t, err)
	assert.Equal(t, 1, dup.ElementCount)

	_, err = f.svc.AddElement(ctx, "s1", mat.ID, material.NewElement{Identifier: "square"})
	require.NoError(t, err)

	// the save drops the corrupt element for good
	_, rc, err := f.blobs.Get(ctx, mat.DocumentKey)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	require.NoError(t, err)
	saved, err := worksheet.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Len())

	// a document that is not JSON at all cannot be recovered
	_, err = f.blobs.Put(ctx, mat.DocumentKey, strings.NewReader("{"), core.BlobPutOptions{ContentType: "application/json"})
	require.NoError(t, err)
	_, _, err = f.svc.LoadDocument(ctx, "s1", mat.ID)
	assert.True(t, worksheet.IsCorrupt(err))
}

func TestService_ReplaceDocument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := f.create(t, "s1", "Sheet", "")

	src := worksheet.New(worksheet.Canvas{Width: 400, Height: 300})
	_, err := src.Place(worksheet.DefaultRegistry(), "sun", worksheet.Point{X: 100, Y: 100})
	require.NoError(t, err)
	data, err := worksheet.Encode(src)
	require.NoError(t, err)

	got, doc, err := f.svc.ReplaceDocument(ctx, "s1", mat.ID, data)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ElementCount)
	assert.Equal(t, 400.0, doc.Canvas.Width)

	_, _, err = f.svc.ReplaceDocument(ctx, "s1", mat.ID, []byte(`{"version":1,"canvas":{"width":1,"height":1},"elements":[{"id":"a","zOrder":0,"kind":"blob"}]}`))
	assert.True(t, worksheet.IsCorrupt(err))

	// the stored document is untouched
	_, doc, err = f.svc.LoadDocument(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
}

func TestService_RenderPreview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := f.create(t, "s1", "Sheet", "")

	svg, err := f.svc.RenderPreview(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = f.blobs.Head(ctx, mat.PreviewKey())
	require.NoError(t, err, "preview cached")

	// edits invalidate the cached preview
	_, err = f.svc.AddElement(ctx, "s1", mat.ID, material.NewElement{Identifier: "circle"})
	require.NoError(t, err)
	_, err = f.blobs.Head(ctx, mat.PreviewKey())
	assert.True(t, core.IsBlobNotFound(err))

	updated, err := f.svc.RenderPreview(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Contains(t, string(updated), "<circle")

	_, err = f.svc.PreviewURL(ctx, "s1", mat.ID)
	assert.Equal(t, core.ErrBlobUnsupported, errors.Cause(err))
}

func TestService_Duplicate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tmpl := f.create(t, "s1", "Farm animals", material.TypeTemplate)
	_, err := f.svc.AddElement(ctx, "s1", tmpl.ID, material.NewElement{Identifier: "tree"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		srcID     string
		data      material.DuplicateMaterial
		wantTitle string
		wantSrc   string
	}{
		{name: "from template", srcID: tmpl.ID, wantTitle: "Farm animals (copy)", wantSrc: tmpl.ID},
		{name: "custom title", srcID: tmpl.ID, data: material.DuplicateMaterial{Title: "Class 2 farm"}, wantTitle: "Class 2 farm", wantSrc: tmpl.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, err := f.svc.Duplicate(ctx, "s1", "teacher-2", tt.srcID, tt.data)
			require.NoError(t, err)
			assert.NotEqual(t, tmpl.ID, dup.ID)
			assert.Equal(t, material.TypeWorksheet, dup.Type)
			assert.Equal(t, tt.wantTitle, dup.Title)
			assert.Equal(t, tt.wantSrc, dup.SourceTemplateID)
			assert.Equal(t, "teacher-2", dup.CreatedBy)
			assert.Equal(t, 1, dup.ElementCount)
		})
	}

	// a copy of a worksheet keeps its template
	first, err := f.svc.Duplicate(ctx, "s1", "teacher-2", tmpl.ID, material.DuplicateMaterial{})
	require.NoError(t, err)
	second, err := f.svc.Duplicate(ctx, "s1", "teacher-2", first.ID, material.DuplicateMaterial{})
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, second.SourceTemplateID)

	_, err = f.svc.Duplicate(ctx, "s2", "teacher-2", tmpl.ID, material.DuplicateMaterial{})
	assert.Equal(t, material.ErrNotFound, errors.Cause(err))
}

func TestService_Share(t *testing.T) {
	emailsvc.ResetSentMessages()
	f := setup(t)
	mat := f.create(t, "s1", "Colours", "")

	err := f.svc.Share(context.Background(), "s1", mat.ID, core.Person{ID: "u1", Username: "ms.moyo"}, material.ShareMaterial{
		To:      []string{"parent@ecd.test"},
		Message: "Practice at home",
	})
	require.NoError(t, err)

	sent := emailsvc.SentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "parent@ecd.test", msg.To[0].Address)
	assert.Equal(t, "Worksheet: Colours", msg.Subject)
	assert.Contains(t, msg.TextContent, "ms.moyo")
	assert.Contains(t, msg.TextContent, "Practice at home")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "worksheet.svg", msg.Attachments[0].Filename)
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.create(t, "s1", "A", "")
	b := f.create(t, "s1", "B", "")
	other := f.create(t, "s2", "C", "")
	_, err := f.svc.RenderPreview(ctx, "s1", a.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "s1", a.ID, other.ID, "unknown"))

	_, err = f.svc.GetByID(ctx, "s1", a.ID)
	assert.Equal(t, material.ErrNotFound, err)
	_, err = f.svc.GetByID(ctx, "s1", b.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetByID(ctx, "s2", other.ID)
	assert.NoError(t, err, "other schools untouched")

	left, err := f.blobs.List(ctx, "materials/s1/"+a.ID+"/")
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 0, f.svc.HeldLocks())
}

func TestService_Delete_concurrentEdit(t *testing.T) {
	mem := memory.New()
	store := &gatedStore{BlobStore: mem, entered: make(chan struct{}), release: make(chan struct{})}
	f := setup(t, store)
	ctx := context.Background()
	mat := f.create(t, "s1", "Doomed", "")

	deleted := make(chan error, 1)
	go func() { deleted <- f.svc.Delete(ctx, "s1", mat.ID) }()
	<-store.entered

	edited := make(chan error, 1)
	go func() {
		_, err := f.svc.AddElement(ctx, "s1", mat.ID, material.NewElement{Identifier: "circle"})
		edited <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	require.NoError(t, <-deleted)
	assert.Equal(t, material.ErrNotFound, errors.Cause(<-edited))

	left, err := mem.List(ctx, "materials/s1/"+mat.ID+"/")
	require.NoError(t, err)
	assert.Empty(t, left, "no document saved after deletion")
	assert.Equal(t, 0, f.svc.HeldLocks())
}

func TestService_retry(t *testing.T) {
	var waits []time.Duration
	restore := material.SetSleep(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})
	defer restore()

	tests := []struct {
		name      string
		attempts  int
		failures  int
		wantErr   bool
		wantWaits []time.Duration
	}{
		{name: "first try", attempts: 3, failures: 0, wantWaits: nil},
		{name: "recovers", attempts: 3, failures: 2, wantWaits: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}},
		{name: "gives up", attempts: 2, failures: 5, wantErr: true, wantWaits: []time.Duration{100 * time.Millisecond}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			waits = nil
			store := &flakyStore{BlobStore: memory.New(), failures: tt.failures}
			f := setup(t, store)
			f.conf.Worksheet.SaveAttempts = tt.attempts

			_, err := f.svc.Create(context.Background(), "s1", "u1", material.NewMaterial{Title: "Retry"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantWaits, waits)
		})
	}
}

func TestService_concurrentEdits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	mat := f.create(t, "s1", "Busy", "")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddElement(ctx, "s1", mat.ID, material.NewElement{Identifier: "circle"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, doc, err := f.svc.LoadDocument(ctx, "s1", mat.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, doc.Len())

	assert.Equal(t, 10, strings.Count(string(worksheet.RenderSVG(doc)), "<circle"))
	assert.Equal(t, 0, f.svc.HeldLocks())
}
