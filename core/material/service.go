package material

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/worksheet"
)

var (
	// errors
	ErrNotFound = errors.New("material not found")

	NowFunc   = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) } // mockable
	randFloat = rand.Float64                                                            // mockable
	sleepFunc = sleepCtx                                                                // mockable
	newID     = func() string { return uuid.New().String() }                            // mockable

	placeMargin = 50.0
)

const (
	documentContentType = "application/json"
	previewContentType  = "image/svg+xml"
	shareTemplate       = "worksheet_shared"
)

type (
	Repository interface {
		CreateMaterial(ctx context.Context, m Material) (Material, error)
		GetMaterialByID(ctx context.Context, id string) (Material, error)
		// QueryMaterials applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Material.Title or Material.Description.
		QueryMaterials(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Material, error)
		UpdateMaterial(ctx context.Context, m Material) (Material, error)
		DeleteMaterialsByID(ctx context.Context, ids ...string) error
	}

	// Recorder receives per-operation measurements.
	Recorder interface {
		Observe(op string, ok bool, dur time.Duration)
		RegistryMiss(identifier string)
	}

	Deps struct {
		Repo     Repository
		Blobs    core.BlobStore
		MailSvc  core.EmailService
		Logger   core.Logger
		Conf     *core.Config
		Registry *worksheet.Registry // worksheet.DefaultRegistry() when nil
		Metrics  Recorder            // optional
	}

	Service struct {
		repo     Repository
		blobs    core.BlobStore
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
		registry *worksheet.Registry
		metrics  Recorder

		locks keyedMutex
	}

	// keyedMutex hands out one mutex per key and forgets keys nobody holds.
	keyedMutex struct {
		mu   sync.Mutex
		held map[string]*refMutex
	}

	refMutex struct {
		sync.Mutex
		refs int
	}
)

func NewService(deps Deps) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Repo, "Repo"),
		vala.IsNotNil(deps.Blobs, "Blobs"),
		vala.IsNotNil(deps.MailSvc, "MailSvc"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Conf, "Conf"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "material.NewService")
	}

	svc := &Service{
		repo:     deps.Repo,
		blobs:    deps.Blobs,
		mailSvc:  deps.MailSvc,
		logger:   deps.Logger,
		conf:     deps.Conf,
		registry: deps.Registry,
		metrics:  deps.Metrics,
	}
	if svc.registry == nil {
		svc.registry = worksheet.DefaultRegistry()
	}
	if svc.metrics == nil {
		svc.metrics = nopRecorder{}
	}
	return svc, nil
}

func (svc *Service) Registry() *worksheet.Registry { return svc.registry }

// DefaultCanvas is the canvas of new documents.
func (svc *Service) DefaultCanvas() worksheet.Canvas {
	return worksheet.Canvas{
		Width:      svc.conf.Worksheet.Width,
		Height:     svc.conf.Worksheet.Height,
		Background: svc.conf.Worksheet.Background,
	}
}

func documentKey(schoolID, id string) string {
	return fmt.Sprintf("materials/%s/%s/document.json", schoolID, id)
}

func previewKey(schoolID, id string) string {
	return fmt.Sprintf("materials/%s/%s/preview.svg", schoolID, id)
}

func (svc *Service) observe(op string, start time.Time, err *error) {
	svc.metrics.Observe(op, *err == nil, time.Since(start))
}

// lock serializes document edits and deletion of a single material.
func (svc *Service) lock(id string) (unlock func()) {
	return svc.locks.lock(id)
}

func (km *keyedMutex) lock(key string) func() {
	km.mu.Lock()
	if km.held == nil {
		km.held = make(map[string]*refMutex)
	}
	m, ok := km.held[key]
	if !ok {
		m = new(refMutex)
		km.held[key] = m
	}
	m.refs++
	km.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		km.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(km.held, key)
		}
		km.mu.Unlock()
	}
}

func (km *keyedMutex) len() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.held)
}

// Metadata

func (svc *Service) Create(ctx context.Context, schoolID, createdBy string, nm NewMaterial) (mat Material, err error) {
	defer svc.observe("create", time.Now(), &err)

	canvas := svc.DefaultCanvas()
	outline := svc.conf.Worksheet.Outline
	if cs := nm.Canvas; cs != nil {
		if cs.Width > 0 {
			canvas.Width = cs.Width
		}
		if cs.Height > 0 {
			canvas.Height = cs.Height
		}
		if cs.Background != "" {
			canvas.Background = worksheet.NormalizeFill(cs.Background)
		}
		if cs.Outline != nil {
			outline = *cs.Outline
		}
	}
	doc := worksheet.New(canvas)
	doc.Outline = outline

	now := NowFunc()
	id := newID()
	mat = Material{
		ID:          id,
		SchoolID:    schoolID,
		Title:       nm.Title,
		Description: nm.Description,
		Subject:     nm.Subject,
		AgeGroup:    nm.AgeGroup,
		Type:        nm.Type,
		Tags:        nm.Tags,
		DocumentKey: documentKey(schoolID, id),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mat.Type == "" {
		mat.Type = TypeWorksheet
	}
	if mat.Tags == nil {
		mat.Tags = []string{}
	}
	return svc.create(ctx, mat, doc)
}

func (svc *Service) create(ctx context.Context, mat Material, doc *worksheet.Document) (Material, error) {
	mat.ElementCount = doc.Len()
	if err := svc.putDocument(ctx, mat.DocumentKey, doc); err != nil {
		return Material{}, errors.Wrap(err, "saving document")
	}
	created, err := svc.repo.CreateMaterial(ctx, mat)
	if err != nil {
		if _, dErr := svc.blobs.Delete(ctx, mat.DocumentKey); dErr != nil {
			svc.logger.Warn(fmt.Sprintf("deleting orphan document %s: %v", mat.DocumentKey, dErr), dErr)
		}
		return Material{}, errors.Wrap(err, "creating material")
	}
	return created, nil
}

// GetByID returns the material only when it belongs to schoolID.
func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Material, error) {
	mat, err := svc.repo.GetMaterialByID(ctx, id)
	if err != nil {
		return Material{}, err
	}
	if mat.SchoolID != schoolID {
		return Material{}, ErrNotFound
	}
	return mat, nil
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter QueryFilter, orderings ...core.DBOrdering) ([]Material, error) {
	filter.SchoolID = schoolID
	return svc.repo.QueryMaterials(ctx, filter, orderings...)
}

func (svc *Service) Update(ctx context.Context, schoolID, id string, um UpdateMaterial) (mat Material, err error) {
	defer svc.observe("update", time.Now(), &err)

	mat, err = svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return Material{}, err
	}
	mat = um.apply(mat)
	mat.UpdatedAt = NowFunc()
	return svc.repo.UpdateMaterial(ctx, mat)
}

// Delete removes the materials with their document and preview. Unknown IDs
// and materials of other schools are ignored.
func (svc *Service) Delete(ctx context.Context, schoolID string, ids ...string) (err error) {
	defer svc.observe("delete", time.Now(), &err)

	for _, id := range ids {
		if err = svc.delete(ctx, schoolID, id); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) delete(ctx context.Context, schoolID, id string) error {
	unlock := svc.lock(id)
	defer unlock()

	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding material by ID")
	}
	for _, key := range []string{mat.DocumentKey, mat.PreviewKey()} {
		if _, err := svc.blobs.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "deleting blob %s", key)
		}
	}
	return svc.repo.DeleteMaterialsByID(ctx, mat.ID)
}

// Documents

// LoadDocument fetches and decodes the document of a material. A material
// whose document was never stored gets an empty document. Stored elements
// that cannot be rebuilt are dropped and logged; the next save removes them
// for good.
func (svc *Service) LoadDocument(ctx context.Context, schoolID, id string) (Material, *worksheet.Document, error) {
	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return Material{}, nil, err
	}
	doc, err := svc.loadDocument(ctx, mat)
	return mat, doc, err
}

func (svc *Service) loadDocument(ctx context.Context, mat Material) (doc *worksheet.Document, err error) {
	defer svc.observe("load_document", time.Now(), &err)

	var data []byte
	err = svc.retry(ctx, func() error {
		_, rc, err := svc.blobs.Get(ctx, mat.DocumentKey)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		data, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		if core.IsBlobNotFound(err) {
			svc.logger.Warn(fmt.Sprintf("document of material %s not found; starting empty", mat.ID))
			doc = worksheet.New(svc.DefaultCanvas())
			doc.Outline = svc.conf.Worksheet.Outline
			return doc, nil
		}
		return nil, errors.Wrap(err, "fetching document")
	}

	doc, err = worksheet.Decode(data, worksheet.SkipCorrupt())
	if err != nil {
		if doc == nil {
			return nil, errors.Wrapf(err, "decoding document of material %s", mat.ID)
		}
		svc.logger.Warn(fmt.Sprintf("material %s: %v", mat.ID, err), err)
		err = nil
	}
	return doc, nil
}

// SaveDocument stores doc as the document of mat and returns the updated material.
func (svc *Service) SaveDocument(ctx context.Context, mat Material, doc *worksheet.Document) (saved Material, err error) {
	defer svc.observe("save_document", time.Now(), &err)

	if err = svc.putDocument(ctx, mat.DocumentKey, doc); err != nil {
		return Material{}, errors.Wrap(err, "saving document")
	}
	// the preview is rendered again on next request
	if _, err := svc.blobs.Delete(ctx, mat.PreviewKey()); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting stale preview of material %s: %v", mat.ID, err), err)
	}

	mat.ElementCount = doc.Len()
	mat.UpdatedAt = NowFunc()
	saved, err = svc.repo.UpdateMaterial(ctx, mat)
	return saved, errors.Wrap(err, "updating material")
}

func (svc *Service) putDocument(ctx context.Context, key string, doc *worksheet.Document) error {
	data, err := worksheet.Encode(doc)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	return svc.retry(ctx, func() error {
		_, err := svc.blobs.Put(ctx, key, bytes.NewReader(data), core.BlobPutOptions{ContentType: documentContentType})
		return err
	})
}

// retry runs fn up to Worksheet.SaveAttempts times, waiting 100ms longer between
// each attempt. Missing blobs are not retried.
func (svc *Service) retry(ctx context.Context, fn func() error) error {
	maxAttempts := svc.conf.Worksheet.SaveAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = fn(); err == nil || core.IsBlobNotFound(err) {
			return err
		}
		if attempts == maxAttempts {
			break
		}
		if sErr := sleepFunc(ctx, time.Duration(attempts)*100*time.Millisecond); sErr != nil {
			return errors.Wrapf(sErr, "waiting to retry: %v", err)
		}
	}
	return errors.Wrapf(err, "giving up after %d attempts", maxAttempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Edit loads the document of a material, applies fn and saves the result.
// Edits and deletion of the same material are serialized. Nothing is saved when fn fails.
func (svc *Service) Edit(ctx context.Context, schoolID, id string, fn func(doc *worksheet.Document) error) (Material, *worksheet.Document, error) {
	unlock := svc.lock(id)
	defer unlock()

	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return Material{}, nil, err
	}
	doc, err := svc.loadDocument(ctx, mat)
	if err != nil {
		return Material{}, nil, err
	}
	if err = fn(doc); err != nil {
		return Material{}, nil, err
	}
	mat, err = svc.SaveDocument(ctx, mat, doc)
	if err != nil {
		return Material{}, nil, err
	}
	return mat, doc, nil
}

// randomPosition picks a spot on the canvas leaving room for a 100x100 element.
func randomPosition(c worksheet.Canvas) worksheet.Point {
	span := func(size float64) float64 {
		if free := size - 2*placeMargin - 100; free > 0 {
			return placeMargin + randFloat()*free
		}
		return 0
	}
	return worksheet.Point{X: span(c.Width), Y: span(c.Height)}
}

// AddElement places the registry entry ne.Identifier in the document. Unknown
// identifiers add a placeholder so the user still sees something happen.
func (svc *Service) AddElement(ctx context.Context, schoolID, id string, ne NewElement) (el worksheet.Element, err error) {
	defer svc.observe("add_element", time.Now(), &err)

	_, _, err = svc.Edit(ctx, schoolID, id, func(doc *worksheet.Document) error {
		at := randomPosition(doc.Canvas)
		if ne.Position != nil {
			at = *ne.Position
		}
		var pErr error
		el, pErr = doc.Place(svc.registry, ne.Identifier, at)
		if worksheet.IsRegistryMiss(pErr) {
			svc.metrics.RegistryMiss(ne.Identifier)
			svc.logger.Warn(fmt.Sprintf("material %s: %v; placeholder added", id, pErr))
			return nil
		}
		return pErr
	})
	return el, err
}

func (svc *Service) RemoveElement(ctx context.Context, schoolID, id, elementID string) (Material, error) {
	mat, _, err := svc.Edit(ctx, schoolID, id, func(doc *worksheet.Document) error {
		doc.Remove(elementID)
		return nil
	})
	return mat, err
}

func (svc *Service) MoveElement(ctx context.Context, schoolID, id, elementID string, to worksheet.Point) (el worksheet.Element, err error) {
	_, _, err = svc.Edit(ctx, schoolID, id, func(doc *worksheet.Document) error {
		if err := doc.Move(elementID, to); err != nil {
			return err
		}
		el, _ = doc.Element(elementID)
		return nil
	})
	return el, err
}

func (svc *Service) ToggleFill(ctx context.Context, schoolID, id, elementID string, mode worksheet.FillMode) (el worksheet.Element, err error) {
	_, _, err = svc.Edit(ctx, schoolID, id, func(doc *worksheet.Document) error {
		if err := doc.ToggleFill(elementID, mode); err != nil {
			return err
		}
		el, _ = doc.Element(elementID)
		return nil
	})
	return el, err
}

func (svc *Service) ClearDocument(ctx context.Context, schoolID, id string) (Material, error) {
	mat, _, err := svc.Edit(ctx, schoolID, id, func(doc *worksheet.Document) error {
		doc.Clear()
		return nil
	})
	return mat, err
}

// ReplaceDocument overwrites the document of a material with a client-encoded one.
func (svc *Service) ReplaceDocument(ctx context.Context, schoolID, id string, data []byte) (Material, *worksheet.Document, error) {
	doc, err := worksheet.Decode(data)
	if err != nil {
		return Material{}, nil, err
	}
	unlock := svc.lock(id)
	defer unlock()

	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return Material{}, nil, err
	}
	mat, err = svc.SaveDocument(ctx, mat, doc)
	if err != nil {
		return Material{}, nil, err
	}
	return mat, doc, nil
}

// Previews

// RenderPreview returns the SVG preview of a material, rendering and storing
// it when missing.
func (svc *Service) RenderPreview(ctx context.Context, schoolID, id string) (svg []byte, err error) {
	defer svc.observe("render_preview", time.Now(), &err)

	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return svc.renderPreview(ctx, mat)
}

func (svc *Service) renderPreview(ctx context.Context, mat Material) ([]byte, error) {
	_, rc, err := svc.blobs.Get(ctx, mat.PreviewKey())
	if err == nil {
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}
	if !core.IsBlobNotFound(err) {
		return nil, errors.Wrap(err, "fetching preview")
	}

	doc, err := svc.loadDocument(ctx, mat)
	if err != nil {
		return nil, err
	}
	svg := worksheet.RenderSVG(doc)
	err = svc.retry(ctx, func() error {
		_, err := svc.blobs.Put(ctx, mat.PreviewKey(), bytes.NewReader(svg), core.BlobPutOptions{ContentType: previewContentType})
		return err
	})
	if err != nil {
		// the preview is still usable without the cache
		svc.logger.Warn(fmt.Sprintf("storing preview of material %s: %v", mat.ID, err), err)
	}
	return svg, nil
}

// PreviewURL returns a time-limited link to the preview. core.ErrBlobUnsupported
// is returned when the blob store cannot sign URLs.
func (svc *Service) PreviewURL(ctx context.Context, schoolID, id string) (string, error) {
	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return "", err
	}
	if _, err = svc.renderPreview(ctx, mat); err != nil {
		return "", err
	}
	url, err := svc.blobs.PresignURL(ctx, mat.PreviewKey(), core.BlobURLOptions{Expiry: svc.conf.Blob.PresignExpiry})
	if err != nil {
		return "", errors.Wrap(err, "signing preview URL")
	}
	return url, nil
}

// Duplicate creates a worksheet holding a copy of the document of material id.
// Copies of templates remember the template they came from.
func (svc *Service) Duplicate(ctx context.Context, schoolID, createdBy, id string, dm DuplicateMaterial) (mat Material, err error) {
	defer svc.observe("duplicate", time.Now(), &err)

	src, doc, err := svc.LoadDocument(ctx, schoolID, id)
	if err != nil {
		return Material{}, err
	}

	now := NowFunc()
	newMatID := newID()
	mat = Material{
		ID:               newMatID,
		SchoolID:         schoolID,
		Title:            dm.Title,
		Description:      src.Description,
		Subject:          src.Subject,
		AgeGroup:         src.AgeGroup,
		Type:             TypeWorksheet,
		Tags:             append([]string{}, src.Tags...),
		SourceTemplateID: src.SourceTemplateID,
		DocumentKey:      documentKey(schoolID, newMatID),
		CreatedBy:        createdBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if mat.Title == "" {
		mat.Title = src.Title + " (copy)"
	}
	if src.IsTemplate() {
		mat.SourceTemplateID = src.ID
	}
	return svc.create(ctx, mat, doc)
}

type shareData struct {
	SharedBy string
	Title    string
	Message  string
	URL      string
}

// Share emails the SVG preview of a material to every recipient.
func (svc *Service) Share(ctx context.Context, schoolID, id string, sharedBy core.Person, sm ShareMaterial) (err error) {
	defer svc.observe("share", time.Now(), &err)

	mat, err := svc.GetByID(ctx, schoolID, id)
	if err != nil {
		return err
	}
	svg, err := svc.renderPreview(ctx, mat)
	if err != nil {
		return errors.Wrap(err, "rendering preview")
	}

	data := shareData{SharedBy: sharedBy.Username, Title: mat.Title, Message: sm.Message}
	if data.SharedBy == "" {
		data.SharedBy = sharedBy.Email
	}
	if url, err := svc.blobs.PresignURL(ctx, mat.PreviewKey(), core.BlobURLOptions{Expiry: svc.conf.Blob.PresignExpiry}); err == nil {
		data.URL = url
	} else if errors.Cause(err) != core.ErrBlobUnsupported {
		svc.logger.Warn(fmt.Sprintf("signing preview URL of material %s: %v", mat.ID, err), err)
	}

	to := make([]mail.Address, 0, len(sm.To))
	for _, addr := range sm.To {
		to = append(to, mail.Address{Address: addr})
	}
	msg := &core.EmailMessage{
		To:           to,
		Subject:      fmt.Sprintf("Worksheet: %s", mat.Title),
		TemplateName: shareTemplate,
		TemplateData: data,
	}
	if err = msg.Attach(bytes.NewReader(svg), "worksheet.svg", previewContentType); err != nil {
		return errors.Wrap(err, "attaching preview")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Observe(string, bool, time.Duration) {}
func (nopRecorder) RegistryMiss(string)                 {}
