package echoapi

import (
	"io"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/material"
	"github.com/chihwayi/ecd-materials-generator-sub003/core/worksheet"
)

var (
	errMatNotFoundInCtx = errors.New("material object not found in echo.Context")

	contextObjectKey = "object"
	maxDocumentSize  = int64(4 << 20) // 4MiB
)

type materialApi struct {
	svc        *material.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerMaterialAPI(g *echo.Group, auth []echo.MiddlewareFunc, deps ServerDeps) {
	api := materialApi{
		svc:        deps.MaterialSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
	staff := roleMiddleware(StaffRoles...)

	mg := g.Group("/materials", auth...)
	mg.POST("", api.create, staff)
	mg.GET("", api.query)
	mg.DELETE("", api.destroyMultiple, staff)

	// detail endpoints
	dg := mg.Group("/:id", api.materialCtxMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staff)
	dg.DELETE("", api.destroy, staff)
	dg.GET("/document", api.retrieveDocument)
	dg.PUT("/document", api.replaceDocument, staff)
	dg.POST("/elements", api.addElement, staff)
	dg.DELETE("/elements/:eid", api.removeElement, staff)
	dg.PUT("/elements/:eid/position", api.moveElement, staff)
	dg.PUT("/elements/:eid/fill", api.toggleFill, staff)
	dg.POST("/clear", api.clear, staff)
	dg.GET("/preview", api.preview)
	dg.GET("/preview/url", api.previewURL)
	dg.POST("/duplicate", api.duplicate, staff)
	dg.POST("/share", api.share, staff)
}

func schoolID(ctx echo.Context) string {
	claims, _ := getContextClaims(ctx)
	return claims.SchoolID
}

// materialCtxMiddleware loads the material of the :id param, scoped to the caller's school.
func (api *materialApi) materialCtxMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		mat, err := api.svc.GetByID(ctx.Request().Context(), schoolID(ctx), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "finding material by ID")
		}
		ctx.Set(contextObjectKey, mat)
		return next(ctx)
	}
}

func contextMaterial(ctx echo.Context) (material.Material, error) {
	mat, ok := ctx.Get(contextObjectKey).(material.Material)
	if !ok {
		return material.Material{}, errors.Wrap(errMatNotFoundInCtx, "retrieving object from context")
	}
	return mat, nil
}

// Handlers

func (api *materialApi) create(ctx echo.Context) error {
	var data material.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	mat, err := api.svc.Create(ctx.Request().Context(), claims.SchoolID, claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

func (api *materialApi) query(ctx echo.Context) error {
	filter := new(material.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []material.Material{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	mats, err := api.svc.Query(ctx.Request().Context(), schoolID(ctx), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	if mats == nil {
		mats = []material.Material{}
	}
	return ctx.JSON(http.StatusOK, mats)
}

func (api *materialApi) destroyMultiple(ctx echo.Context) error {
	ids := core.CleanStrings(ctx.QueryParams()["id"])
	if len(ids) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "at least one id is required"})
	}
	if err := api.svc.Delete(ctx.Request().Context(), schoolID(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting materials")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *materialApi) retrieve(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *materialApi) update(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}

	var data material.UpdateMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMaterial")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	mat, err = api.svc.Update(ctx.Request().Context(), mat.SchoolID, mat.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating material")
	}
	return ctx.JSON(http.StatusOK, mat)
}

func (api *materialApi) destroy(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), mat.SchoolID, mat.ID); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Documents

func (api *materialApi) retrieveDocument(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	_, doc, err := api.svc.LoadDocument(ctx.Request().Context(), mat.SchoolID, mat.ID)
	if err != nil {
		return errors.Wrap(err, "loading document")
	}
	return documentJSON(ctx, http.StatusOK, doc)
}

func (api *materialApi) replaceDocument(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxDocumentSize+1))
	if err != nil {
		return errors.Wrap(err, "reading document")
	}
	if int64(len(data)) > maxDocumentSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "document too large")
	}

	_, doc, err := api.svc.ReplaceDocument(ctx.Request().Context(), mat.SchoolID, mat.ID, data)
	if err != nil {
		return errors.Wrap(err, "replacing document")
	}
	return documentJSON(ctx, http.StatusOK, doc)
}

func documentJSON(ctx echo.Context, code int, doc *worksheet.Document) error {
	data, err := worksheet.Encode(doc)
	if err != nil {
		return errors.Wrap(err, "encoding document")
	}
	return ctx.JSONBlob(code, data)
}

func (api *materialApi) addElement(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}

	var data material.NewElement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewElement")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	el, err := api.svc.AddElement(ctx.Request().Context(), mat.SchoolID, mat.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding element")
	}
	return ctx.JSON(http.StatusCreated, el)
}

func (api *materialApi) removeElement(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.RemoveElement(ctx.Request().Context(), mat.SchoolID, mat.ID, ctx.Param("eid")); err != nil {
		return errors.Wrap(err, "removing element")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *materialApi) moveElement(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}

	var to worksheet.Point
	if err = ctx.Bind(&to); err != nil {
		return errors.Wrap(err, "binding to Point")
	}
	el, err := api.svc.MoveElement(ctx.Request().Context(), mat.SchoolID, mat.ID, ctx.Param("eid"), to)
	if err != nil {
		return errors.Wrap(err, "moving element")
	}
	return ctx.JSON(http.StatusOK, el)
}

func (api *materialApi) toggleFill(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}

	var data FillRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FillRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	mode, err := worksheet.ParseFillMode(data.Mode)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "mode", Error: err.Error()})
	}

	el, err := api.svc.ToggleFill(ctx.Request().Context(), mat.SchoolID, mat.ID, ctx.Param("eid"), mode)
	if err != nil {
		return errors.Wrap(err, "toggling fill")
	}
	return ctx.JSON(http.StatusOK, el)
}

func (api *materialApi) clear(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	mat, err = api.svc.ClearDocument(ctx.Request().Context(), mat.SchoolID, mat.ID)
	if err != nil {
		return errors.Wrap(err, "clearing document")
	}
	return ctx.JSON(http.StatusOK, mat)
}

// Previews

func (api *materialApi) preview(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	svg, err := api.svc.RenderPreview(ctx.Request().Context(), mat.SchoolID, mat.ID)
	if err != nil {
		return errors.Wrap(err, "rendering preview")
	}
	return ctx.Blob(http.StatusOK, "image/svg+xml", svg)
}

// previewURL falls back to the preview endpoint when the blob store cannot sign URLs.
func (api *materialApi) previewURL(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}
	url, err := api.svc.PreviewURL(ctx.Request().Context(), mat.SchoolID, mat.ID)
	if err != nil {
		if errors.Cause(err) != core.ErrBlobUnsupported {
			return errors.Wrap(err, "signing preview URL")
		}
		url = ctx.Scheme() + "://" + ctx.Request().Host + "/v1/materials/" + mat.ID + "/preview"
	}
	return ctx.JSON(http.StatusOK, URLResponse{URL: url})
}

func (api *materialApi) duplicate(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}

	var data material.DuplicateMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DuplicateMaterial")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	dup, err := api.svc.Duplicate(ctx.Request().Context(), mat.SchoolID, claims.Subject, mat.ID, data)
	if err != nil {
		return errors.Wrap(err, "duplicating material")
	}
	return ctx.JSON(http.StatusCreated, dup)
}

func (api *materialApi) share(ctx echo.Context) error {
	mat, err := contextMaterial(ctx)
	if err != nil {
		return err
	}

	var data material.ShareMaterial
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ShareMaterial")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if err = api.svc.Share(ctx.Request().Context(), mat.SchoolID, mat.ID, getContextPerson(ctx), data); err != nil {
		return errors.Wrap(err, "sharing material")
	}
	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The worksheet is on its way."})
}
