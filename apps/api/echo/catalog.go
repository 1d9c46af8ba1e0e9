package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chihwayi/ecd-materials-generator-sub003/core/worksheet"
)

type catalogApi struct {
	registry *worksheet.Registry
}

// CatalogEntry is the public view of a registry entry.
type CatalogEntry struct {
	Identifier string             `json:"identifier"`
	Name       string             `json:"name"`
	Category   worksheet.Category `json:"category"`
}

func registerCatalogAPI(g *echo.Group, registry *worksheet.Registry) {
	api := catalogApi{registry: registry}

	cg := g.Group("/catalog")
	cg.GET("", api.query)
	cg.GET("/:identifier", api.retrieve)
}

func toCatalogEntry(e worksheet.Entry) CatalogEntry {
	return CatalogEntry{Identifier: e.Identifier, Name: e.Name, Category: e.Category}
}

// query lists the registry in catalog order, optionally narrowed with ?category=.
func (api *catalogApi) query(ctx echo.Context) error {
	category := worksheet.Category(ctx.QueryParam("category"))
	entries := make([]CatalogEntry, 0)
	for _, e := range api.registry.Entries() {
		if category == "" || e.Category == category {
			entries = append(entries, toCatalogEntry(e))
		}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *catalogApi) retrieve(ctx echo.Context) error {
	e, err := api.registry.Lookup(ctx.Param("identifier"))
	if err != nil {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, toCatalogEntry(e))
}
