package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/travelboard/internal/catalog"
)

// CatalogHandler serves the static destination catalog. It needs no
// session: the catalog is the same for everyone.
//
//   - HandleList → GET /api/destinations
//   - HandleTags → GET /api/destinations/tags
type CatalogHandler struct {
	responder
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{responder: responder{logger: logger}, catalog: c}
}

// HandleList serves GET /api/destinations?tag=beach&q=par.
func (h *CatalogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeJSON(w, http.StatusOK, h.catalog.Search(q.Get("tag"), q.Get("q")))
}

// HandleTags serves GET /api/destinations/tags, the filter chips.
func (h *CatalogHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.catalog.Tags())
}
