// Package api mounts the read-only status API of the watch service
package api

import (
	"fmt"
	stdhttp "net/http"
	"strings"

	"contractscout/internal/core/version"
	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/logger"
	phttp "contractscout/internal/platform/net/http"
	seendomain "contractscout/internal/services/seen/domain"
	"contractscout/internal/services/seen/export"
	"contractscout/internal/services/watch/api/docs"
	"contractscout/internal/services/watch/domain"
)

// Doc renders the OpenAPI document served by the swagger UI
func Doc() string { return docs.SwaggerInfo.ReadDoc() }

// Handlers serves loop status and the seen-records projection
type Handlers struct {
	status domain.StatusPort
	seen   seendomain.StorePort
}

// New constructs the handlers
func New(status domain.StatusPort, seen seendomain.StorePort) *Handlers {
	return &Handlers{status: status, seen: seen}
}

// Mount registers the routes on r
func (h *Handlers) Mount(r phttp.Router) {
	phttp.GetJSON(r, "/healthz", h.health)
	r.Route("/v1/sites", func(sr phttp.Router) {
		phttp.GetJSON(sr, "/", h.listSites)
		phttp.GetJSON(sr, "/{site}", h.getSite)
		sr.Get("/{site}/seen", h.seenRecords)
	})
}

// @Summary Liveness and build info
// @Tags Status
// @Produce json
// @Success 200 {object} phttp.Envelope
// @Router /healthz [get]
func (h *Handlers) health(*stdhttp.Request) (any, error) {
	return map[string]any{"status": "ok", "sites": len(h.status.Sites()), "build": version.Info()}, nil
}

// @Summary Status of every watched site
// @Tags Status
// @Produce json
// @Success 200 {object} phttp.Envelope{data=[]domain.SiteStatus}
// @Router /v1/sites/ [get]
func (h *Handlers) listSites(*stdhttp.Request) (any, error) {
	return h.status.Sites(), nil
}

// @Summary Status of one watched site
// @Tags Status
// @Produce json
// @Param site path string true "site id" example(etherscan.io)
// @Success 200 {object} phttp.Envelope{data=domain.SiteStatus}
// @Failure 404 {object} phttp.Envelope
// @Router /v1/sites/{site} [get]
func (h *Handlers) getSite(r *stdhttp.Request) (any, error) {
	id := strings.ToLower(phttp.URLParam(r, "site"))
	st, ok := h.status.Site(id)
	if !ok {
		return nil, perr.NotFoundf("site %q is not watched", id)
	}
	return st, nil
}

// seenRecords returns the site's records as JSON, or CSV with ?format=csv
//
// @Summary Seen records of one site
// @Tags Seen
// @Produce json,text/csv
// @Param site path string true "site id" example(etherscan.io)
// @Param format query string false "json or csv" Enums(json, csv)
// @Success 200 {object} phttp.Envelope{data=[]contract.SeenRecord}
// @Failure 404 {object} phttp.Envelope
// @Failure 422 {object} phttp.Envelope
// @Router /v1/sites/{site}/seen [get]
func (h *Handlers) seenRecords(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := strings.ToLower(phttp.URLParam(r, "site"))
	if _, ok := h.status.Site(id); !ok {
		phttp.RespondError(w, r, perr.NotFoundf("site %q is not watched", id))
		return
	}
	recs, err := h.seen.Records(r.Context(), id)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		phttp.Handle(func(*stdhttp.Request) phttp.Response { return phttp.OK(recs) })(w, r)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, strings.ReplaceAll(id, ".", "-")))
		if err := export.WriteRecords(w, recs); err != nil {
			logger.Named("api").Warn().Err(err).Str("site", id).Msg("csv export truncated")
		}
	default:
		phttp.RespondError(w, r, perr.InvalidArgf("unknown format %q", format))
	}
}
