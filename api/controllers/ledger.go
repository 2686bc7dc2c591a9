package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/wareline/wareline-backend/api/middleware"
	"github.com/wareline/wareline-backend/api/responses"
	"github.com/wareline/wareline-backend/api/validators"
	ledgersvc "github.com/wareline/wareline-backend/internal/ledger"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
)

// ListLedger returns ledger entries filtered by product, warehouse, kind, and
// time range. Entries are immutable; this is the only read surface.
func ListLedger(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", ledgersvc.DefaultListLimit, 1, ledgersvc.DefaultListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := ledgersvc.ListFilter{Limit: limit}
		if filter.ProductID, err = queryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.WarehouseID, err = queryUUID(r, "warehouse_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind := enums.MovementKind(raw)
			filter.Kind = &kind
		}
		if filter.Since, err = queryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.Until, err = queryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.List(r.Context(), middleware.ActorScope(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": entries, "limit": limit})
	}
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return &t, nil
}
