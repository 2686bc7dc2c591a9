package controllers

import (
	"net/http"

	"github.com/wareline/wareline-backend/api/middleware"
	"github.com/wareline/wareline-backend/api/responses"
	stocksvc "github.com/wareline/wareline-backend/internal/stock"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
)

// ListStock returns stock records visible to the actor's scope.
func ListStock(store stocksvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock store unavailable"))
			return
		}

		limit, offset, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := stocksvc.ListFilter{Limit: limit, Offset: offset}
		if filter.ProductID, err = queryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.WarehouseID, err = queryUUID(r, "warehouse_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, total, err := store.List(r.Context(), middleware.ActorScope(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope{Items: items, Total: total, Limit: limit, Offset: offset})
	}
}

// GetProductStock returns the product's stock records across every warehouse
// the actor can see.
func GetProductStock(store stocksvc.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock store unavailable"))
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := stocksvc.ListFilter{ProductID: &productID}
		items, total, err := store.List(r.Context(), middleware.ActorScope(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "total": total})
	}
}

// ListLowStock reports records at or below their product's reorder level.
// Admin and manager only; the report spans all warehouses.
func ListLowStock(repo stocksvc.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock repository unavailable"))
			return
		}

		rows, err := repo.ListBelowReorder(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scan stock levels"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows, "count": len(rows)})
	}
}
