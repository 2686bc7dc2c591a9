package controllers

import (
	"net/http"
	"strings"

	"github.com/wareline/wareline-backend/api/middleware"
	"github.com/wareline/wareline-backend/api/responses"
	"github.com/wareline/wareline-backend/api/validators"
	adjustmentsvc "github.com/wareline/wareline-backend/internal/adjustments"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
)

// CreateAdjustment opens a draft stock adjustment snapshotting the current
// quantity.
func CreateAdjustment(svc adjustmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "adjustment service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustmentsvc.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.CreatedBy = actor

		adjustment, err := svc.Create(r.Context(), middleware.ActorScope(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, adjustment)
	}
}

// GetAdjustment returns one adjustment by id.
func GetAdjustment(svc adjustmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "adjustmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Get(r.Context(), middleware.ActorScope(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, adjustment)
	}
}

// ListAdjustments returns adjustments visible to the actor's scope.
func ListAdjustments(svc adjustmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := adjustmentsvc.ListFilter{Limit: limit, Offset: offset}
		if filter.WarehouseID, err = queryUUID(r, "warehouse_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.ProductID, err = queryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.AdjustmentStatus(raw)
			filter.Status = &status
		}

		items, total, err := svc.List(r.Context(), middleware.ActorScope(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope{Items: items, Total: total, Limit: limit, Offset: offset})
	}
}

// ValidateAdjustment applies the counted quantity to the stock record.
func ValidateAdjustment(svc adjustmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "adjustmentID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjustment, err := svc.Validate(r.Context(), middleware.ActorScope(r.Context()), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, adjustment)
	}
}
