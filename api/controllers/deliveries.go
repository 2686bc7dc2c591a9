package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/api/middleware"
	"github.com/wareline/wareline-backend/api/responses"
	"github.com/wareline/wareline-backend/api/validators"
	deliverysvc "github.com/wareline/wareline-backend/internal/deliveries"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
	"github.com/wareline/wareline-backend/pkg/scope"
)

// CreateDelivery opens a draft outbound delivery.
func CreateDelivery(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload deliverysvc.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.CreatedBy = actor

		delivery, err := svc.Create(r.Context(), middleware.ActorScope(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, delivery)
	}
}

// GetDelivery returns one delivery with its lines.
func GetDelivery(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "deliveryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Get(r.Context(), middleware.ActorScope(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// ListDeliveries returns deliveries visible to the actor's scope.
func ListDeliveries(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := deliverysvc.ListFilter{Limit: limit, Offset: offset}
		if filter.WarehouseID, err = queryUUID(r, "warehouse_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.DeliveryStatus(raw)
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

// PickDelivery reserves every line of a draft delivery.
func PickDelivery(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(svc.Pick, logg)
}

// PackDelivery marks a picked delivery as packed.
func PackDelivery(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(svc.Pack, logg)
}

// ValidateDelivery finalizes a packed delivery and removes its stock.
func ValidateDelivery(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryTransition(svc.Validate, logg)
}

func deliveryTransition(transition func(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Delivery, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "deliveryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := transition(r.Context(), middleware.ActorScope(r.Context()), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}
