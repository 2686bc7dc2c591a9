package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wareline/wareline-backend/api/middleware"
	"github.com/wareline/wareline-backend/api/responses"
	"github.com/wareline/wareline-backend/api/validators"
	transfersvc "github.com/wareline/wareline-backend/internal/transfers"
	"github.com/wareline/wareline-backend/pkg/db/models"
	"github.com/wareline/wareline-backend/pkg/enums"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
	"github.com/wareline/wareline-backend/pkg/scope"
)

// CreateTransfer opens a draft transfer between two warehouses.
func CreateTransfer(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transfersvc.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.CreatedBy = actor

		transfer, err := svc.Create(r.Context(), middleware.ActorScope(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

// GetTransfer returns one transfer with its lines.
func GetTransfer(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "transferID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.Get(r.Context(), middleware.ActorScope(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

// ListTransfers returns transfers touching any warehouse in the actor's scope.
func ListTransfers(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := transfersvc.ListFilter{Limit: limit, Offset: offset}
		if filter.WarehouseID, err = queryUUID(r, "warehouse_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.TransferStatus(raw)
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

// DispatchTransfer withdraws stock at the source and marks goods in transit.
func DispatchTransfer(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transferTransition(svc.Dispatch, logg)
}

// ReceiveTransfer lands dispatched goods at the destination warehouse.
func ReceiveTransfer(svc transfersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return transferTransition(svc.Receive, logg)
}

func transferTransition(transition func(ctx context.Context, sc scope.Scope, id, actorID uuid.UUID) (*models.Transfer, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "transferID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := transition(r.Context(), middleware.ActorScope(r.Context()), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}
