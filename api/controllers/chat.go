package controllers

import (
	"net/http"

	"github.com/lukechats/retail-backend/api/responses"
	"github.com/lukechats/retail-backend/api/validators"
	"github.com/lukechats/retail-backend/internal/assistant"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
	"github.com/lukechats/retail-backend/pkg/logger"
)

type chatRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"user_id"`
}

type policyChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type chatResponse struct {
	Reply  string `json:"reply"`
	UserID string `json:"user_id,omitempty"`
}

// Chat answers a customer message grounded in the product catalog. First-time
// callers get a generated user id back and are expected to echo it on
// subsequent turns.
func Chat(svc *assistant.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assistant service unavailable"))
			return
		}

		var payload chatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.Respond(r.Context(), payload.Message, payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chatResponse{Reply: reply.Text, UserID: reply.UserID})
	}
}

// ChatPolicy answers a customer message against the store policy document.
func ChatPolicy(svc *assistant.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assistant service unavailable"))
			return
		}

		var payload policyChatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.RespondPolicy(r.Context(), payload.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, chatResponse{Reply: reply.Text})
	}
}
