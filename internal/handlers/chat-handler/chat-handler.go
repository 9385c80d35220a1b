package chat_handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/chat_dto"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/middleware"
	chat_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/chat-case"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

type ChatHandler struct {
	State    *state.AppState
	Validate *validator.Validate
	Service  chat_service.ChatServiceContract
}

func NewChatHandler(state *state.AppState, service chat_service.ChatServiceContract) *ChatHandler {
	return &ChatHandler{
		State:    state,
		Validate: validator.New(),
		Service:  service,
	}
}

func callerID(r *http.Request) (uuid.UUID, *app_error.AppError) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return uuid.Nil, app_error.Unauthenticated("user id is not found in context", "context")
	}
	id, err := uuid.Parse(claims.Sub)
	if err != nil {
		return uuid.Nil, app_error.Unauthenticated("invalid user id in token", "context")
	}
	return id, nil
}

func convID(r *http.Request) (uuid.UUID, *app_error.AppError) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, app_error.InvalidRequest("invalid conversation id", "id")
	}
	return id, nil
}

func requestID(r *http.Request) string {
	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		return "unknown"
	}
	return reqID
}

// ResolveConversation maps a participant set onto its single conversation,
// creating one when none exists yet.
func (h *ChatHandler) ResolveConversation(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.ResolveConversationRequest
	defer r.Body.Close()

	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.InvalidRequest("Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.InvalidRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	conv, appErr := h.Service.Resolve(r.Context(), userID, req.UserIDs)
	if appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("conversation resolved", conv, requestID(r)))
	return nil
}

func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}

	chats, appErr := h.Service.GetChats(r.Context(), userID)
	if appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("chat list fetched", chats, requestID(r)))
	return nil
}

func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := convID(r)
	if appErr != nil {
		return appErr
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	resp, appErr := h.Service.GetChat(r.Context(), userID, id, limit, offset)
	if appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("messages fetched", *resp, requestID(r)))
	return nil
}

func (h *ChatHandler) RenameConversation(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.RenameConversationRequest
	defer r.Body.Close()

	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := convID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.InvalidRequest("Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.InvalidRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	conv, appErr := h.Service.RenameConversation(r.Context(), userID, id, req.Name)
	if appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("conversation renamed", conv, requestID(r)))
	return nil
}

func (h *ChatHandler) AddMembers(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req chat_dto.AddMembersRequest
	defer r.Body.Close()

	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := convID(r)
	if appErr != nil {
		return appErr
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.InvalidRequest("Invalid JSON", "body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return app_error.InvalidRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	if appErr := h.Service.AddMembers(r.Context(), userID, id, req.UserIDs); appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("members added", "OK", requestID(r)))
	return nil
}

func (h *ChatHandler) RemoveMember(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := convID(r)
	if appErr != nil {
		return appErr
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return app_error.InvalidRequest("invalid user id", "userId")
	}

	if appErr := h.Service.RemoveMember(r.Context(), userID, id, targetID); appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("member removed", "OK", requestID(r)))
	return nil
}

func (h *ChatHandler) ToggleMute(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	userID, appErr := callerID(r)
	if appErr != nil {
		return appErr
	}
	id, appErr := convID(r)
	if appErr != nil {
		return appErr
	}

	member, appErr := h.Service.ToggleMute(r.Context(), userID, id)
	if appErr != nil {
		return appErr
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("mute toggled", member, requestID(r)))
	return nil
}
