package user_handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/dtos/user_dto"
	app_error "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/errors"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/middleware"
	user_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/user-case"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

type UserHandler struct {
	State    *state.AppState
	Validate *validator.Validate
	Service  user_service.UserServiceContract
}

func NewUserHandler(state *state.AppState) *UserHandler {
	return &UserHandler{
		State:    state,
		Validate: validator.New(),
		Service:  user_service.NewUserService(state),
	}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req user_dto.CreateUserRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.InvalidRequest("Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.InvalidRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, err := h.Service.Register(r.Context(), req)
	if err != nil {
		return err
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("user registered successfully", *resp, reqID))
	return nil
}

func (h *UserHandler) LoginUser(w http.ResponseWriter, r *http.Request) *app_error.AppError {
	var req user_dto.LoginRequest
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app_error.InvalidRequest("Invalid JSON", "body")
	}

	if err := h.Validate.Struct(req); err != nil {
		return app_error.InvalidRequest(fmt.Sprintf("Invalid fields: %v", err), "validation")
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		return err
	}

	if resp.Refresh != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     "refresh_token",
			Value:    *resp.Refresh,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
			Path:     "/",
			Expires:  time.Now().Add(7 * 24 * time.Hour),
		})
	}

	reqID, ok := r.Context().Value(middleware.RequestIdKey).(string)
	if !ok {
		reqID = "unknown"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(handlers.CreateResponse("login successful", *resp, reqID))
	return nil
}
