package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers"
	user_handler "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers/user-handler"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

func UserRouter(r chi.Router, state *state.AppState) {
	userHandler := user_handler.NewUserHandler(state)

	r.Post("/api/v1/auth/register", handlers.WrapHandler(userHandler.CreateUser))
	r.Post("/api/v1/auth/login", handlers.WrapHandler(userHandler.LoginUser))
}
