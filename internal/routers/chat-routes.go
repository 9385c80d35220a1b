package routers

import (
	"github.com/go-chi/chi/v5"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers"
	chat_handler "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers/chat-handler"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/middleware"
	chat_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/chat-case"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

func ChatRouter(r chi.Router, state *state.AppState, chat chat_service.ChatServiceContract) {
	chatHandler := chat_handler.NewChatHandler(state, chat)
	r.Group(func(protected chi.Router) {
		protected.Use(middleware.JWTAuth(state.JwtSecret.Public, state.Redis))
		protected.Post("/api/v1/chats", handlers.WrapHandler(chatHandler.ResolveConversation))
		protected.Get("/api/v1/chats", handlers.WrapHandler(chatHandler.GetChats))
		protected.Get("/api/v1/chats/{id}/messages", handlers.WrapHandler(chatHandler.GetMessages))
		protected.Patch("/api/v1/chats/{id}", handlers.WrapHandler(chatHandler.RenameConversation))
		protected.Post("/api/v1/chats/{id}/members", handlers.WrapHandler(chatHandler.AddMembers))
		protected.Delete("/api/v1/chats/{id}/members/{userId}", handlers.WrapHandler(chatHandler.RemoveMember))
		protected.Patch("/api/v1/chats/{id}/mute", handlers.WrapHandler(chatHandler.ToggleMute))
	})
}
