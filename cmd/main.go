package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/config"
	ws_handler "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/handlers/ws-handler"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/queue"
	user_repo "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/repo/user"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/routers"
	chat_service "github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/use-case/chat-case"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/utils/types"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/websocket"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/internal/worker"
	"github.com/DATN-2020602490/KGBHub-BackEnd-sub000/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	if err := state.Migrate(appState.DB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	wsHub := websocket.NewHub()
	defer wsHub.Close()
	log.Info().Msg("Websocket hub initialized")

	pubsub := queue.NewPubSub(appState.Redis, config.Conf.App.InstanceID)
	go wsHub.RunBridge(ctx, pubsub)

	producer := queue.NewProducer(appState.Redis)
	chatService := chat_service.NewChatService(appState, wsHub, pubsub, producer)

	authFunc := websocket.JWTAuthenticator(appState.JwtSecret.Public, appState.Redis, user_repo.NewUserRepo(appState))
	wsRouter := ws_handler.NewWsHandler(wsHub, authFunc, chatService)

	wsHandler := websocket.NewWebSocketHandler(wsHub, wsRouter)
	wsHandler.MessageRate = config.Conf.CHAT.MessageRate
	wsHandler.MessageBurst = config.Conf.CHAT.MessageBurst
	log.Info().Msg("Websocket handler initialized")

	r := routers.NewRouter(appState, wsHub, chatService, wsHandler)

	dlqConfig := types.DLQRetryConfig{
		BatchSize:      20,
		RetryInterval:  time.Minute,
		MaxRetryCount:  5,
		BackoffFactor:  2.0,
		DatabaseName:   "kgbhub",
		CollectionName: "dlq_jobs",
	}
	workerPool := worker.NewWorkerPool(appState.Redis, appState.Mongo, dlqConfig, config.Conf.CHAT.FanoutWorkers, chatService)
	workerPool.Start(ctx)
	go workerPool.StartDLQWorker(ctx)
	workerPool.StartDLQRetryConsumer(ctx)

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
	workerPool.Wait()
}
