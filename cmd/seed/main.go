package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/gateway"
	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/specification"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/internal/service"
	"ai-chatbot-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Seeds a demo account with one welcome conversation.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	email := getEnv("SEED_EMAIL", "demo@example.com")
	password := getEnv("SEED_PASSWORD", "demo-password")

	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	ctx := context.Background()
	uowFactory := unitofwork.NewRepositoryFactory(db)
	nop := logger.NewNop()
	issuer := authsession.NewTokenIssuer(getEnv("JWT_SECRET", "default_secret"), time.Hour)
	authService := service.NewAuthService(uowFactory, issuer, nil, nil, time.Hour, nop)

	log.Printf("Seeding demo user %s...", email)
	_, err = authService.Register(ctx, &dto.RegisterRequest{Email: email, Password: password})
	if err != nil && !errors.Is(err, service.ErrEmailTaken) {
		log.Fatalf("Error: Failed to register demo user: %v", err)
	}

	user, err := uowFactory.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil || user == nil {
		log.Fatalf("Error: Demo user not found after registration: %v", err)
	}

	persistence := gateway.NewPersistenceGateway(uowFactory, nil, nil, nop)
	sessions, err := persistence.ListSessions(ctx, user.Id)
	if err != nil {
		log.Fatalf("Error: Failed to list sessions: %v", err)
	}
	if len(sessions) > 0 {
		log.Println("Demo user already has conversations, skipping...")
		return
	}

	now := time.Now()
	session, err := persistence.InsertSession(ctx, &entity.ChatSession{
		Id:        uuid.New(),
		UserId:    user.Id,
		Title:     "Welcome",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		log.Fatalf("Error: Failed to create welcome session: %v", err)
	}

	turns := []struct {
		role    string
		content string
	}{
		{entity.ChatMessageRoleUser, "Hi! What can you do?"},
		{entity.ChatMessageRoleAssistant, "I can answer questions, draft text and use Google Drive documents you attach as context."},
	}
	for i, turn := range turns {
		err := persistence.InsertTurn(ctx, &entity.ChatMessage{
			Id:            uuid.New(),
			ChatSessionId: session.Id,
			UserId:        user.Id,
			Role:          turn.role,
			Content:       turn.content,
			CreatedAt:     now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			log.Fatalf("Error: Failed to insert turn: %v", err)
		}
	}

	log.Println("Demo seeding completed!")
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
