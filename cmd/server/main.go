package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/safepath/safepath-server/internal/config"
	"github.com/safepath/safepath-server/internal/database"
	"github.com/safepath/safepath-server/internal/handler"
	"github.com/safepath/safepath-server/internal/model"
	"github.com/safepath/safepath-server/internal/queue"
	"github.com/safepath/safepath-server/internal/repository"
	"github.com/safepath/safepath-server/internal/router"
	"github.com/safepath/safepath-server/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	// Repositories.
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	contacts := repository.NewContactRepo(db)
	sosRepo := repository.NewSOSRepo(db)
	incidents := repository.NewIncidentRepo(db)
	discussions := repository.NewDiscussionRepo(db)
	replies := repository.NewReplyRepo(db)
	votes := repository.NewVoteRepo(db)
	questions := repository.NewQuestionRepo(db)
	places := repository.NewPlaceRepo(db)
	faqs := repository.NewFAQRepo(db)

	// Services.
	auth := service.NewAuthService(sessions, users,
		cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	voteSvc := service.NewVoteService(votes, questions)
	placeSvc := service.NewPlaceService(places, cfg.OverpassURL)
	chatSvc := service.NewChatService(placeSvc, cfg.GroqAPIKey)

	var notifier service.Notifier = service.NoopNotifier{}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		notifier = service.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		log.Println("twilio not configured, SOS SMS fan-out disabled")
	}

	// Background workers.
	go func() {
		if err := queue.StartSOSConsumer(notifier, sosRepo); err != nil {
			log.Printf("sos consumer stopped: %v", err)
		}
	}()
	go pruneSessions(sessions)
	seedFAQs(faqs)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, auth),
		Users:     handler.NewUserHandler(users, cfg.BcryptCost),
		Contacts:  handler.NewContactHandler(contacts),
		SOS:       handler.NewSOSHandler(sosRepo, contacts, users),
		Incidents: handler.NewIncidentHandler(incidents, users),
		Community: handler.NewCommunityHandler(discussions, replies, votes, voteSvc),
		QnA:       handler.NewQnAHandler(questions, voteSvc),
		Places:    handler.NewPlaceHandler(placeSvc),
		Chat:      handler.NewChatHandler(chatSvc, users),
		FAQs:      handler.NewFAQHandler(faqs),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// pruneSessions drops expired refresh-token rows hourly so the set stays
// small even for users who never log out.
func pruneSessions(sessions *repository.SessionRepo) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if n, err := sessions.DeleteExpired(ctx); err != nil {
			log.Printf("session prune failed: %v", err)
		} else if n > 0 {
			log.Printf("pruned %d expired sessions", n)
		}
		cancel()
	}
}

// seedFAQs inserts the default FAQ set on first boot.
func seedFAQs(faqs *repository.FAQRepo) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := faqs.Seed(ctx, []model.FAQ{
		{Question: "How do I send an SOS alert?", Answer: "Tap the SOS button on the home screen. Your emergency contacts receive an SMS with your live location.", Category: "sos"},
		{Question: "Who can see my incident reports?", Answer: "Reports are public but you can file them anonymously; your identity is never attached to an anonymous report.", Category: "incidents"},
		{Question: "How do I add emergency contacts?", Answer: "Open Contacts in the app and add a name and phone number. You can pick which contacts each SOS goes to.", Category: "contacts"},
		{Question: "How are answers ranked in Q&A?", Answer: "The accepted answer is shown first, then answers ordered by upvotes.", Category: "qna"},
		{Question: "Is my location shared with anyone?", Answer: "Your location is only used for nearby lookups and SOS alerts you trigger. It is never shared otherwise.", Category: "privacy"},
	})
	if err != nil {
		log.Printf("faq seed failed: %v", err)
	}
}
