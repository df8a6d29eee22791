package main

import (
	"context"
	"net/http"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	cron "github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/campuskit/attendance-service/internal/app"
	"github.com/campuskit/attendance-service/internal/config"
	"github.com/campuskit/attendance-service/internal/controllers"
	"github.com/campuskit/attendance-service/internal/middleware"
	"github.com/campuskit/attendance-service/internal/realtime"
	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/routes"
	"github.com/campuskit/attendance-service/internal/services"
	"github.com/campuskit/attendance-service/internal/utils"
)

func main() {
	utils.InitLogger(config.AppName)
	cfg := config.LoadConfig()
	defer cfg.Close()

	application, err := app.NewApp(cfg)
	if err != nil {
		utils.Logger.Fatal("Failed to initialize attendance-service:", err)
	}
	defer application.Close()

	keyRepo := repositories.NewDeviceKeyRepository(application.DB)
	challengeRepo := repositories.NewChallengeRepository(application.DB)
	attendanceRepo := repositories.NewAttendanceRepository(application.DB)

	notifier := realtime.NewRedisNotifier(application.Redis, cfg.EventChannelPrefix)

	keyRegistry := services.NewKeyRegistryService(keyRepo, challengeRepo, notifier)
	challengeService := services.NewChallengeService(keyRepo, challengeRepo, cfg.ChallengeTTL)
	verifier := services.NewSignatureVerifier(challengeRepo, keyRepo)
	attendanceService := services.NewAttendanceService(attendanceRepo, verifier, notifier)
	cleanupService := services.NewChallengeCleanupService(challengeRepo)

	healthController := controllers.NewHealthController()
	biometricController := controllers.NewBiometricController(keyRegistry)
	challengeController := controllers.NewChallengeController(challengeService)
	attendanceController := controllers.NewAttendanceController(attendanceService)
	eventsController := controllers.NewEventsController(notifier)

	router := mux.NewRouter()

	// Public
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)

	secured := router.NewRoute().Subrouter()
	secured.Use(middleware.AuthMiddleware(cfg.RSAPublicKey))

	// Any authenticated caller
	secured.HandleFunc(routes.KeysStatus, biometricController.StatusHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.KeysRegister, biometricController.RegisterHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.ChallengesIssue, challengeController.IssueHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.AttendanceMark, attendanceController.MarkHandler).Methods(http.MethodPost)
	secured.HandleFunc(routes.SessionsByID, attendanceController.GetSessionHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.SessionsMyMark, attendanceController.MyRecordHandler).Methods(http.MethodGet)
	secured.HandleFunc(routes.Events, eventsController.StreamHandler).Methods(http.MethodGet)

	professor := secured.NewRoute().Subrouter()
	professor.Use(middleware.RequireRole(middleware.RoleProfessor))
	professor.HandleFunc(routes.SessionsBase, attendanceController.OpenSessionHandler).Methods(http.MethodPost)
	professor.HandleFunc(routes.SessionsBase, attendanceController.ListSessionsHandler).Methods(http.MethodGet)
	professor.HandleFunc(routes.SessionsClose, attendanceController.CloseSessionHandler).Methods(http.MethodPost)
	professor.HandleFunc(routes.SessionsRecords, attendanceController.ListRecordsHandler).Methods(http.MethodGet)

	admin := secured.NewRoute().Subrouter()
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	admin.HandleFunc(routes.KeysDecide, biometricController.DecideHandler).Methods(http.MethodPost)
	admin.HandleFunc(routes.KeysRevoke, biometricController.RevokeHandler).Methods(http.MethodPost)

	c := cron.New()
	_, purgeErr := c.AddFunc("@every 5m", func() {
		if e := cleanupService.PurgeDead(context.Background()); e != nil {
			utils.Logger.WithError(e).Error("Scheduled challenge purge failed")
		}
	})
	if purgeErr != nil {
		utils.Logger.WithError(purgeErr).Fatal("Failed to schedule challenge purge cron")
	}
	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AppUrl},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Device-ID"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
	if err := http.ListenAndServe(":"+cfg.AppPort, co.Handler(router)); err != nil {
		utils.Logger.Fatal("attendance-service failed to start:", err)
	}
}
