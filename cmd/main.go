package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"docvault/internal/audit"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/handler"
	"docvault/internal/repository"
	"docvault/internal/service"
	"docvault/internal/service/coldstorage"
	"docvault/internal/service/s3"
)

const trashCleanupInterval = time.Hour

func connectWithRetry(dsn, dbName string, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	// Сначала подключаемся к системной базе postgres, которая всегда существует
	pgDSN := strings.Replace(dsn, "dbname="+dbName, "dbname=postgres", 1)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", dbName)
		if _, err := pgDB.Exec("CREATE DATABASE " + dbName); err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.Config) error {
	databaseURL := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", databaseURL)
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(appConfig.Database.GetDSN(), appConfig.Database.Name, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(appConfig); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	// Горячее блоб-хранилище
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// Холодное хранилище архивов: провайдер выбирается один раз при старте
	coldConfig, err := coldstorage.NewConfig(".coldstorage.env")
	if err != nil {
		log.Fatalf("Failed to load cold storage config: %v", err)
	}

	coldProvider, err := coldstorage.New(coldConfig)
	if err != nil {
		log.Fatalf("Failed to create cold storage provider: %v", err)
	}

	// Проверка токенов
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	auth.Init(authConfig)

	// Репозитории
	folderRepo := repository.NewFolderRepository(db)
	fileRepo := repository.NewFileRepository(db)
	trashRepo := repository.NewTrashRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	auditLogger := audit.NewDBLogger(db)

	// Сервисы
	cascadeService := service.NewCascadeService(folderRepo, fileRepo, trashRepo, revisionRepo, s3Client, auditLogger)
	folderService := service.NewFolderService(folderRepo, fileRepo)
	fileService := service.NewFileService(fileRepo, folderRepo, s3Client)
	trashService := service.NewTrashService(cascadeService, trashRepo, s3Client, auditLogger)
	archiveService := service.NewArchiveService(folderRepo, fileRepo, archiveRepo, revisionRepo, s3Client, coldProvider, auditLogger)

	// Хендлеры
	folderHandler := handler.NewFolderHandler(folderService, cascadeService)
	fileHandler := handler.NewFileHandler(fileService)
	trashHandler := handler.NewTrashHandler(trashService)
	archiveHandler := handler.NewArchiveHandler(archiveService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/folders", folderHandler.GetFolderContent)
		r.Post("/folders", folderHandler.CreateFolder)

		r.Route("/folders/{id}", func(r chi.Router) {
			r.Get("/", folderHandler.GetFolderContent)
			r.Delete("/", trashHandler.DeleteFolder)
			r.Put("/rename", folderHandler.RenameFolder)
			r.Put("/move", folderHandler.MoveFolder)
			r.Post("/copy", folderHandler.CopyFolder)
			r.Get("/count", folderHandler.CountFolder)
			r.Put("/status", folderHandler.UpdateStatus)
			r.Post("/lock", folderHandler.LockFolder)
			r.Post("/unlock", folderHandler.UnlockFolder)
			r.Get("/archive", archiveHandler.LocalArchive)
			r.Post("/archive/cloud", archiveHandler.CloudArchive)
			r.Post("/archive/purge", archiveHandler.MarkArchived)
		})

		r.Post("/files", fileHandler.UploadFile)
		r.Route("/files/{id}", func(r chi.Router) {
			r.Get("/", fileHandler.DownloadFile)
			r.Delete("/", trashHandler.DeleteFile)
			r.Put("/rename", fileHandler.RenameFile)
			r.Put("/move", fileHandler.MoveFile)
		})

		r.Route("/trash", func(r chi.Router) {
			r.Get("/", trashHandler.ListTrash)
			r.Post("/{id}/recover", trashHandler.Recover)
			r.Delete("/{id}", trashHandler.PermanentlyDelete)
		})

		r.Route("/archives", func(r chi.Router) {
			r.Get("/", archiveHandler.ListArchives)
			r.Get("/{id}/url", archiveHandler.DownloadURL)
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: r,
	}

	// Фоновая зачистка корзины по сроку хранения
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	go trashService.RunAutoCleanup(cleanupCtx, trashCleanupInterval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	cancelCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
