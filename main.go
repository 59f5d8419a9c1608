package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Config struct {
	Bind               string   `toml:"bind"`
	Debug              bool     `toml:"debug"`
	Production         bool     `toml:"production"`
	DatabasePath       string   `toml:"database_path"`
	UploadsDir         string   `toml:"uploads_dir"`
	DocumentsDir       string   `toml:"documents_dir"`
	SessionSecret      string   `toml:"session_secret"`
	AdminEmails        []string `toml:"admin_emails"`
	AppURL             string   `toml:"app_url"`
	MaxUploadSize      int64    `toml:"max_upload_size"`
	MaxDocumentSize    int64    `toml:"max_document_size"`
	AnonSearchLimit    int      `toml:"anon_search_limit"`
	SkipAntivirus      bool     `toml:"skip_antivirus"`
	ScanFailClosed     bool     `toml:"scan_fail_closed"`
	ClamscanPath       string   `toml:"clamscan_path"`
	ScanTimeoutSeconds int      `toml:"scan_timeout_seconds"`
	ChallengeSecret    string   `toml:"challenge_secret"`
	ChallengeVerifyURL string   `toml:"challenge_verify_url"`
	AnswerEngineURL    string   `toml:"answer_engine_url"`
}

var config Config

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

func livezHandler(w http.ResponseWriter, r *http.Request) {
	_, verbose := r.URL.Query()["verbose"]
	if !verbose {
		fmt.Fprintf(w, "200")
		return
	}
	// Print extra info if verbose is present http://foo.bar:3001/livez?verbose
	fmt.Fprintf(w, "Server is running on http://%s\n", config.Bind)
	fmt.Fprintf(w, "Uploads dir is %s\n", config.UploadsDir)
	fmt.Fprintf(w, "Database path is %s\n", config.DatabasePath)
}

func readyzHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "200")
}

func newRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/livez", livezHandler).Methods(http.MethodGet)
	router.HandleFunc("/readyz", readyzHandler).Methods(http.MethodGet)

	// Auth endpoints
	router.HandleFunc("/api/signup", signupHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/login", loginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/logout", logoutHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/check", authCheckHandler).Methods(http.MethodGet)

	// Password reset
	router.HandleFunc("/api/auth/request-reset", requestResetHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/confirm-reset", confirmResetHandler).Methods(http.MethodPost)

	// Gated search
	router.HandleFunc("/api/search", searchHandler).Methods(http.MethodPost)

	// Contribution intake + moderation
	router.HandleFunc("/api/upload", uploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/list", listUploadsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/uploads/mark", markUploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/uploads/clear", clearUploadsHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/uploads/my", myUploadsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/uploads/{name}", downloadUploadHandler).Methods(http.MethodGet)

	// Reviewer-managed source documents
	router.HandleFunc("/api/admin/source-documents", listDocumentsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/source-documents", uploadDocumentsHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/source-documents/{name}", downloadDocumentHandler).Methods(http.MethodGet)

	return router
}

func main() {
	config = GenerateConfig()

	var err error
	if config.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if config.SessionSecret == "" {
		logger.Fatal("session_secret must be configured")
	}

	// Initialize database
	if err := initDatabase(config.DatabasePath, config.Debug); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize services
	authService = NewAuthService(db)
	sessionService = NewSessionService(config.SessionSecret, config.Production)
	quotaService = NewQuotaService(db, config.AnonSearchLimit)
	authPolicy = NewAuthorizationPolicy(config.AdminEmails)

	notifier := NewLogNotifier(config.AppURL, logger)
	verifier := NewChallengeVerifier(config.ChallengeSecret, config.ChallengeVerifyURL, logger)
	resetService = NewResetService(db, authService, notifier, verifier, logger)

	var scanner Scanner = NewClamAVScanner(config.ClamscanPath, time.Duration(config.ScanTimeoutSeconds)*time.Second)
	if config.SkipAntivirus {
		logger.Warn("antivirus scanning is disabled")
		scanner = noScanner{}
	}
	contribService = NewContributionService(db, config.UploadsDir, scanner, config.ScanFailClosed, logger)
	documentService = NewDocumentService(config.DocumentsDir)
	answerClient = NewAnswerClient(config.AnswerEngineURL, logger)

	// Sweep expired reset tokens periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if n, err := cleanupExpiredResetTokens(); err != nil {
				logger.Warn("reset token cleanup failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("cleaned up expired reset tokens", zap.Int64("count", n))
			}
		}
	}()

	if config.Debug {
		fmt.Println("Debug mode is enabled")
	}

	fmt.Printf("Server is running on http://%s\n"+
		"Uploads dir is %s\n"+
		"Database path is %s\n",
		config.Bind, config.UploadsDir, config.DatabasePath)

	log.Fatal(http.ListenAndServe(config.Bind, newRouter()))
}
