package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkFlowAPI/handlers"
	"linkFlowAPI/internal/metacache"
	"linkFlowAPI/internal/store"
	"linkFlowAPI/middleware"
	"linkFlowAPI/services"

	_ "net/http/pprof"
)

var (
	docStore      *store.FirestoreStore
	metaCache     *metacache.Cache
	userService   *services.UserService
	canvasService *services.CanvasService
	linkService   *services.LinkService
	uploadService *services.UploadService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	docStore, err = store.NewFirestoreStore(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Fatal("Failed to initialize Firestore:", err)
	}
	log.Println("Successfully connected to Firestore")

	cacheDir := os.Getenv("METADATA_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "./data/metacache"
	}
	metaCache, err = metacache.Open(cacheDir, metacache.DefaultTTL)
	if err != nil {
		log.Printf("Warning: Could not open metadata cache: %v", err)
		metaCache = nil
	}

	metadataAPI := os.Getenv("METADATA_API_URL")
	if metadataAPI == "" {
		metadataAPI = "https://api.microlink.io"
	}

	userService = services.NewUserService(docStore, services.ClerkIdentityResolver{})
	canvasService = services.NewCanvasService(docStore)
	linkService = services.NewLinkService(metadataAPI, metaCache)

	uploadService, err = services.NewUploadService(os.Getenv("CLOUDINARY_UPLOAD_FOLDER"))
	if err != nil {
		log.Printf("Warning: Could not initialize Cloudinary uploads: %v", err)
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing document store...")
		if err := docStore.Close(); err != nil {
			log.Printf("Error closing document store: %v", err)
		}
		if metaCache != nil {
			if err := metaCache.Close(); err != nil {
				log.Printf("Error closing metadata cache: %v", err)
			}
		}
	}()

	userHandler := handlers.NewUserHandler(userService, uploadService)
	canvasHandler := handlers.NewCanvasHandler(canvasService, userService)
	linkHandler := handlers.NewLinkHandler(linkService)
	pageHandler := handlers.NewPageHandler(userService)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := docStore.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "document store unreachable"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "linkflow-api"}`))
	}).Methods("GET")

	// Public profile surface
	r.HandleFunc("/u/{username}", pageHandler.RenderProfile).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/profiles/{username}", userHandler.GetPublicProfile).Methods("GET")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/auth/session", userHandler.GetSession).Methods("GET")
	protected.HandleFunc("/auth/claim", userHandler.ClaimUsername).Methods("POST")

	protected.HandleFunc("/profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/profile/photo", userHandler.UploadPhoto).Methods("POST")

	protected.HandleFunc("/metadata", linkHandler.ResolveMetadata).Methods("GET")

	protected.HandleFunc("/canvas", canvasHandler.GetCanvas).Methods("GET")
	protected.HandleFunc("/canvas/items/text", canvasHandler.AddTextItem).Methods("POST")
	protected.HandleFunc("/canvas/items/link", canvasHandler.AddLinkItem).Methods("POST")
	protected.HandleFunc("/canvas/items/{itemID}/position", canvasHandler.MoveItem).Methods("PUT")
	protected.HandleFunc("/canvas/items/{itemID}/size", canvasHandler.ResizeItem).Methods("PUT")
	protected.HandleFunc("/canvas/items/{itemID}", canvasHandler.UpdateTextItem).Methods("PUT")
	protected.HandleFunc("/canvas/items/{itemID}", canvasHandler.DeleteItem).Methods("DELETE")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
