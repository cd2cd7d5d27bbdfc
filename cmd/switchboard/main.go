package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/pilotlight/switchboard/internal/api/handlers"
	"github.com/pilotlight/switchboard/internal/backend"
	"github.com/pilotlight/switchboard/internal/config"
	"github.com/pilotlight/switchboard/internal/machine"
	"github.com/pilotlight/switchboard/internal/platform"
	"github.com/pilotlight/switchboard/internal/registry"
	"github.com/pilotlight/switchboard/internal/scheduler"
	"github.com/pilotlight/switchboard/internal/switcher"
	"github.com/pilotlight/switchboard/internal/version"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("SWITCHBOARD_CONFIG")
	if cfgPath == "" {
		cfgPath = "switchboard.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := backend.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}

	services := platform.Registry()
	reg := registry.New(store, services, registry.Options{
		CallTimeout:        cfg.CallTimeout,
		RefreshConcurrency: cfg.Refresh.Concurrency,
	})
	// Fail soft on startup load: an unreachable backend must not prevent
	// the process from serving retries.
	if err := reg.LoadAll(context.Background()); err != nil {
		log.Printf("⚠️ Initial account load failed (continuing): %v", err)
	}

	binder := machine.NewBinder(store)
	orch := switcher.New(reg, binder)

	sched := scheduler.New(reg, cfg.Refresh.Interval)
	if cfg.Refresh.Enabled {
		sched.Start()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Optional admin auth middleware
	adminPassword := os.Getenv("SWITCHBOARD_ADMIN_PASSWORD")
	optionalAdminAuth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminPassword == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, pass, ok := r.BasicAuth()
			if !ok || pass != adminPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="Switchboard Admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + version.Version + `"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(optionalAdminAuth)

		// Account management
		r.Get("/accounts", handlers.ListAccountsHandler(reg))
		r.Post("/accounts", handlers.AddAccountHandler(reg))
		r.Patch("/accounts/{id}", handlers.UpdateAccountHandler(reg))
		r.Delete("/accounts/{id}", handlers.DeleteAccountHandler(reg))
		r.Get("/accounts/{id}/quota", handlers.QuotaHandler(reg))
		r.Post("/accounts/{id}/switch", handlers.SwitchAccountHandler(reg, orch))
		r.Post("/accounts/{id}/refresh", handlers.RefreshAccountHandler(reg))

		// Batch refresh of expiring credentials
		r.Post("/refresh", handlers.BatchRefreshHandler(reg))

		// Machine fingerprints
		r.Get("/bindings", handlers.BindingsHandler(binder))
		r.Delete("/bindings/{accountID}", handlers.UnbindHandler(binder))
		r.Get("/machine-id", handlers.MachineIDHandler(binder))
		r.Put("/machine-id", handlers.SetMachineIDHandler(binder))

		// Auto-refresh scheduler
		r.Get("/scheduler", handlers.SchedulerStatusHandler(sched))
		r.Post("/scheduler/start", handlers.StartSchedulerHandler(sched))
		r.Post("/scheduler/stop", handlers.StopSchedulerHandler(sched))
	})

	log.Printf("🚀 Switchboard %s listening on %s", version.Version, cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
