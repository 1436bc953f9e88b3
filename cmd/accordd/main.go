// accordd serves Engine::handle over HTTP and exposes a read path over the
// audit journal (spec §6 External Interfaces).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/accordant-systems/accord/pkg/attention"
	"github.com/accordant-systems/accord/pkg/authorization"
	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/connector"
	"github.com/accordant-systems/accord/pkg/engine"
	"github.com/accordant-systems/accord/pkg/gate"
	"github.com/accordant-systems/accord/pkg/graph"
	"github.com/accordant-systems/accord/pkg/identity"
	"github.com/accordant-systems/accord/pkg/journal"
	"github.com/accordant-systems/accord/pkg/metrics"
	"github.com/accordant-systems/accord/pkg/models"
	"github.com/accordant-systems/accord/pkg/profile"
	"github.com/accordant-systems/accord/pkg/router"
	"github.com/accordant-systems/accord/pkg/selfmod"
	"github.com/accordant-systems/accord/pkg/threshold"
	"github.com/accordant-systems/accord/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./configs"),
		"Path to configuration directory")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("app", version.Full())

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		log.Info("loaded environment file", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	mx := metrics.New(reg)

	identities := identity.NewMemoryRegistry()
	members := authorization.NewStore()
	g := graph.New(graph.NewMemoryStore())
	j := journal.New(journal.NewMemoryStore()).WithMetrics(mx)
	r := router.New(cfg, members)
	th := threshold.New(threshold.NewMemoryStore(), j).WithMetrics(mx)
	budgets := attention.NewMemoryBudgetStore()
	couplings := attention.NewMemoryCouplingStore()
	at := attention.New(budgets, couplings).
		WithProfiles(profile.NewResolver(identities, cfg.RecoveryRegistry)).
		WithMetrics(mx)

	risk := gate.NewDefaultRiskAssessor(splitCSV(getEnv("HIGH_RISK_JURISDICTIONS", ""))...)
	gt := gate.New(cfg, identities, g, r, th, at, j, risk).WithMetrics(mx)

	selfmodLimits := map[models.SelfModTier]selfmod.TierLimit{
		models.TierT4: {PerHour: 4, Burst: 1},
		models.TierT5: {PerHour: 1, Burst: 1},
	}
	sm := selfmod.New(gt, g, selfmodLimits)

	eng := engine.New(cfg, gt, r)

	var notifier *connector.GovernanceNotifier
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		notifier = connector.NewGovernanceNotifier(token, getEnv("SLACK_GOVERNANCE_CHANNEL", "#governance"))
	}

	log.Info("accountability runtime initialized",
		"policies", cfg.Stats().Policies,
		"roles", cfg.Stats().Roles,
		"capabilities", cfg.Stats().Capabilities,
		"recovery_profiles", cfg.Stats().RecoveryProfiles)

	httpHandler := newHTTPRouter(eng, sm, j, notifier, reg, log)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      httpHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("accordd listening", "port", httpPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("http server terminated", "error", err)
		os.Exit(1)
	}
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func newHTTPRouter(eng *engine.Engine, sm *selfmod.Extension, j *journal.Journal, notifier *connector.GovernanceNotifier, reg *prometheus.Registry, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.POST("/v1/handle", func(c *gin.Context) {
		var req engine.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp := eng.Handle(req)
		log.Info("handled request", "trace_id", resp.TraceID, "status", resp.Status, "mode", resp.Mode)

		if notifier != nil {
			for _, cond := range resp.Conditions {
				if cond.Kind == models.ConditionNotifyGovernance {
					decl := models.CommitmentDeclaration{Declarer: req.Principal, Scope: req.Scope}
					if err := notifier.Notify(c.Request.Context(), resp.CommitmentID, decl, resp.DecisionReason); err != nil {
						log.Warn("governance notification failed", "trace_id", resp.TraceID, "error", err)
					}
				}
			}
		}

		c.JSON(http.StatusOK, resp)
	})

	r.POST("/v1/selfmod", func(c *gin.Context) {
		var p models.SelfModProposal
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result := sm.Submit(p)
		log.Info("handled self-modification proposal", "proposal_id", p.ID, "tier", p.Tier, "decision", result.Card.Decision)
		c.JSON(http.StatusOK, result)
	})

	r.GET("/v1/journal", func(c *gin.Context) {
		from, _ := strconv.ParseUint(c.DefaultQuery("from", "1"), 10, 64)
		to, _ := strconv.ParseUint(c.DefaultQuery("to", "0"), 10, 64)
		if to == 0 {
			to = ^uint64(0)
		}
		entries, err := j.List(from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		body, err := json.Marshal(entries)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	})

	return r
}
