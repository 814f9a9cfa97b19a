package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signtrack/internal/auth"
	"signtrack/internal/config"
	"signtrack/internal/domain"
	"signtrack/internal/infra/db"
	"signtrack/internal/infra/docusign"
	"signtrack/internal/infra/locks"
	"signtrack/internal/webhook"
)

// WebhookProcessor applies one inbound provider notification.
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, remoteAddr string) (string, string, error)
}

// ConsentChecker probes whether an organization's signing identity needs an
// interactive consent grant.
type ConsentChecker interface {
	CheckConsent(ctx context.Context, orgKey string) (string, error)
}

// EnvelopeReader serves the admin read views over stage and audit rows.
type EnvelopeReader interface {
	List(ctx context.Context, limit int) ([]domain.EnvelopeStage, error)
	ListAudit(ctx context.Context, envelopeID string) ([]domain.EnvelopeAuditEvent, error)
}

type Server struct {
	cfg config.Config
	r   *gin.Engine
	log *zap.Logger

	processor WebhookProcessor
	consent   ConsentChecker
	envelopes EnvelopeReader
	locks     locks.Service

	adminAPIKey string
}

// NewServer wires the production dependency graph: gorm repositories, the
// reconciler, the token manager backed by the provider OAuth client, and a
// redis lock service when configured (in-memory otherwise).
func NewServer(cfg config.Config, store *db.Store, log *zap.Logger) *Server {
	envelopeRepo := db.NewEnvelopeRepository(store.DB)
	identityRepo := db.NewIdentityRepository(store.DB)

	oauth := docusign.NewOAuthClient(cfg.DocuSignAuthServer, cfg.DocuSignClientID)
	tokens := auth.NewManager(auth.ManagerConfig{
		AuthServerHost: cfg.DocuSignAuthServer,
		ClientID:       cfg.DocuSignClientID,
		PrivateKey:     cfg.DocuSignPrivateKey,
		RedirectURI:    cfg.DocuSignRedirectURI,
		TokenTTL:       cfg.TokenTTL(),
	}, identityRepo, oauth, log)

	lockSvc := locks.Service(locks.NewMemoryService(nil))
	if cfg.RedisAddr != "" {
		if redisSvc, err := locks.NewRedisService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err == nil {
			lockSvc = redisSvc
		} else {
			log.Warn("redis lock service unavailable, using in-memory locks", zap.Error(err))
		}
	}

	return NewServerWithDeps(cfg, ServerDeps{
		Processor: webhook.NewReconciler(envelopeRepo, log),
		Consent:   tokens,
		Envelopes: envelopeRepo,
		Locks:     lockSvc,
		Logger:    log,
	})
}

type ServerDeps struct {
	Processor WebhookProcessor
	Consent   ConsentChecker
	Envelopes EnvelopeReader
	Locks     locks.Service
	Logger    *zap.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		cfg:         cfg,
		r:           r,
		log:         log,
		processor:   deps.Processor,
		consent:     deps.Consent,
		envelopes:   deps.Envelopes,
		locks:       deps.Locks,
		adminAPIKey: cfg.AdminAPIKey,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	s.r.POST("/webhooks/docusign", s.handleWebhook)

	admin := s.r.Group("/admin")
	{
		admin.GET("/envelopes", s.handleListEnvelopes)
		admin.GET("/envelopes/:envelope_id/audit", s.handleListAudit)
		admin.GET("/consent/:org_key", s.handleCheckConsent)
		admin.POST("/locks/throttle/release", s.handleReleaseThrottleLock)
		admin.POST("/locks/envelopes/:owner_kind/:owner_id/release", s.handleReleaseEnvelopeLock)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() *gin.Engine {
	return s.r
}
