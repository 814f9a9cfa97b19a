package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signtrack/internal/domain"
	"signtrack/internal/infra/locks"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type webhookResponse struct {
	EnvelopeID string `json:"envelope_id"`
	Status     string `json:"status"`
}

func (s *Server) handleWebhook(c *gin.Context) {
	if s.processor == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "UNAVAILABLE", "webhook processing unavailable")
		return
	}
	payload, err := c.GetRawData()
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_BODY", "unable to read request body")
		return
	}

	envelopeID, status, err := s.processor.ProcessWebhook(c.Request.Context(), payload, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, webhookResponse{EnvelopeID: envelopeID, Status: status})
}

type stageResponse struct {
	EnvelopeID      string `json:"envelope_id"`
	EnvelopeStatus  string `json:"envelope_status"`
	RecipientStatus string `json:"recipient_status"`
	OwnerKind       string `json:"owner_kind"`
	OwnerID         int64  `json:"owner_id"`
	Terminal        bool   `json:"terminal"`
	UpdatedAt       string `json:"updated_at"`
}

func (s *Server) handleListEnvelopes(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.envelopes == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	stages, err := s.envelopes.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]stageResponse, 0, len(stages))
	for _, stage := range stages {
		out = append(out, stageResponse{
			EnvelopeID:      stage.EnvelopeID,
			EnvelopeStatus:  stage.EnvelopeStatus,
			RecipientStatus: stage.RecipientStatus,
			OwnerKind:       string(stage.Owner.Kind),
			OwnerID:         stage.Owner.ID,
			Terminal:        domain.IsTerminalStatus(stage.EnvelopeStatus),
			UpdatedAt:       stage.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"envelopes": out})
}

type auditResponse struct {
	EventType       string `json:"event_type"`
	EventValue      string `json:"event_value"`
	EventReceivedAt string `json:"event_received_at"`
	RemoteAddr      string `json:"remote_addr"`
}

func (s *Server) handleListAudit(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.envelopes == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	events, err := s.envelopes.ListAudit(c.Request.Context(), c.Param("envelope_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditResponse, 0, len(events))
	for _, event := range events {
		out = append(out, auditResponse{
			EventType:       event.EventType,
			EventValue:      event.EventValue,
			EventReceivedAt: event.EventReceivedAt.UTC().Format(time.RFC3339),
			RemoteAddr:      event.RemoteAddr,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func (s *Server) handleCheckConsent(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.consent == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	consentURL, err := s.consent.CheckConsent(c.Request.Context(), c.Param("org_key"))
	if err != nil {
		writeError(c, err)
		return
	}
	if consentURL == "" {
		c.JSON(http.StatusOK, gin.H{"consent_required": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"consent_required": true, "consent_url": consentURL})
}

func (s *Server) handleReleaseThrottleLock(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.locks == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	released, err := s.locks.Release(c.Request.Context(), locks.ThrottleResetKey)
	if err != nil {
		writeError(c, err)
		return
	}
	s.log.Info("throttle lock release requested", zap.Bool("released", released))
	c.JSON(http.StatusOK, gin.H{"released": released})
}

func (s *Server) handleReleaseEnvelopeLock(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.locks == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	kind := domain.OwnerKind(c.Param("owner_kind"))
	switch kind {
	case domain.OwnerLoan, domain.OwnerApplication:
	default:
		writeErrorCode(c, http.StatusBadRequest, "INVALID_OWNER_KIND", "unknown owner kind")
		return
	}
	ownerID, err := strconv.ParseInt(c.Param("owner_id"), 10, 64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_OWNER_ID", "owner id must be an integer")
		return
	}
	owner := domain.OwnerRef{Kind: kind, ID: ownerID}
	released, err := s.locks.Release(c.Request.Context(), locks.EnvelopeSendKey(owner))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin api disabled")
		return false
	}
	key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		status, code = http.StatusBadRequest, "MALFORMED_PAYLOAD"
	case errors.Is(err, domain.ErrMissingEnvelopeID):
		status, code = http.StatusBadRequest, "MISSING_ENVELOPE_ID"
	case errors.Is(err, domain.ErrUnrecognizedPayload):
		status, code = http.StatusNotFound, "UNRECOGNIZED_PAYLOAD"
	case errors.Is(err, domain.ErrUnknownEnvelope):
		status, code = http.StatusNotFound, "UNKNOWN_ENVELOPE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrTransport):
		status, code = http.StatusBadGateway, "TRANSPORT_ERROR"
	case errors.Is(err, domain.ErrAuth):
		status, code = http.StatusBadGateway, "AUTH_ERROR"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message})
}
