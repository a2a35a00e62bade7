// Package redirect serves the public short link endpoint. This is the hot
// path: one cache-backed tenant lookup, one link lookup, rule evaluation,
// then a 302. Analytics happen after the response, never before.
package redirect

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"publink/internal/analytics"
	linkmetrics "publink/internal/link/metrics"
	"publink/internal/link/models"
	"publink/internal/link/routing"
	"publink/internal/link/safelist"
	"publink/internal/link/store"
	"publink/internal/platform/middleware"
	"publink/internal/privacy"
	tenantmodels "publink/internal/tenant/models"
	"publink/pkg/platform/sentinel"
	"publink/pkg/requestcontext"
)

var tracer = otel.Tracer("publink/internal/redirect")

// TenantResolver resolves the request hostname to a tenant.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, hostname string, userTenantID *uuid.UUID) (*tenantmodels.Tenant, bool)
}

// EventRecorder accepts privacy-shaped events for asynchronous persistence.
type EventRecorder interface {
	Record(ev analytics.Event)
}

type Handler struct {
	tenants  TenantResolver
	links    store.LinkStore
	rules    store.RuleStore
	recorder EventRecorder
	logger   *slog.Logger
	metrics  *linkmetrics.Metrics
}

func New(tenants TenantResolver, links store.LinkStore, rules store.RuleStore, recorder EventRecorder, logger *slog.Logger, metrics *linkmetrics.Metrics) *Handler {
	return &Handler{
		tenants:  tenants,
		links:    links,
		rules:    rules,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Register mounts the public redirect route.
func (h *Handler) Register(r chi.Router) {
	r.Get("/{shortCode}", h.redirect)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracer.Start(r.Context(), "redirect")
	defer span.End()

	shortCode := chi.URLParam(r, "shortCode")
	span.SetAttributes(attribute.String("link.short_code", shortCode))

	tenant, _ := h.tenants.ResolveTenant(ctx, r.Host, nil)
	settings := privacy.DefaultSettings()
	if tenant != nil {
		settings = tenant.PrivacySettings
		span.SetAttributes(attribute.String("tenant.slug", tenant.Slug))
	}

	l, err := h.links.FindByShortCode(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			h.logger.ErrorContext(ctx, "link lookup failed", "short_code", shortCode, "error", err.Error())
		}
		h.finish(span, linkmetrics.OutcomeNotFound, start, func() {
			http.NotFound(w, r)
		})
		return
	}

	now := requestcontext.Now(ctx)
	switch {
	case !l.IsActive():
		h.finish(span, linkmetrics.OutcomeInactive, start, func() {
			http.NotFound(w, r)
		})
		return
	case l.Expired(now):
		h.finish(span, linkmetrics.OutcomeExpired, start, func() {
			http.Error(w, "link has expired", http.StatusGone)
		})
		return
	}

	rules, err := h.rules.ListByLink(ctx, l.ID)
	if err != nil {
		// A rule listing failure degrades to the default destination rather
		// than failing the redirect.
		h.logger.ErrorContext(ctx, "rule listing failed, using default destination",
			"short_code", shortCode, "error", err.Error())
		rules = nil
	}

	evalCtx := routing.Context{
		Country:    geoCountry(r),
		Language:   preferredLanguage(r),
		DeviceType: middleware.DeviceTypeFromUserAgent(requestcontext.UserAgent(ctx)),
		Now:        now,
	}.Normalize()
	destination := routing.ResolveDestination(l, rules, evalCtx)

	// Whitelist tightening since creation must take effect at redirect time.
	if verdict := safelist.ValidateForTenant(destination, tenant); !verdict.Allowed {
		h.logger.WarnContext(ctx, "redirect blocked by whitelist",
			"short_code", shortCode, "reason", verdict.Reason)
		h.finish(span, linkmetrics.OutcomeBlocked, start, func() {
			http.Error(w, "destination is not permitted", http.StatusForbidden)
		})
		return
	}

	h.finish(span, linkmetrics.OutcomeRedirected, start, func() {
		http.Redirect(w, r, destination, http.StatusFound)
	})

	h.recordVisit(ctx, l, tenant, settings, evalCtx, r)
}

func (h *Handler) finish(span trace.Span, outcome string, start time.Time, respond func()) {
	span.SetAttributes(attribute.String("redirect.outcome", outcome))
	respond()
	if h.metrics != nil {
		h.metrics.ObserveRedirect(outcome, start)
	}
}

// recordVisit shapes the observation under the tenant's privacy settings and
// hands it to the recorder. The response has already been written; nothing
// here can delay or fail the redirect.
func (h *Handler) recordVisit(ctx context.Context, l *models.Link, tenant *tenantmodels.Tenant, settings privacy.Settings, evalCtx routing.Context, r *http.Request) {
	var tenantID *uuid.UUID
	if tenant != nil {
		tenantID = &tenant.ID
	}
	raw := privacy.RawEvent{
		LinkID:     l.ID,
		TenantID:   tenantID,
		Timestamp:  requestcontext.Now(ctx),
		IP:         requestcontext.ClientIP(ctx),
		Country:    evalCtx.Country,
		Region:     geoRegion(r),
		Language:   evalCtx.Language,
		DeviceType: evalCtx.DeviceType,
		Referrer:   r.Referer(),
	}
	h.recorder.Record(privacy.PrepareEvent(raw, settings))

	linkID := l.ID
	go func() {
		if err := h.links.IncrementClickCount(context.Background(), linkID); err != nil {
			h.logger.Warn("click count increment failed", "link_id", linkID, "error", err.Error())
		}
	}()
}

// geoCountry reads the edge-provided country code. Geo resolution happens at
// the CDN or reverse proxy; the service never does IP geolocation itself.
func geoCountry(r *http.Request) string {
	if c := r.Header.Get("CF-IPCountry"); c != "" && c != "XX" {
		return c
	}
	return r.Header.Get("X-Geo-Country")
}

func geoRegion(r *http.Request) string {
	return r.Header.Get("X-Geo-Region")
}

// preferredLanguage extracts the first tag from Accept-Language, ignoring
// quality weights. Full parsing buys nothing here: rules match on primary
// tags or exact locales.
func preferredLanguage(r *http.Request) string {
	raw := r.Header.Get("Accept-Language")
	if raw == "" {
		return ""
	}
	first := raw
	if idx := strings.IndexByte(first, ','); idx != -1 {
		first = first[:idx]
	}
	if idx := strings.IndexByte(first, ';'); idx != -1 {
		first = first[:idx]
	}
	return strings.TrimSpace(first)
}
