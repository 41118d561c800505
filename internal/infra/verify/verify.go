package verify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Builder-Lawyers/store-builder/internal/application/interfaces"
	"github.com/go-resty/resty/v2"
)

type Config struct {
	Scheme         string
	RequestTimeout time.Duration
	UserAgent      string
}

// HTTPVerifier polls a domain until it answers with a 2xx or 3xx status.
type HTTPVerifier struct {
	cfg    Config
	client *resty.Client
}

var _ interfaces.DomainVerifier = (*HTTPVerifier)(nil)

func NewHTTPVerifier(cfg Config) *HTTPVerifier {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &HTTPVerifier{cfg: cfg, client: client}
}

func (v *HTTPVerifier) VerifyLive(ctx context.Context, domain string, maxAttempts int, interval time.Duration) bool {
	url := v.cfg.Scheme + "://" + domain + "/"
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := v.client.R().SetContext(ctx).Get(url)
		if err == nil && resp.StatusCode() >= 200 && resp.StatusCode() < 400 {
			slog.Info("domain is live", "domain", domain, "attempt", attempt, "status", resp.StatusCode())
			return true
		}
		if err != nil {
			slog.Debug("verify attempt failed", "domain", domain, "attempt", attempt, "err", err)
		} else {
			slog.Debug("verify attempt not live", "domain", domain, "attempt", attempt, "status", resp.StatusCode())
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	slog.Warn("domain did not become live", "domain", domain, "attempts", maxAttempts)
	return false
}
