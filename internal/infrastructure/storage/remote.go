package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Remote stores values in an HTTP key/value service:
//
//	GET {base}/kv/{key}  -> 200 body | 404
//	PUT {base}/kv/{key}  <- body
//
// Requests are never retried. A circuit breaker skips calls while the
// service keeps failing; the next durable mutation after the cooldown is the trial call.
type Remote struct {
	client  *resty.Client
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// NewRemote creates a client for the service at baseURL
func NewRemote(baseURL string, timeout time.Duration, logger *zap.Logger) (*Remote, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote storage url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(u.String(), "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", "soundscape-storage/1.0")

	r := &Remote{client: client, logger: logger}
	r.breaker = resilience.New("remote-storage", resilience.Settings{
		Threshold: 3,
		Cooldown:  15 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Storage circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return r, nil
}

// Load fetches the value for key
func (r *Remote) Load(ctx context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	var data []byte
	notFound := false
	err := r.breaker.Do(func() error {
		resp, err := r.client.R().
			SetContext(ctx).
			SetPathParam("key", key).
			Get("/kv/{key}")
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			notFound = true
			return nil
		case resp.IsError():
			return fmt.Errorf("get %s: unexpected status %d", key, resp.StatusCode())
		}
		data = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, ErrNotFound
	}
	return data, nil
}

// Save stores data under key
func (r *Remote) Save(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}

	return r.breaker.Do(func() error {
		resp, err := r.client.R().
			SetContext(ctx).
			SetPathParam("key", key).
			SetHeader("Content-Type", "application/json").
			SetBody(data).
			Put("/kv/{key}")
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		if resp.IsError() {
			return fmt.Errorf("put %s: unexpected status %d", key, resp.StatusCode())
		}
		return nil
	})
}

// BreakerState reports the circuit breaker state
func (r *Remote) BreakerState() resilience.State {
	return r.breaker.State()
}

// Close implements io.Closer
func (r *Remote) Close() error { return nil }
