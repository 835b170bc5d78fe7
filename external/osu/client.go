package osu

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/match-hub/internal/domain/match"
	"github.com/riskibarqy/match-hub/internal/platform/logging"
	"github.com/riskibarqy/match-hub/internal/platform/metrics"
	"github.com/riskibarqy/match-hub/internal/platform/resilience"
	"github.com/riskibarqy/match-hub/internal/usecase"
)

const (
	defaultBaseURL  = "https://osu.ppy.sh/api/v2"
	defaultTokenURL = "https://osu.ppy.sh/oauth/token"
	maxBodyBytes    = 8 << 20
	// rateLimitSlack bounds how long a shared call may queue on the limiter.
	rateLimitSlack = time.Minute
)

var bearerRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`)
var errOsuTransient = crerr.New("osu transient failure")
var errResponseTooLarge = crerr.New("osu response too large")

type ClientConfig struct {
	HTTPClient         *http.Client
	BaseURL            string
	TokenURL           string
	ClientID           string
	ClientSecret       string
	AccessToken        string
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	RateLimitPerMinute int
	Logger             *logging.Logger
	Metrics            *metrics.Recorder
	CircuitBreaker     resilience.CircuitBreakerConfig
}

// Client reads multiplayer matches from the osu! API v2.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     oauth2.TokenSource
	maxRetries int
	backoff    time.Duration
	callBudget time.Duration
	maxBody    int64
	limiter    *rate.Limiter
	logger     *logging.Logger
	metrics    *metrics.Recorder
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight[[]byte]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	maxRetries := max(cfg.MaxRetries, 0)

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     newTokenSource(cfg, httpClient),
		maxRetries: maxRetries,
		backoff:    backoff,
		callBudget: callBudget(httpClient.Timeout, backoff, maxRetries),
		maxBody:    maxBodyBytes,
		limiter:    newLimiter(cfg.RateLimitPerMinute),
		logger:     logger,
		metrics:    cfg.Metrics,
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
}

// newTokenSource prefers a static token and otherwise runs the
// client-credentials grant with scope "public". Tokens are cached until they
// expire.
func newTokenSource(cfg ClientConfig, httpClient *http.Client) oauth2.TokenSource {
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	cc := clientcredentials.Config{
		ClientID:     strings.TrimSpace(cfg.ClientID),
		ClientSecret: strings.TrimSpace(cfg.ClientSecret),
		TokenURL:     tokenURL,
		Scopes:       []string{"public"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return cc.TokenSource(ctx)
}

// callBudget covers every attempt, the linear backoff between them and a
// limiter wait.
func callBudget(timeout, backoff time.Duration, retries int) time.Duration {
	attempts := time.Duration(retries + 1)
	backoffSteps := time.Duration(retries * (retries + 1) / 2)
	return timeout*attempts + backoff*backoffSteps + rateLimitSlack
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 6
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst)
}

// FetchMatch returns the raw match payload. Unknown matches yield
// usecase.ErrNotFound; an unreachable or rejecting upstream yields
// usecase.ErrDependencyUnavailable.
func (c *Client) FetchMatch(ctx context.Context, matchID int64) (match.RawMatch, error) {
	ctx, span := startSpan(ctx, "external.osu.Client.FetchMatch")
	defer span.End()

	if matchID <= 0 {
		return match.RawMatch{}, crerr.Wrapf(usecase.ErrInvalidInput, "match id must be greater than zero, got %d", matchID)
	}

	path := "/matches/" + strconv.FormatInt(matchID, 10)
	// The shared call outlives a cancelled leader so followers still get the result.
	raw, err, _ := c.flight.Do(path, func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callBudget)
		defer cancel()

		var body []byte
		execErr := c.breaker.Execute(func() error {
			var reqErr error
			body, reqErr = c.executeRequest(callCtx, c.baseURL+path)
			if reqErr != nil && callCtx.Err() != nil && !crerr.Is(reqErr, errOsuTransient) {
				reqErr = crerr.Wrapf(errOsuTransient, "osu call exceeded %s: %v", c.callBudget, reqErr)
			}
			return reqErr
		}, isCircuitFailure)
		return body, execErr
	})
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return match.RawMatch{}, c.classifyError(ctx, matchID, err)
	}

	var out match.RawMatch
	if err := sonic.Unmarshal(raw, &out); err != nil {
		c.metrics.FetchFailed("decode")
		return match.RawMatch{}, crerr.Mark(crerr.Wrapf(err, "decode osu match %d", matchID), match.ErrMalformedInput)
	}

	return out, nil
}

func (c *Client) classifyError(ctx context.Context, matchID int64, err error) error {
	switch {
	case crerr.Is(err, usecase.ErrNotFound):
		c.metrics.FetchFailed("not_found")
		return err
	case crerr.Is(err, resilience.ErrCircuitOpen):
		c.metrics.FetchFailed("circuit_open")
		c.logger.WarnContext(ctx, "osu circuit breaker rejected request", "match_id", matchID, "state", c.breaker.State())
		return crerr.Mark(crerr.Wrap(err, "osu api is temporarily unavailable"), usecase.ErrDependencyUnavailable)
	case ctx.Err() != nil:
		return crerr.Wrapf(ctx.Err(), "fetch osu match %d", matchID)
	case crerr.Is(err, errResponseTooLarge):
		c.metrics.FetchFailed("too_large")
		return crerr.Mark(err, usecase.ErrDependencyUnavailable)
	case crerr.Is(err, errOsuTransient):
		c.metrics.FetchFailed("transient")
		return crerr.Mark(err, usecase.ErrDependencyUnavailable)
	default:
		c.metrics.FetchFailed("rejected")
		return err
	}
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, crerr.Wrap(err, "wait for osu rate limit")
			}
		}

		token, err := c.tokens.Token()
		if err != nil {
			return nil, crerr.Mark(crerr.Wrap(err, "obtain osu access token"), usecase.ErrDependencyUnavailable)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")
		token.SetAuthHeader(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Wrapf(errOsuTransient, "send request: %s", sanitizeSensitiveText(err.Error(), token.AccessToken))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Wrapf(errOsuTransient, "read response body: %v", readErr)
			case int64(len(raw)) > c.maxBody:
				return nil, crerr.Wrapf(errResponseTooLarge, "status=%d exceeds %d bytes", resp.StatusCode, c.maxBody)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, crerr.Wrapf(usecase.ErrNotFound, "osu match not found: %s", fullURL)
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return nil, crerr.Mark(
					crerr.Newf("osu api rejected credentials: status=%d", resp.StatusCode),
					usecase.ErrDependencyUnavailable,
				)
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Wrapf(errOsuTransient, "osu status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, crerr.Newf("osu status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("osu request failed")
	}
	c.logger.WarnContext(ctx, "osu request failed", "url", fullURL, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

// isCircuitFailure counts only upstream trouble against the breaker; a
// missing match is a healthy answer.
func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return crerr.Is(err, errOsuTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return bearerRegex.ReplaceAllString(value, "Bearer REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
