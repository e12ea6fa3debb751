package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"trade_bot/internal/models"
	healthsvc "trade_bot/internal/modules/health/service"
	"trade_bot/pkg/tracing"
)

var ErrNotFound = errors.New("delta: not found")

type Config struct {
	PublicURL  string
	PrivateURL string // подпись запросов делает прокси за этим адресом
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	MarketTTL  time.Duration

	// на случай, если /products недоступен
	Symbol    string
	ProductID int64
}

// Client REST-шлюз Delta Exchange. Все ответы в конверте {success, result, error}.
type Client struct {
	cfg     Config
	pub     *resty.Client
	priv    *resty.Client
	limiter *rate.Limiter
	metrics *healthsvc.Metrics
	now     func() time.Time

	mu        sync.Mutex
	markets   []models.Market
	marketsAt time.Time
}

func NewClient(cfg Config, metrics *healthsvc.Metrics) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.PrivateURL
	}
	return &Client{
		cfg:     cfg,
		pub:     newResty(cfg.PublicURL, cfg.Timeout),
		priv:    newResty(cfg.PrivateURL, cfg.Timeout).SetHeader("api-key", cfg.APIKey),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		metrics: metrics,
		now:     time.Now,
	}
}

func newResty(base string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(base, "/")).
		SetTimeout(timeout).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "trade_bot")
}

type call struct {
	op     string
	client *resty.Client
	method string
	path   string
	query  map[string]string
	body   any
}

// do без ретраев: повтор создания ордера не идемпотентен, решает вызывающий.
func (c *Client) do(ctx context.Context, cl call, out any) (err error) {
	ctx, finish := tracing.StartSpan(ctx, "delta."+cl.op)
	defer func() {
		if err != nil {
			c.metrics.GatewayError(cl.op)
		}
		finish(err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, cl.op)
	}

	req := cl.client.R().SetContext(ctx)
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", cl.method, cl.path)
	}

	var env envelope
	if len(resp.Body()) > 0 {
		if err := sonic.Unmarshal(resp.Body(), &env); err != nil {
			return errors.Wrapf(err, "%s: decode envelope (http %d)", cl.op, resp.StatusCode())
		}
	}
	if !resp.IsSuccess() || !env.Success {
		code := ""
		if env.Error != nil {
			code = env.Error.Code
		}
		if resp.StatusCode() == 404 {
			return errors.Wrapf(ErrNotFound, "%s: code=%s", cl.op, code)
		}
		return errors.Errorf("delta error: op=%s http=%d code=%s", cl.op, resp.StatusCode(), code)
	}

	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(env.Result, out); err != nil {
		return errors.Wrapf(err, "%s: decode result", cl.op)
	}
	return nil
}
