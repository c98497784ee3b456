// client.go deals with a single authenticated portal session.

package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"surveylogic/internal/components/assert"
	"surveylogic/internal/components/telemetry"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_login      = "client.login"
	report_client_fetch_user = "client.fetch-user"
)

const (
	DefaultLoginPath = "/accounts/login/"
	DefaultQueryPath = "/forever_new/query/"

	csrfField = "csrfmiddlewaretoken"
)

var (
	ErrLoginFailed   = errors.New("portal login failed")
	ErrTokenNotFound = errors.New("csrf token not found")
	ErrStatus        = errors.New("unexpected response status")
)

// Options controls how a Client talks to the portal.
type Options struct {
	BaseUrl   string
	LoginPath string
	QueryPath string
	// Timeout is per request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond is per session, defaults to 2.
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Dump receives every HTTP exchange of the session when set, password
	// form fields are redacted.
	Dump telemetry.MessageOutput
}

func (o Options) withDefaults() Options {
	if o.LoginPath == "" {
		o.LoginPath = DefaultLoginPath
	}
	if o.QueryPath == "" {
		o.QueryPath = DefaultQueryPath
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	return o
}

type Credentials struct {
	Username string
	Password string
}

// Client is one cookie session against the portal. The token refresh and the
// query that consumes it are serialized, so a Client may be shared but will
// not run queries in parallel.
type Client struct {
	http     *resty.Client
	opts     Options
	loginUrl string
	queryUrl string

	mu  sync.Mutex
	tel telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("portal", tel)
	opts = opts.withDefaults()

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	loginUrl := parsedBaseUrl.JoinPath(opts.LoginPath).String()
	queryUrl := parsedBaseUrl.JoinPath(opts.QueryPath).String()

	httpClient := resty.New()
	httpClient.SetBaseURL(parsedBaseUrl.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "portal", tel, opts.Dump)

	return &Client{
		http:     httpClient,
		opts:     opts,
		loginUrl: loginUrl,
		queryUrl: queryUrl,
		tel:      tel,
	}, nil
}

func parseResponse(res *resty.Response) (*goquery.Document, error) {
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrStatus, res.Status())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func csrfToken(doc *goquery.Document) (string, error) {
	token := doc.Find(fmt.Sprintf("input[name=%s]", csrfField)).AttrOr("value", "")
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Login submits the credentials through the login form, the session stays
// authenticated through its cookies.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loginError := func(err error) error {
		return fmt.Errorf("portal: login: %w", err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.opts.LoginPath)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login page request: %w", err))
		return loginError(err)
	}
	doc, err := parseResponse(res)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login page: %w", err))
		return loginError(err)
	}
	token, err := csrfToken(doc)
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
		return loginError(err)
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetHeader("Referer", c.loginUrl).
		SetFormData(map[string]string{
			csrfField:  token,
			"username": creds.Username,
			"password": creds.Password,
		}).
		Post(c.opts.LoginPath)
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("login request: %w", err))
		return loginError(err)
	}
	doc, err = parseResponse(res)
	if err != nil {
		c.tel.ReportWarning(report_client_login, fmt.Errorf("login response: %w", err))
		return loginError(fmt.Errorf("%w: %w", ErrLoginFailed, err))
	}

	// django renders the form again when the credentials are rejected
	if doc.Find("input[name=password]").Length() > 0 {
		c.tel.ReportWarning(report_client_login, "login form still present", creds.Username)
		return loginError(ErrLoginFailed)
	}

	c.tel.ReportDebug(report_client_login, "logged in", creds.Username)
	return nil
}

// FetchUser queries the portal for a single user.
func (c *Client) FetchUser(ctx context.Context, userID string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fetchError := func(err error) error {
		return fmt.Errorf("portal: fetch user %q: %w", userID, err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.opts.QueryPath)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_user, fmt.Errorf("query page request: %w", err), userID)
		return Record{}, fetchError(err)
	}
	doc, err := parseResponse(res)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_user, fmt.Errorf("query page: %w", err), userID)
		return Record{}, fetchError(err)
	}
	token, err := csrfToken(doc)
	if err != nil {
		c.tel.ReportBroken(report_client_fetch_user, err, userID)
		return Record{}, fetchError(err)
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetHeader("Referer", c.queryUrl).
		SetFormData(map[string]string{
			csrfField: token,
			"user_id": userID,
		}).
		Post(c.opts.QueryPath)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_user, fmt.Errorf("query request: %w", err), userID)
		return Record{}, fetchError(err)
	}
	doc, err = parseResponse(res)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_user, fmt.Errorf("query response: %w", err), userID)
		return Record{}, fetchError(err)
	}

	fields, err := ExtractUserProperties(doc)
	if err != nil {
		c.tel.ReportWarning(report_client_fetch_user, err, userID)
		return Record{}, fetchError(err)
	}

	return Record{UserID: userID, Fields: fields}, nil
}
