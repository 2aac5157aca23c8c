package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
)

// Portal defaults.
const (
	DefaultBaseURL   = "https://mobile.free.fr/moncompte/"
	DefaultUserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:53.0) Gecko/20100101 Firefox/53.0"
	DefaultTimeout   = 30 * time.Second

	// maxBodyBytes bounds every response read from the portal.
	maxBodyBytes = 4 << 20
)

// Portal paths, relative to the base URL.
const (
	pathHome     = "index.php?page=home"
	pathBills    = "index.php?page=suiviconso"
	pathLogout   = "index.php?logout=user"
	pathAudioCue = "chiffre.php?getsound=1&pos=%d"
	pathPrime    = "chiffre.php?pos=%d&small=1"
	refererSound = "sound/soundmanager2_flash9.swf"
	formToken    = "token"
	formLogin    = "login_abo"
	formPassword = "pwd_abo"
	formSMSCode  = "code_sms"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL          string
	UserAgent        string
	Timeout          time.Duration
	PrimingBudget    time.Duration
	SequentialDecode bool
	SecondFactor     SecondFactor
	Logger           *slog.Logger

	// Transport replaces the default HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to the subscriber portal. It runs at most one login attempt
// at a time; every attempt starts from an empty cookie jar.
type Client struct {
	fetcher

	primingBudget time.Duration
	sequential    bool
	matcher       *captcha.Matcher
	secondFactor  SecondFactor
	log           *slog.Logger

	// sleep waits between priming requests.
	sleep func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// NewClient creates a portal client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PrimingBudget <= 0 {
		opts.PrimingBudget = captcha.DefaultPrimingBudget
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		fetcher: fetcher{
			hc:        &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
			base:      base,
			userAgent: opts.UserAgent,
		},
		primingBudget: opts.PrimingBudget,
		sequential:    opts.SequentialDecode,
		matcher:       captcha.Reference(),
		secondFactor:  opts.SecondFactor,
		log:           opts.Logger,
		sleep:         sleepContext,
	}
	if err := c.resetSession(); err != nil {
		return nil, err
	}
	return c, nil
}

// resetSession gives the client a fresh cookie jar. Sessions handed out
// earlier keep the jar they were created with.
func (c *Client) resetSession() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	hc := *c.hc
	hc.Jar = jar
	c.hc = &hc
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetcher issues requests relative to the portal base URL, sharing one
// cookie jar.
type fetcher struct {
	hc        *http.Client
	base      *url.URL
	userAgent string
}

// StatusError reports a non-2xx portal response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got status %d from %s", e.StatusCode, e.URL)
}

// resolve turns a portal-relative reference into an absolute URL.
func (f fetcher) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid portal reference %q: %w", ref, err)
	}
	return f.base.ResolveReference(u), nil
}

func (f fetcher) do(ctx context.Context, method, ref, referer string, body io.Reader, contentType string) ([]byte, error) {
	u, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if referer != "" {
		r, err := f.resolve(referer)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Referer", r.String())
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
		return nil, &StatusError{URL: u.String(), StatusCode: res.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", u.String(), err)
	}
	return data, nil
}

// getBytes GETs ref and returns the raw body.
func (f fetcher) getBytes(ctx context.Context, ref, referer string) ([]byte, error) {
	return f.do(ctx, http.MethodGet, ref, referer, nil, "")
}

// getDocument GETs ref and parses the body as HTML.
func (f fetcher) getDocument(ctx context.Context, ref, referer string) (*goquery.Document, error) {
	data, err := f.getBytes(ctx, ref, referer)
	if err != nil {
		return nil, err
	}
	return parseDocument(data)
}

// postForm POSTs form to ref and parses the response as HTML. Redirects are
// followed by the underlying client.
func (f fetcher) postForm(ctx context.Context, ref, referer string, form url.Values) (*goquery.Document, error) {
	data, err := f.do(ctx, http.MethodPost, ref, referer,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	return parseDocument(data)
}

func parseDocument(data []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
