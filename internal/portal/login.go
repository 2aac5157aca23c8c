package portal

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/bills"
	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

// State is a step of a login attempt.
type State string

const (
	StateFetchingLayout        State = "fetching_layout"
	StateDecodingDigits        State = "decoding_digits"
	StatePrimingKeypad         State = "priming_keypad"
	StateSubmittingCredentials State = "submitting_credentials"
	StateLoggedIn              State = "logged_in"
	StateLoginFailed           State = "login_failed"
	StateVendorUnreachable     State = "vendor_unreachable"
)

// Credentials are the subscriber's portal login and password.
type Credentials struct {
	Login    string
	Password string
}

// Validate checks the credentials before any request is made.
func (c Credentials) Validate() error {
	if err := captcha.ValidateLogin(c.Login); err != nil {
		return err
	}
	if c.Password == "" {
		return apperr.New(apperr.EmptyPassword, "password is empty")
	}
	return nil
}

// Session is an authenticated portal session.
type Session struct {
	fetcher

	ClientName string
	AttemptID  string

	log *slog.Logger
}

// Login runs one complete login attempt: fetch the keypad layout, decode it,
// transcode the login, prime the keypad and submit. Attempts on one client are
// serialised and each starts with an empty cookie jar; nothing is retried
// within an attempt.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	attemptID := uuid.NewString()
	log := c.log.With("attempt_id", attemptID)
	ctx = withLogger(ctx, log)

	if err := c.resetSession(); err != nil {
		return nil, err
	}

	state := StateFetchingLayout
	fail := func(err error) (*Session, error) {
		final := StateLoginFailed
		if apperr.CodeOf(err) == apperr.VendorUnreachable {
			final = StateVendorUnreachable
		}
		log.Warn("login attempt failed", "state", state, "outcome", final,
			"code", apperr.CodeOf(err).String(), "error", err)
		return nil, err
	}

	log.Info("login attempt started", "state", state)
	layout, err := c.FetchLayout(ctx)
	if err != nil {
		return fail(err)
	}

	state = StateDecodingDigits
	log.Debug("login state", "state", state)
	table, err := c.DecodeKeypad(ctx, layout)
	if err != nil {
		return fail(err)
	}
	seq, err := table.Transcode(creds.Login)
	if err != nil {
		return fail(err)
	}

	state = StatePrimingKeypad
	log.Debug("login state", "state", state)
	if err := c.PrimeKeypad(ctx, seq); err != nil {
		return fail(err)
	}

	state = StateSubmittingCredentials
	log.Debug("login state", "state", state)
	name, err := c.Submit(ctx, layout.Token, seq, creds.Password)
	if err != nil {
		return fail(err)
	}

	log.Info("login attempt succeeded", "state", StateLoggedIn, "client", name)
	return &Session{
		fetcher:    c.fetcher,
		ClientName: name,
		AttemptID:  attemptID,
		log:        log,
	}, nil
}

// Bills fetches and parses the bill listing.
func (s *Session) Bills(ctx context.Context) ([]bills.Bill, error) {
	data, err := s.getBytes(ctx, pathBills, pathHome)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.PortalUnreachable, "fetch bill page")
	}
	list, err := bills.Parse(bytes.NewReader(data), s.base)
	if err != nil {
		return nil, err
	}
	s.log.Info("bills fetched", "count", len(list))
	return list, nil
}

// Logout ends the portal session.
func (s *Session) Logout(ctx context.Context) error {
	if _, err := s.getBytes(ctx, pathLogout, pathBills); err != nil {
		return apperr.Wrap(err, apperr.PortalUnreachable, "log out")
	}
	s.log.Debug("logged out")
	return nil
}

type loggerKey struct{}

func withLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// logger returns the attempt logger carried by ctx, or the client logger.
func (c *Client) logger(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return log
	}
	return c.log
}
