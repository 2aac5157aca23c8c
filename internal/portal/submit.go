package portal

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

const (
	selectorAlert       = ".alert-info"
	selectorLoginForm   = "#form_connect"
	selectorSMSCode     = "input[name=code_sms]"
	selectorClientName  = `div[class="idAbonne pointer"]`
	wrongPasswordNotice = "mot de passe incorrect"
)

var (
	runsOfSpace    = regexp.MustCompile(`\s\s+`)
	trailingNumber = regexp.MustCompile(` - [0-9]{10}`)
)

// SecondFactor supplies the one-time code the portal sends by SMS when it
// does not recognise the client.
type SecondFactor interface {
	Code(ctx context.Context) (string, error)
}

// SecondFactorFunc adapts a function to SecondFactor.
type SecondFactorFunc func(ctx context.Context) (string, error)

// Code calls f.
func (f SecondFactorFunc) Code(ctx context.Context) (string, error) { return f(ctx) }

// Submit posts the transcoded login and the password, and returns the client
// name shown once logged in.
func (c *Client) Submit(ctx context.Context, token string, seq captcha.ClickSequence, password string) (string, error) {
	form := url.Values{
		formToken:    {token},
		formLogin:    {seq.String()},
		formPassword: {password},
	}
	doc, err := c.postForm(ctx, pathHome, pathHome, form)
	if err != nil {
		return "", apperr.Wrap(err, apperr.VendorUnreachable, "post login form")
	}
	return c.loginOutcome(ctx, token, doc, true)
}

// loginOutcome classifies the page returned after a login or second factor
// post.
func (c *Client) loginOutcome(ctx context.Context, token string, doc *goquery.Document, allowSecondFactor bool) (string, error) {
	if msg := doc.Find(selectorAlert).Text(); strings.Contains(msg, wrongPasswordNotice) {
		return "", apperr.New(apperr.CredentialsRejected, "portal rejected the credentials").
			WithMetadata("notice", strings.TrimSpace(msg))
	}

	if doc.Find(selectorSMSCode).Length() > 0 {
		if !allowSecondFactor {
			return "", apperr.New(apperr.CredentialsRejected, "portal rejected the second factor code")
		}
		return c.submitSecondFactor(ctx, token, doc)
	}

	if doc.Find(selectorLoginForm).Length() > 0 {
		return "", apperr.New(apperr.VendorUnreachable, "login form still shown after submission")
	}

	return clientName(doc), nil
}

func (c *Client) submitSecondFactor(ctx context.Context, token string, doc *goquery.Document) (string, error) {
	if c.secondFactor == nil {
		return "", apperr.New(apperr.SecondFactorRequired, "portal asked for an SMS code")
	}
	c.logger(ctx).Info("portal asked for an SMS code")

	code, err := c.secondFactor.Code(ctx)
	if err != nil {
		return "", apperr.Wrap(err, apperr.SecondFactorRequired, "read SMS code")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", apperr.New(apperr.SecondFactorRequired, "empty SMS code")
	}

	// The challenge page may carry a fresh form token.
	if t, ok := doc.Find(selectorToken).First().Attr("value"); ok && strings.TrimSpace(t) != "" {
		token = t
	}

	next, err := c.postForm(ctx, pathHome, pathHome, url.Values{
		formToken:   {token},
		formSMSCode: {code},
	})
	if err != nil {
		return "", apperr.Wrap(err, apperr.VendorUnreachable, "post SMS code")
	}
	return c.loginOutcome(ctx, token, next, false)
}

// clientName extracts the subscriber name, dropping the phone number shown
// next to it.
func clientName(doc *goquery.Document) string {
	name := doc.Find(selectorClientName).First().Text()
	name = runsOfSpace.ReplaceAllString(name, " ")
	name = trailingNumber.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
