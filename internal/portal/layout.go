package portal

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

const (
	selectorToken  = "input[name=token]"
	selectorKeypad = `img[class="ident_chiffre_img pointer"]`
	positionPrefix = "position "
)

// Slot is one keypad image: its position and where to download it.
type Slot struct {
	Position int    `json:"position"`
	ImageRef string `json:"image_ref"`
}

// Layout is the login page state needed for one attempt.
type Layout struct {
	Token string
	// Slots is indexed by position.
	Slots [captcha.KeypadSize]Slot
}

// FetchLayout loads the login page and parses its keypad layout.
func (c *Client) FetchLayout(ctx context.Context) (*Layout, error) {
	doc, err := c.getDocument(ctx, pathHome, "")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.PortalUnreachable, "fetch login page")
	}
	return layoutFromDocument(doc)
}

// ParseLayout parses the login page HTML.
func ParseLayout(r io.Reader) (*Layout, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.LayoutParseError, "parse login page")
	}
	return layoutFromDocument(doc)
}

func layoutFromDocument(doc *goquery.Document) (*Layout, error) {
	layout := &Layout{}

	layout.Token, _ = doc.Find(selectorToken).First().Attr("value")
	if strings.TrimSpace(layout.Token) == "" {
		return nil, apperr.New(apperr.LayoutParseError, "login page has no form token")
	}

	imgs := doc.Find(selectorKeypad)
	if imgs.Length() != captcha.KeypadSize {
		return nil, apperr.Newf(apperr.LayoutParseError, "login page has %d keypad images, want %d",
			imgs.Length(), captcha.KeypadSize)
	}

	var seen [captcha.KeypadSize]bool
	var parseErr error
	imgs.EachWithBreak(func(i int, img *goquery.Selection) bool {
		alt, _ := img.Attr("alt")
		src, _ := img.Attr("src")

		pos, err := parsePosition(alt)
		if err != nil {
			parseErr = err.WithMetadata("index", strconv.Itoa(i))
			return false
		}
		if seen[pos] {
			parseErr = apperr.Newf(apperr.LayoutParseError, "keypad position %d appears twice", pos)
			return false
		}
		if src == "" {
			parseErr = apperr.Newf(apperr.LayoutParseError, "keypad position %d has no image", pos)
			return false
		}
		seen[pos] = true
		layout.Slots[pos] = Slot{Position: pos, ImageRef: src}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return layout, nil
}

func parsePosition(alt string) (int, *apperr.AppError) {
	if !strings.HasPrefix(alt, positionPrefix) {
		return 0, apperr.Newf(apperr.LayoutParseError, "keypad label %q lacks the %q prefix", alt, positionPrefix)
	}
	pos, err := strconv.Atoi(strings.TrimPrefix(alt, positionPrefix))
	if err != nil {
		return 0, apperr.Wrapf(err, apperr.LayoutParseError, "keypad label %q is not a position", alt)
	}
	if pos < 0 || pos >= captcha.KeypadSize {
		return 0, apperr.Newf(apperr.LayoutParseError, "keypad position %d out of range", pos)
	}
	return pos, nil
}
