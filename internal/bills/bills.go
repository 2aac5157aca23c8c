// Package bills parses the portal's bill listing page.
package bills

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

// Listing constants.
const (
	Vendor = "Free Mobile"
	Type   = "phone"

	// MultilineContract is the phone number and contract id given to the
	// summary bill of a multi-line account.
	MultilineContract = "multilignes"

	dateLayout     = "20060102"
	filenameLayout = "200601"
	downloadPath   = "index.php?page=suiviconso&action=getFacture&format=dl"

	selectorRow     = "div.factLigne.is-hidden"
	selectorAmount  = ".montant"
	selectorHolder  = "div.titulaire"
	selectorNumber  = "span.numero"
	selectorAccount = "div.infosConso"
)

// Bill is one downloadable invoice.
type Bill struct {
	Amount            float64   `json:"amount"`
	Date              time.Time `json:"date"`
	Vendor            string    `json:"vendor"`
	Type              string    `json:"type"`
	PhoneNumber       string    `json:"phone_number"`
	Holder            string    `json:"holder"`
	ContractID        string    `json:"contract_id"`
	ContractLabel     string    `json:"contract_label"`
	InvoiceNumber     string    `json:"invoice_number"`
	ContractReference string    `json:"contract_reference"`
	FileURL           string    `json:"file_url"`
	Filename          string    `json:"filename"`
	Multiline         bool      `json:"multiline"`
}

// AccountLabel is the label of the folder bills are filed under.
func AccountLabel(clientName, login string) string {
	return fmt.Sprintf("%s (%s)", clientName, login)
}

// Parse extracts every bill from the listing page. File URLs are resolved
// against base.
func Parse(r io.Reader, base *url.URL) ([]Bill, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.BillParseError, "parse bill page")
	}

	multiline := doc.Find(selectorAccount).Length() > 1

	var bills []Bill
	var parseErr error
	doc.Find(selectorRow).EachWithBreak(func(i int, row *goquery.Selection) bool {
		b, err := parseRow(row, base, multiline)
		if err != nil {
			parseErr = err.WithMetadata("row", strconv.Itoa(i))
			return false
		}
		bills = append(bills, b)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return bills, nil
}

func parseRow(row *goquery.Selection, base *url.URL, multiline bool) (Bill, *apperr.AppError) {
	amount, err := ParseAmount(row.Find(selectorAmount).First().Text())
	if err != nil {
		return Bill{}, apperr.Wrap(err, apperr.BillParseError, "invalid bill amount")
	}

	id := row.AttrOr("data-fact_id", "")
	login := row.AttrOr("data-fact_login", "")
	rawDate := row.AttrOr("data-fact_date", "")
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return Bill{}, apperr.Wrapf(err, apperr.BillParseError, "invalid bill date %q", rawDate)
	}
	multi := 0
	if raw := strings.TrimSpace(row.AttrOr("data-fact_multi", "")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bill{}, apperr.Wrapf(err, apperr.BillParseError, "invalid multi-line flag %q", raw)
		}
		multi = int(f)
	}

	holder := row.Find(selectorHolder)
	number := holder.ChildrenFiltered(selectorNumber)
	phone := strings.ReplaceAll(number.Text(), " ", "")
	number.Remove()
	name := strings.TrimSpace(strings.NewReplacer("\n", "", "\r", "").Replace(holder.Text()))

	fileURL, err := downloadURL(base, login, id, rawDate, multi)
	if err != nil {
		return Bill{}, apperr.Wrap(err, apperr.BillParseError, "invalid bill download URL")
	}

	b := Bill{
		Amount:            amount,
		Date:              date,
		Vendor:            Vendor,
		Type:              Type,
		PhoneNumber:       phone,
		Holder:            name,
		InvoiceNumber:     id,
		ContractReference: login,
		FileURL:           fileURL,
		Filename:          fmt.Sprintf("%s_freemobile_%.2f€.pdf", date.Format(filenameLayout), amount),
		Multiline:         multiline,
	}
	if multiline && multi == 1 {
		b.PhoneNumber = MultilineContract
		b.ContractID = MultilineContract
		b.ContractLabel = fmt.Sprintf("Récapitulatifs Multilignes (%s)", name)
	} else {
		b.ContractID = phone
		b.ContractLabel = fmt.Sprintf("%s (%s)", phone, name)
	}
	return b, nil
}

// ParseAmount reads an amount such as "15,99€" or "2.00 €".
func ParseAmount(s string) (float64, error) {
	s = strings.NewReplacer("€", "", " ", "", "\u00a0", "", ",", ".").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(s, 64)
}

func downloadURL(base *url.URL, login, id, date string, multi int) (string, error) {
	ref := fmt.Sprintf("%s&l=%s&id=%s&date=%s&multi=%d", downloadPath,
		url.QueryEscape(login), url.QueryEscape(id), url.QueryEscape(date), multi)
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if base == nil {
		return u.String(), nil
	}
	return base.ResolveReference(u).String(), nil
}
