package bills

import (
	"net/url"
	"strings"
	"testing"
	"time"

	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

const singleLinePage = `<html><body>
<div class="infosConso">Forfait 2€</div>
<div class="factLigne is-hidden" data-fact_id="9001" data-fact_login="12345678" data-fact_date="20240315" data-fact_multi="0">
  <span class="montant">15,99€</span>
  <div class="titulaire"><span class="numero">06 12 34 56 78</span>
    Jean Dupont
  </div>
</div>
<div class="factLigne is-hidden" data-fact_id="9002" data-fact_login="12345678" data-fact_date="20240215" data-fact_multi="0">
  <span class="montant">2.00 €</span>
  <div class="titulaire"><span class="numero">06 12 34 56 78</span>Jean Dupont</div>
</div>
<div class="factLigne" data-fact_id="visible" data-fact_date="20240101"></div>
</body></html>`

const multiLinePage = `<html><body>
<div class="infosConso">Ligne 1</div>
<div class="infosConso">Ligne 2</div>
<div class="factLigne is-hidden" data-fact_id="77" data-fact_login="87654321" data-fact_date="20231130" data-fact_multi="1">
  <span class="montant">31.98€</span>
  <div class="titulaire"><span class="numero"></span>Marie Martin</div>
</div>
<div class="factLigne is-hidden" data-fact_id="78" data-fact_login="87654321" data-fact_date="20231130" data-fact_multi="0">
  <span class="montant">19.99€</span>
  <div class="titulaire"><span class="numero">07 00 00 00 01</span>Marie Martin</div>
</div>
</body></html>`

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return u
}

func TestParse_SingleLine(t *testing.T) {
	base := mustURL(t, "https://mobile.free.fr/moncompte/")
	bills, err := Parse(strings.NewReader(singleLinePage), base)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(bills))
	}

	b := bills[0]
	if b.Amount != 15.99 {
		t.Errorf("Amount = %v, want 15.99", b.Amount)
	}
	if !b.Date.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", b.Date)
	}
	if b.Vendor != Vendor || b.Type != Type {
		t.Errorf("Vendor/Type = %q/%q", b.Vendor, b.Type)
	}
	if b.PhoneNumber != "0612345678" {
		t.Errorf("PhoneNumber = %q", b.PhoneNumber)
	}
	if b.Holder != "Jean Dupont" {
		t.Errorf("Holder = %q", b.Holder)
	}
	if b.ContractID != "0612345678" || b.ContractLabel != "0612345678 (Jean Dupont)" {
		t.Errorf("contract = %q / %q", b.ContractID, b.ContractLabel)
	}
	if b.InvoiceNumber != "9001" || b.ContractReference != "12345678" {
		t.Errorf("invoice = %q / %q", b.InvoiceNumber, b.ContractReference)
	}
	wantURL := "https://mobile.free.fr/moncompte/index.php?page=suiviconso&action=getFacture&format=dl&l=12345678&id=9001&date=20240315&multi=0"
	if b.FileURL != wantURL {
		t.Errorf("FileURL = %q, want %q", b.FileURL, wantURL)
	}
	if b.Filename != "202403_freemobile_15.99€.pdf" {
		t.Errorf("Filename = %q", b.Filename)
	}
	if b.Multiline {
		t.Error("single line account reported as multi-line")
	}

	if bills[1].Filename != "202402_freemobile_2.00€.pdf" {
		t.Errorf("second Filename = %q", bills[1].Filename)
	}
}

func TestParse_MultiLine(t *testing.T) {
	bills, err := Parse(strings.NewReader(multiLinePage), mustURL(t, "https://example.test/moncompte/"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(bills))
	}

	summary := bills[0]
	if !summary.Multiline {
		t.Error("expected multi-line account")
	}
	if summary.PhoneNumber != MultilineContract || summary.ContractID != MultilineContract {
		t.Errorf("summary contract = %q / %q", summary.PhoneNumber, summary.ContractID)
	}
	if summary.ContractLabel != "Récapitulatifs Multilignes (Marie Martin)" {
		t.Errorf("summary label = %q", summary.ContractLabel)
	}
	if !strings.HasSuffix(summary.FileURL, "&multi=1") {
		t.Errorf("summary FileURL = %q", summary.FileURL)
	}

	line := bills[1]
	if line.ContractID != "0700000001" || line.ContractLabel != "0700000001 (Marie Martin)" {
		t.Errorf("line contract = %q / %q", line.ContractID, line.ContractLabel)
	}
}

func TestParse_Empty(t *testing.T) {
	bills, err := Parse(strings.NewReader("<html><body></body></html>"), nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(bills) != 0 {
		t.Errorf("expected no bills, got %d", len(bills))
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		row  string
	}{
		{
			name: "bad amount",
			row:  `<div class="factLigne is-hidden" data-fact_date="20240101"><span class="montant">n/a</span></div>`,
		},
		{
			name: "missing amount",
			row:  `<div class="factLigne is-hidden" data-fact_date="20240101"></div>`,
		},
		{
			name: "bad date",
			row:  `<div class="factLigne is-hidden" data-fact_date="2024-01-01"><span class="montant">1€</span></div>`,
		},
		{
			name: "bad multi flag",
			row:  `<div class="factLigne is-hidden" data-fact_date="20240101" data-fact_multi="yes"><span class="montant">1€</span></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader("<html><body>"+tt.row+"</body></html>"), nil)
			if !apperr.IsCode(err, apperr.BillParseError) {
				t.Errorf("expected BillParseError, got %v", err)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"15,99€", 15.99},
		{"2.00 €", 2},
		{" 0€ ", 0},
		{"1 234,50€", 1234.5},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAccountLabel(t *testing.T) {
	if got := AccountLabel("Jean Dupont", "12345678"); got != "Jean Dupont (12345678)" {
		t.Errorf("AccountLabel = %q", got)
	}
}
