package portal

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/konnectors/cozy-konnector-free-mobile/internal/captcha"
)

// scrambled shows 7 at position 0, 3 at position 1, and so on.
var scrambled = [captcha.KeypadSize]captcha.Digit{7, 3, 0, 9, 5, 1, 8, 2, 6, 4}

// renderDigit encodes a PNG keypad image drawing d in red on white.
func renderDigit(t *testing.T, d captcha.Digit, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if d.Valid() && w >= captcha.MinWidth && h >= captcha.MinHeight {
		p := captcha.References()[d]
		for i := 0; i < captcha.PatternBits; i++ {
			if p.Bit(i) {
				img.SetNRGBA(captcha.SampleWindow.X1+i/captcha.SampleRows, captcha.SampleWindow.Y1+i%captcha.SampleRows,
					color.NRGBA{R: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode keypad image: %v", err)
	}
	return buf.Bytes()
}

// fakePortal serves the login page, keypad images, login form and bill page.
type fakePortal struct {
	t *testing.T

	shown    [captcha.KeypadSize]captcha.Digit
	token    string
	login    string
	password string
	smsCode  string

	// Failure injection.
	audioStatus  int
	imageStatus  map[int]int
	imageBody    map[int][]byte
	imageDelay   map[int]time.Duration
	primeStatus  int
	loginPage    string
	keepLoginBox bool

	mu          sync.Mutex
	audio       []int
	images      []int
	primed      []int
	posts       []url.Values
	referers    []string
	homeCookies []string
	homeVisits  int
}

func newFakePortal(t *testing.T) *fakePortal {
	return &fakePortal{
		t:           t,
		shown:       scrambled,
		token:       "tok-123",
		login:       "0426",
		password:    "secret",
		imageStatus: map[int]int{},
		imageBody:   map[int][]byte{},
		imageDelay:  map[int]time.Duration{},
	}
}

func (f *fakePortal) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/moncompte/index.php", f.serveIndex)
	mux.HandleFunc("/moncompte/chiffre.php", f.serveChiffre)
	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func (f *fakePortal) layoutHTML() string {
	var sb strings.Builder
	sb.WriteString(`<html><body><form id="form_connect">`)
	fmt.Fprintf(&sb, `<input type="hidden" name="token" value="%s">`, f.token)
	// Emit the slots out of position order, as the portal does.
	for _, pos := range []int{3, 0, 9, 1, 4, 8, 2, 7, 5, 6} {
		fmt.Fprintf(&sb, `<img class="ident_chiffre_img pointer" src="chiffre.php?pos=%d" alt="position %d">`, pos, pos)
	}
	sb.WriteString(`</form></body></html>`)
	return sb.String()
}

// expectedLogin is the transcoded login the fake expects.
func (f *fakePortal) expectedLogin() string {
	var sb strings.Builder
	for _, r := range f.login {
		for pos, d := range f.shown {
			if d.String() == string(r) {
				sb.WriteString(strconv.Itoa(pos))
			}
		}
	}
	return sb.String()
}

func (f *fakePortal) serveIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("logout") == "user":
		w.Write([]byte(`<html><body>bye</body></html>`))
	case q.Get("page") == "suiviconso":
		w.Write([]byte(billPage))
	case q.Get("page") == "home" && r.Method == http.MethodGet:
		f.mu.Lock()
		f.homeVisits++
		f.homeCookies = append(f.homeCookies, r.Header.Get("Cookie"))
		visit := f.homeVisits
		f.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "s" + strconv.Itoa(visit), Path: "/"})
		w.Write([]byte(f.layoutHTML()))
	case q.Get("page") == "home" && r.Method == http.MethodPost:
		f.serveLogin(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakePortal) serveLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		f.t.Errorf("parse login form: %v", err)
	}
	f.mu.Lock()
	f.posts = append(f.posts, r.PostForm)
	f.referers = append(f.referers, r.Header.Get("Referer"))
	f.mu.Unlock()

	if f.loginPage != "" {
		w.Write([]byte(f.loginPage))
		return
	}
	if f.keepLoginBox {
		w.Write([]byte(f.layoutHTML()))
		return
	}

	if code := r.PostForm.Get("code_sms"); code != "" {
		if code != f.smsCode {
			w.Write([]byte(smsChallengePage))
			return
		}
		w.Write([]byte(welcomePage))
		return
	}

	if r.PostForm.Get("token") != f.token ||
		r.PostForm.Get("login_abo") != f.expectedLogin() ||
		r.PostForm.Get("pwd_abo") != f.password {
		w.Write([]byte(`<html><body><div class="alert-info">Identifiant ou mot de passe incorrect</div>` +
			f.layoutHTML() + `</body></html>`))
		return
	}
	if f.smsCode != "" {
		w.Write([]byte(smsChallengePage))
		return
	}
	w.Write([]byte(welcomePage))
}

func (f *fakePortal) serveChiffre(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pos, err := strconv.Atoi(q.Get("pos"))
	if err != nil || pos < 0 || pos >= captcha.KeypadSize {
		http.Error(w, "bad position", http.StatusBadRequest)
		return
	}

	switch {
	case q.Get("getsound") == "1":
		f.mu.Lock()
		f.audio = append(f.audio, pos)
		f.mu.Unlock()
		if r.Header.Get("Referer") == "" || !strings.HasSuffix(r.Header.Get("Referer"), refererSound) {
			f.t.Errorf("audio cue %d sent with referer %q", pos, r.Header.Get("Referer"))
		}
		if f.audioStatus != 0 {
			http.Error(w, "no sound", f.audioStatus)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3"))
	case q.Get("small") == "1":
		f.mu.Lock()
		f.primed = append(f.primed, pos)
		f.mu.Unlock()
		if f.primeStatus != 0 {
			http.Error(w, "no image", f.primeStatus)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(renderDigit(f.t, captcha.NoMatch, 12, 14))
	default:
		f.mu.Lock()
		f.images = append(f.images, pos)
		f.mu.Unlock()
		if d := f.imageDelay[pos]; d > 0 {
			time.Sleep(d)
		}
		if status := f.imageStatus[pos]; status != 0 {
			http.Error(w, "no image", status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if body, ok := f.imageBody[pos]; ok {
			w.Write(body)
			return
		}
		w.Write(renderDigit(f.t, f.shown[pos], 33, 33))
	}
}

func (f *fakePortal) snapshot() (audio, images, primed []int, posts []url.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.audio...), append([]int(nil), f.images...),
		append([]int(nil), f.primed...), append([]url.Values(nil), f.posts...)
}

const welcomePage = `<html><body>
<div class="idAbonne pointer">
    Jean
    Dupont - 0612345678
</div>
<div class="idAbonne pointer">Other</div>
</body></html>`

const smsChallengePage = `<html><body>
<form method="post"><input type="hidden" name="token" value=" tok-sms ">
<input type="text" name="code_sms"></form>
</body></html>`

const billPage = `<html><body>
<div class="infosConso">Forfait</div>
<div class="factLigne is-hidden" data-fact_id="9001" data-fact_login="12345678" data-fact_date="20240315" data-fact_multi="0">
  <span class="montant">15,99€</span>
  <div class="titulaire"><span class="numero">06 12 34 56 78</span>Jean Dupont</div>
</div>
</body></html>`

// testClient returns a client for srv that records priming delays instead of
// sleeping.
func testClient(t *testing.T, srv *httptest.Server, opts Options) (*Client, *[]time.Duration) {
	t.Helper()
	opts.BaseURL = srv.URL + "/moncompte/"
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	var mu sync.Mutex
	delays := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		*delays = append(*delays, d)
		mu.Unlock()
		return ctx.Err()
	}
	return c, delays
}
