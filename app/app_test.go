package app

import (
	"bytes"
	"cafes/config"
	"cafes/utils"
	"context"
	"github.com/gin-gonic/gin"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:             "0",
		DatabaseDriver:   "sqlite",
		DatabaseDSN:      filepath.Join(t.TempDir(), "cafes.db"),
		DatabaseLogLevel: "silent",
		SecretKey:        "test-secret",
		CSRFEnabled:      true,
		CSRFTTL:          time.Hour,
		CurrencySymbol:   "€",
		ShutdownTimeout:  time.Second,
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func do(a *App, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	return w
}

var tokenRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// session is the state a browser keeps between requests: the form token and
// the cookie it is bound to.
type session struct {
	token  string
	cookie *http.Cookie
}

func (s session) attach(req *http.Request) {
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
}

func openForm(t *testing.T, a *App, path string) session {
	t.Helper()
	w := do(a, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, w.Code)
	}
	m := tokenRe.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatalf("GET %s: no csrf token in form", path)
	}
	s := session{token: m[1]}
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.CSRFCookie {
			s.cookie = c
		}
	}
	if s.cookie == nil {
		t.Fatalf("GET %s: no %s cookie set", path, utils.CSRFCookie)
	}
	return s
}

func postWith(a *App, s session, path string, values url.Values) *httptest.ResponseRecorder {
	if values.Get("csrf_token") == "" {
		values.Set("csrf_token", s.token)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.attach(req)
	return do(a, req)
}

func postForm(t *testing.T, a *App, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	return postWith(a, openForm(t, a, path), path, values)
}

func blueBottle() url.Values {
	return url.Values{
		"name":         {"Blue Bottle"},
		"map_url":      {"https://maps.example/x"},
		"img_url":      {"https://img.example/y"},
		"location":     {"Berlin"},
		"seats":        {"10-15"},
		"coffee_price": {"3.50"},
	}
}

func listPage(t *testing.T, a *App) string {
	t.Helper()
	w := do(a, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /: expected 200, got %d", w.Code)
	}
	return w.Body.String()
}

func countCafes(t *testing.T, a *App) int {
	return strings.Count(listPage(t, a), `class="cafe"`)
}

func TestListEmpty(t *testing.T) {
	a := newTestApp(t)
	body := listPage(t, a)
	if !strings.Contains(body, "No cafes yet") {
		t.Errorf("expected empty state, got %s", body)
	}
}

func TestAddCafe(t *testing.T) {
	a := newTestApp(t)

	w := postForm(t, a, "/add", blueBottle())
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}

	body := listPage(t, a)
	if strings.Count(body, `class="cafe"`) != 1 {
		t.Fatalf("expected exactly one cafe, got %s", body)
	}
	if !strings.Contains(body, `<td class="name">Blue Bottle</td>`) {
		t.Error("expected Blue Bottle in list")
	}
	if !strings.Contains(body, `<td class="price">€3.50</td>`) {
		t.Error("expected coffee price €3.50 in list")
	}
}

func TestAddCafeCheckboxes(t *testing.T) {
	a := newTestApp(t)

	values := blueBottle()
	values.Set("has_wifi", "true")
	values.Set("has_sockets", "on")
	if w := postForm(t, a, "/add", values); w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	body := listPage(t, a)
	if strings.Count(body, "✔") != 2 || strings.Count(body, "✘") != 2 {
		t.Errorf("expected two amenities set, got %s", body)
	}
}

func TestAddCafeMissingField(t *testing.T) {
	a := newTestApp(t)

	values := blueBottle()
	values.Del("location")
	w := postForm(t, a, "/add", values)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "This field is required.") {
		t.Error("expected required-field error")
	}
	if !strings.Contains(body, `value="Blue Bottle"`) {
		t.Error("expected submitted values to be kept")
	}
	if n := countCafes(t, a); n != 0 {
		t.Errorf("store changed: %d cafes", n)
	}
}

func TestAddCafeMalformedURL(t *testing.T) {
	a := newTestApp(t)

	values := blueBottle()
	values.Set("map_url", "not-a-url")
	w := postForm(t, a, "/add", values)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid URL.") {
		t.Error("expected URL error")
	}
	if n := countCafes(t, a); n != 0 {
		t.Errorf("store changed: %d cafes", n)
	}
}

func TestAddCafeNonHTTPURL(t *testing.T) {
	a := newTestApp(t)

	for _, bad := range []string{"javascript:alert(1)", "mailto:x@y", "foo:bar"} {
		values := blueBottle()
		values.Set("map_url", bad)
		w := postForm(t, a, "/add", values)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Invalid URL.") {
			t.Errorf("%q: expected form error, got %d", bad, w.Code)
		}
	}
	if n := countCafes(t, a); n != 0 {
		t.Errorf("store changed: %d cafes", n)
	}
}

func TestAddCafePriceWithSymbol(t *testing.T) {
	a := newTestApp(t)

	values := blueBottle()
	values.Set("coffee_price", "€3.50")
	if w := postForm(t, a, "/add", values); w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	body := listPage(t, a)
	if !strings.Contains(body, `<td class="price">€3.50</td>`) || strings.Contains(body, "€€") {
		t.Errorf("expected a single currency symbol, got %s", body)
	}

	values = blueBottle()
	values.Set("name", "Bonanza")
	values.Set("coffee_price", "€")
	w := postForm(t, a, "/add", values)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "This field is required.") {
		t.Fatalf("expected bare symbol to be rejected, got %d", w.Code)
	}
}

func TestAddCafeDuplicateName(t *testing.T) {
	a := newTestApp(t)

	if w := postForm(t, a, "/add", blueBottle()); w.Code != http.StatusFound {
		t.Fatalf("first add: expected 302, got %d", w.Code)
	}
	w := postForm(t, a, "/add", blueBottle())
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate add: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "A cafe with this name already exists.") {
		t.Error("expected duplicate-name error on the form")
	}
	if n := countCafes(t, a); n != 1 {
		t.Errorf("expected one cafe, got %d", n)
	}
}

func TestAddCafeCSRF(t *testing.T) {
	a := newTestApp(t)
	victim := openForm(t, a, "/add")
	attacker := openForm(t, a, "/delete")

	cases := map[string]struct {
		token  string
		cookie *http.Cookie
	}{
		"missing":           {"", victim.cookie},
		"forged":            {"eyJhbGciOiJIUzI1NiJ9.e30.forged", victim.cookie},
		"no cookie":         {victim.token, nil},
		"other client":      {attacker.token, victim.cookie},
		"other client only": {attacker.token, nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			values := blueBottle()
			values.Set("csrf_token", tc.token)
			req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(values.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tc.cookie != nil {
				req.AddCookie(tc.cookie)
			}
			w := do(a, req)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), "The CSRF token") {
				t.Error("expected CSRF error on the form")
			}
			if n := countCafes(t, a); n != 0 {
				t.Errorf("store changed: %d cafes", n)
			}
		})
	}
}

func TestCSRFCookieAttributes(t *testing.T) {
	a := newTestApp(t)
	s := openForm(t, a, "/add")
	if !s.cookie.HttpOnly || s.cookie.SameSite != http.SameSiteLaxMode || s.cookie.Path != "/" {
		t.Errorf("unexpected cookie attributes %+v", s.cookie)
	}

	// A returning client keeps its id.
	req := httptest.NewRequest(http.MethodGet, "/delete", nil)
	s.attach(req)
	w := do(a, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.CSRFCookie {
			t.Errorf("cookie reissued for a client that already has one")
		}
	}
}

func TestTokenWorksAcrossFormsOfSameClient(t *testing.T) {
	a := newTestApp(t)
	s := openForm(t, a, "/delete")
	if w := postWith(a, s, "/add", blueBottle()); w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
}

func TestAddCafeCSRFDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.CSRFEnabled = false
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(blueBottle().Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := do(a, req); w.Code != http.StatusFound {
		t.Fatalf("expected 302 without a token, got %d", w.Code)
	}
}

func TestDeleteCafe(t *testing.T) {
	a := newTestApp(t)

	postForm(t, a, "/add", blueBottle())
	other := blueBottle()
	other.Set("name", "Bonanza")
	postForm(t, a, "/add", other)

	w := postForm(t, a, "/delete", url.Values{"name": {"Blue Bottle"}})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("expected 302 to /, got %d %q", w.Code, w.Header().Get("Location"))
	}

	body := listPage(t, a)
	if strings.Contains(body, "Blue Bottle") {
		t.Error("deleted cafe still listed")
	}
	if !strings.Contains(body, "Bonanza") {
		t.Error("other cafe should remain")
	}
}

func TestDeleteCafeNoMatch(t *testing.T) {
	a := newTestApp(t)
	postForm(t, a, "/add", blueBottle())

	w := postForm(t, a, "/delete", url.Values{"name": {"Nowhere"}})
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("expected 302 to /, got %d", w.Code)
	}
	if n := countCafes(t, a); n != 1 {
		t.Errorf("store changed: %d cafes", n)
	}
}

func TestDeleteCafeEmptyName(t *testing.T) {
	a := newTestApp(t)
	postForm(t, a, "/add", blueBottle())

	w := postForm(t, a, "/delete", url.Values{"name": {""}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "This field is required.") {
		t.Error("expected required-field error")
	}
	if n := countCafes(t, a); n != 1 {
		t.Errorf("store changed: %d cafes", n)
	}
}

func TestFormPages(t *testing.T) {
	a := newTestApp(t)
	for path, want := range map[string]string{
		"/add":    "Cafe location on Google Maps (URL)",
		"/delete": "Delete a cafe",
		"/import": "Import cafes",
	} {
		w := do(a, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("GET %s: expected %q", path, want)
		}
		if !tokenRe.MatchString(w.Body.String()) {
			t.Errorf("GET %s: expected csrf token", path)
		}
	}
}

func uploadWorkbook(t *testing.T, a *App, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	s := openForm(t, a, "/import")
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("csrf_token", s.token)
	fw, err := mw.CreateFormFile("file", "cafes.xlsx")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.attach(req)
	return do(a, req)
}

func TestExportThenImport(t *testing.T) {
	src := newTestApp(t)
	postForm(t, src, "/add", blueBottle())
	other := blueBottle()
	other.Set("name", "Bonanza")
	other.Set("has_wifi", "true")
	postForm(t, src, "/add", other)

	w := do(src, httptest.NewRequest(http.MethodGet, "/export", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "cafes.xlsx") {
		t.Errorf("unexpected Content-Disposition %q", w.Header().Get("Content-Disposition"))
	}
	workbook := w.Body.Bytes()

	dst := newTestApp(t)
	postForm(t, dst, "/add", blueBottle())

	w = uploadWorkbook(t, dst, workbook)
	if w.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Imported 1 cafe(s).") {
		t.Errorf("expected one imported row, got %s", body)
	}
	if !strings.Contains(body, "Row 2: A cafe with this name already exists.") {
		t.Errorf("expected duplicate row to be reported, got %s", body)
	}

	list := listPage(t, dst)
	if strings.Count(list, `class="cafe"`) != 2 {
		t.Errorf("expected two cafes after import")
	}
	if strings.Contains(list, "€€") {
		t.Error("currency symbol applied twice")
	}
}

func TestImportWithoutFile(t *testing.T) {
	a := newTestApp(t)

	s := openForm(t, a, "/import")
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("csrf_token", s.token)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.attach(req)

	w := do(a, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Excel file is required.") {
		t.Error("expected missing-file error")
	}
}

func TestImportNotASpreadsheet(t *testing.T) {
	a := newTestApp(t)
	w := uploadWorkbook(t, a, []byte("name,location\nBlue Bottle,Berlin\n"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Failed to read spreadsheet") {
		t.Error("expected parse error on the form")
	}
	if n := countCafes(t, a); n != 0 {
		t.Errorf("store changed: %d cafes", n)
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	w := do(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.SecretKey = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
