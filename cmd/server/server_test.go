package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmoned/internal/platform/config"
	"wmoned/pkg/testutil"
)

const registryResponse = `{"_embedded":{"aanvraag":[{
	"datumAanvraag":"2022-03-01",
	"regeling":{"identificatie":"wmo"},
	"beschikking":{"datumAfgifte":"2022-03-10","beschikteProducten":[{
		"resultaat":"toegewezen",
		"product":{"omschrijving":"Rolstoel","productsoortCode":"rol"},
		"toegewezenProduct":{"datumIngangGeldigheid":"2022-04-01","actueel":true,"leveringsvorm":"ZIN","leverancier":{"omschrijving":"Welzorg"}}
	}]},
	"documenten":[{"documentidentificatie":"doc-1","omschrijving":"Besluit","datumDefinitiefGemaakt":"2022-03-10"}]
}]}}`

var hmacSecret = []byte("server-test-secret")

func fakeRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Token") != "registry-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/aanvragen"):
			_, _ = w.Write([]byte(registryResponse))
		case r.Method == http.MethodPost && r.URL.Path == "/document":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["documentidentificatie"] != "doc-1" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"mimetype":     "application/pdf",
				"bestandsnaam": "besluit.pdf",
				"inhoud":       base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func bearer(t *testing.T, bsn, jti string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"bsn": bsn,
		"jti": jti,
		"exp": time.Now().Add(10 * time.Minute).Unix(),
	}).SignedString(hmacSecret)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Status  string `json:"status"`
	Content []struct {
		Title     string `json:"title"`
		Documents []struct {
			URL string `json:"url"`
		} `json:"documents"`
	} `json:"content"`
}

// The metrics register on the default registry, so the application is built
// once for the whole test.
func TestServer(t *testing.T) {
	registrySrv := fakeRegistry(t)
	cfg := config.Config{
		Registry: config.Registry{
			BaseURL:          registrySrv.URL,
			Token:            "registry-token",
			MunicipalityCode: "0363",
			Timeout:          2 * time.Second,
			MaxEndDate:       "2018-01-01",
			Regulation:       "wmo",
		},
		Assertion: config.Assertion{HMACSecret: hmacSecret, VerifySignature: true},
		Documents: config.Documents{
			Enabled:       true,
			EncryptionKey: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))),
		},
		Audit: config.Audit{Store: config.AuditStoreMemory},
	}

	app, err := build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(app.close)
	router := app.router

	t.Run("health", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/status/health"))
		testutil.AssertStatusOK(t, rr)
		assert.JSONEq(t, `"OK"`, rr.Body.String())
	})

	t.Run("metrics", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
		testutil.AssertStatusOK(t, rr)
		assert.Contains(t, rr.Body.String(), "wmoned_http_requests_in_flight")
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/nope"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "Not found")
	})

	t.Run("provisions require an assertion", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/wmoned/voorzieningen"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	var documentURL string
	t.Run("provisions and document download", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/wmoned/voorzieningen"), bearer(t, "111222333", "session-1"))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

		body := testutil.UnmarshalResponse[envelope](t, rr)
		assert.Equal(t, "OK", body.Status)
		require.Len(t, body.Content, 1)
		assert.Equal(t, "Rolstoel", body.Content[0].Title)
		require.Len(t, body.Content[0].Documents, 1)
		documentURL = body.Content[0].Documents[0].URL
		assert.True(t, strings.HasPrefix(documentURL, "/wmoned/document/"))
		assert.NotContains(t, documentURL, "doc-1")

		req = testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, documentURL), bearer(t, "111222333", "session-1"))
		rr = testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=besluit.pdf`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.4", rr.Body.String())
	})

	t.Run("tampered document id", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/wmoned/document/AAAA"), bearer(t, "111222333", "session-1"))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "Not found")
	})

	t.Run("logout revokes the assertion", func(t *testing.T) {
		token := bearer(t, "123456782", "session-2")
		req := testutil.WithBearer(testutil.NewRequest(t, http.MethodPost, "/wmoned/logout"), token)
		testutil.AssertStatusOK(t, testutil.DoRequest(router, req))

		req = testutil.WithBearer(testutil.NewRequest(t, http.MethodGet, "/wmoned/voorzieningen"), token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "Assertion has been revoked")
	})
}
