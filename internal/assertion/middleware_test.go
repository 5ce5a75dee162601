package assertion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	audit "wmoned/pkg/platform/audit"
	"wmoned/pkg/requestcontext"
	"wmoned/pkg/testutil"
)

var testSecret = []byte("middleware-test-secret")

type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Emit(_ context.Context, event audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type failingRevocations struct{}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

type MiddlewareSuite struct {
	suite.Suite
	verifier    *Verifier
	revocations *MemoryRevocationList
	auditor     *recordingAuditor
	router      chi.Router
	seenBSN     string
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	var err error
	s.verifier, err = NewVerifier(Config{HMACSecret: testSecret, VerifySignature: true}, WithClock(fixedClock))
	s.Require().NoError(err)
	s.revocations = NewMemoryRevocationList()
	s.revocations.now = fixedClock
	s.auditor = &recordingAuditor{}
	s.seenBSN = ""

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := NewMiddleware(s.verifier, s.revocations, s.auditor, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), fixedNow)))
		})
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
			s.seenBSN = requestcontext.BSN(r.Context()).String()
			w.WriteHeader(http.StatusNoContent)
		})
		NewHandler(s.revocations, logger).Register(r)
	})
	s.router = r
}

func (s *MiddlewareSuite) token(claims jwt.MapClaims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	s.Require().NoError(err)
	return token
}

func (s *MiddlewareSuite) TestValidAssertion() {
	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/protected"), s.token(claimsFor(validBSN)))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	s.Equal(validBSN, s.seenBSN)
	s.Empty(s.auditor.actions())
}

func (s *MiddlewareSuite) TestRejections() {
	expired := claimsFor(validBSN)
	expired["exp"] = fixedNow.Add(-time.Minute).Unix()

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing or invalid Authorization header"},
		{"not a bearer", "Basic dXNlcjpwYXNz", "Missing or invalid Authorization header"},
		{"empty bearer", "Bearer  ", "Missing or invalid Authorization header"},
		{"garbage token", "Bearer nope", "invalid assertion"},
		{"expired", "Bearer " + s.token(expired), "assertion has expired"},
		{"invalid bsn", "Bearer " + s.token(claimsFor("123456789")), "assertion carries no valid bsn"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			req := testutil.NewRequest(s.T(), http.MethodGet, "/protected")
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := testutil.DoRequest(s.router, req)

			testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, tc.message)
			s.Empty(s.seenBSN)
			s.Equal([]string{string(audit.EventAuthFailed)}, s.auditor.actions())
		})
	}
}

func (s *MiddlewareSuite) TestRevokedAssertion() {
	s.Require().NoError(s.revocations.Revoke(context.Background(), "jti-1", time.Hour))

	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/protected"), s.token(claimsFor(validBSN)))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "Assertion has been revoked")
	s.Equal([]string{string(audit.EventRevokedTokenUsed)}, s.auditor.actions())
}

func (s *MiddlewareSuite) TestAssertionWithoutJTISkipsRevocation() {
	c := claimsFor(validBSN)
	delete(c, "jti")
	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/protected"), s.token(c))
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
}

func (s *MiddlewareSuite) TestRevocationStoreFailure() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := NewMiddleware(s.verifier, failingRevocations{}, s.auditor, logger)
	h := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/protected"), s.token(claimsFor(validBSN)))
	rr := testutil.DoRequest(h, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "Server error occurred")
}

func (s *MiddlewareSuite) TestLogout() {
	token := s.token(claimsFor(validBSN))

	s.Run("revokes the presented assertion", func() {
		req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/wmoned/logout"), token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)

		revoked, err := s.revocations.IsRevoked(context.Background(), "jti-1")
		s.Require().NoError(err)
		s.True(revoked)
	})

	s.Run("the same assertion is refused afterwards", func() {
		req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/protected"), token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("assertion without jti cannot be revoked", func() {
		c := claimsFor(validBSN)
		delete(c, "jti")
		req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodPost, "/wmoned/logout"), s.token(c))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
