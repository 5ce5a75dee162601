package e2e

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// TestFeatures needs a running server: WMONED_BASE_URL and the server's
// ASSERTION_HMAC_SECRET.
func TestFeatures(t *testing.T) {
	baseURL := os.Getenv("WMONED_BASE_URL")
	if baseURL == "" {
		t.Skip("WMONED_BASE_URL not set")
	}
	tc := &TestContext{
		BaseURL: baseURL,
		Secret:  []byte(os.Getenv("ASSERTION_HMAC_SECRET")),
		Client:  &http.Client{Timeout: 45 * time.Second},
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature tests failed")
	}
}
