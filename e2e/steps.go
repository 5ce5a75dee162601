// Package e2e drives a running wmoned instance through the feature files.
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
)

// TestContext holds per-scenario state.
type TestContext struct {
	BaseURL string
	Secret  []byte
	Client  *http.Client

	token      string
	lastStatus int
	lastBody   []byte
	lastHeader http.Header
}

func (tc *TestContext) reset() {
	tc.token = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeader = nil
}

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^I am logged in with BSN "([^"]*)"$`, tc.loggedInAs)
	ctx.Step(`^I am logged in with BSN "([^"]*)" and session "([^"]*)"$`, tc.loggedInWithSession)
	ctx.Step(`^my assertion expired$`, tc.expiredAssertion)
	ctx.Step(`^I am not logged in$`, tc.notLoggedIn)
	ctx.Step(`^I (GET|POST) "([^"]*)"$`, tc.request)
	ctx.Step(`^the response status should be (\d+)$`, tc.statusShouldBe)
	ctx.Step(`^the response envelope status should be "([^"]*)"$`, tc.envelopeStatusShouldBe)
	ctx.Step(`^the error message should be "([^"]*)"$`, tc.errorMessageShouldBe)
	ctx.Step(`^the content should be a list$`, tc.contentShouldBeList)
	ctx.Step(`^the response header "([^"]*)" should be set$`, tc.headerShouldBeSet)
}

func (tc *TestContext) sign(bsn, jti string, exp time.Time) error {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"bsn": bsn,
		"jti": jti,
		"exp": exp.Unix(),
	}).SignedString(tc.Secret)
	if err != nil {
		return fmt.Errorf("sign assertion: %w", err)
	}
	tc.token = token
	return nil
}

func (tc *TestContext) loggedInAs(bsn string) error {
	return tc.sign(bsn, fmt.Sprintf("e2e-%d", time.Now().UnixNano()), time.Now().Add(10*time.Minute))
}

func (tc *TestContext) loggedInWithSession(bsn, session string) error {
	return tc.sign(bsn, fmt.Sprintf("%s-%d", session, time.Now().UnixNano()), time.Now().Add(10*time.Minute))
}

func (tc *TestContext) expiredAssertion() error {
	return tc.sign("111222333", "e2e-expired", time.Now().Add(-time.Hour))
}

func (tc *TestContext) notLoggedIn() error {
	tc.token = ""
	return nil
}

func (tc *TestContext) request(method, path string) error {
	req, err := http.NewRequest(method, strings.TrimSuffix(tc.BaseURL, "/")+path, nil)
	if err != nil {
		return err
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	resp, err := tc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) statusShouldBe(expected int) error {
	if tc.lastStatus != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, tc.lastStatus, tc.lastBody)
	}
	return nil
}

type envelope struct {
	Status  string          `json:"status"`
	Content json.RawMessage `json:"content"`
	Message string          `json:"message"`
}

func (tc *TestContext) envelope() (envelope, error) {
	var e envelope
	if err := json.Unmarshal(tc.lastBody, &e); err != nil {
		return e, fmt.Errorf("response is not an envelope: %w: %s", err, tc.lastBody)
	}
	return e, nil
}

func (tc *TestContext) envelopeStatusShouldBe(expected string) error {
	e, err := tc.envelope()
	if err != nil {
		return err
	}
	if e.Status != expected {
		return fmt.Errorf("expected envelope status %q, got %q", expected, e.Status)
	}
	return nil
}

func (tc *TestContext) errorMessageShouldBe(expected string) error {
	e, err := tc.envelope()
	if err != nil {
		return err
	}
	if e.Message != expected {
		return fmt.Errorf("expected message %q, got %q", expected, e.Message)
	}
	return nil
}

func (tc *TestContext) contentShouldBeList() error {
	e, err := tc.envelope()
	if err != nil {
		return err
	}
	var list []json.RawMessage
	if err := json.Unmarshal(e.Content, &list); err != nil || list == nil {
		return fmt.Errorf("content is not a list: %s", e.Content)
	}
	return nil
}

func (tc *TestContext) headerShouldBeSet(name string) error {
	if tc.lastHeader.Get(name) == "" {
		return fmt.Errorf("header %s is not set", name)
	}
	return nil
}
