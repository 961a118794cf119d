package ciba

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cucumber/godog"
)

const grantType = "urn:openid:params:grant-type:ciba"

// TestContext is what the backchannel steps need from the scenario state.
type TestContext interface {
	POSTForm(path string, form url.Values) error
	Status() int
	ResponseField(field string) (any, bool)
	AuthReqID() string
	SetAuthReqID(id string, interval time.Duration)
	PollInterval() time.Duration
}

// RegisterSteps registers backchannel authentication steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &cibaSteps{tc: tc}

	ctx.Step(`^I start a backchannel authentication for "([^"]*)" at provider "([^"]*)"$`, steps.start)
	ctx.Step(`^I start a backchannel authentication for "([^"]*)" at provider "([^"]*)" with binding message "([^"]*)"$`, steps.startWithBinding)
	ctx.Step(`^I poll the token endpoint$`, steps.poll)
	ctx.Step(`^I poll the token endpoint for "([^"]*)"$`, steps.pollFor)
	ctx.Step(`^I poll the token endpoint with grant type "([^"]*)"$`, steps.pollWithGrant)
	ctx.Step(`^I poll the token endpoint until it stops pending$`, steps.pollUntilResolved)
}

type cibaSteps struct {
	tc TestContext
}

func (s *cibaSteps) start(ctx context.Context, loginHint, provider string) error {
	return s.startWithBinding(ctx, loginHint, provider, "")
}

func (s *cibaSteps) startWithBinding(_ context.Context, loginHint, provider, binding string) error {
	form := url.Values{
		"login_hint":       {loginHint},
		"home_provider_id": {provider},
		"scope":            {"openid"},
	}
	if binding != "" {
		form.Set("binding_message", binding)
	}
	if err := s.tc.POSTForm("/bc-authorize", form); err != nil {
		return err
	}
	id, _ := s.tc.ResponseField("auth_req_id")
	interval, _ := s.tc.ResponseField("interval")
	seconds, _ := interval.(float64)
	if str, ok := id.(string); ok {
		s.tc.SetAuthReqID(str, time.Duration(seconds)*time.Second)
	}
	return nil
}

func (s *cibaSteps) poll(ctx context.Context) error {
	if s.tc.AuthReqID() == "" {
		return errors.New("no backchannel authentication was started")
	}
	return s.pollFor(ctx, s.tc.AuthReqID())
}

func (s *cibaSteps) pollFor(_ context.Context, authReqID string) error {
	return s.tc.POSTForm("/token", url.Values{"grant_type": {grantType}, "auth_req_id": {authReqID}})
}

func (s *cibaSteps) pollWithGrant(_ context.Context, grant string) error {
	return s.tc.POSTForm("/token", url.Values{"grant_type": {grant}, "auth_req_id": {s.tc.AuthReqID()}})
}

func (s *cibaSteps) pollUntilResolved(ctx context.Context) error {
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.tc.PollInterval()):
		}
		if err := s.poll(ctx); err != nil {
			return err
		}
		name, _ := s.tc.ResponseField("error")
		if name != "authorization_pending" && name != "slow_down" {
			return nil
		}
	}
	return fmt.Errorf("auth_req_id %s still pending after 60s", s.tc.AuthReqID())
}
