package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is what the shared steps need from the scenario state.
type TestContext interface {
	GET(path string) error
	SetClient(id, secret string)
	Status() int
	ResponseField(field string) (any, bool)
}

// RegisterSteps registers request and assertion steps shared by features.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am relying party "([^"]*)" with secret "([^"]*)"$`, steps.actAsClient)
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) actAsClient(_ context.Context, id, secret string) error {
	s.tc.SetClient(id, secret)
	return nil
}

func (s *commonSteps) get(_ context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d", want, got)
	}
	return nil
}

func (s *commonSteps) responseShouldContain(_ context.Context, field string) error {
	if _, ok := s.tc.ResponseField(field); !ok {
		return fmt.Errorf("response has no %q field", field)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, want string) error {
	v, ok := s.tc.ResponseField(field)
	if !ok {
		return fmt.Errorf("response has no %q field", field)
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, got)
	}
	return nil
}
