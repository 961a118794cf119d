package e2e

import (
	"github.com/cucumber/godog"

	"trustbridge/e2e/steps/ciba"
	"trustbridge/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	ciba.RegisterSteps(ctx, tc)
}
