package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s-411/tracker-onboarding/internal/model"
)

func TestDecideRoute(t *testing.T) {
	cases := []struct {
		name string
		in   RouteInputs
		want Route
	}{
		{"authenticated wins over everything", RouteInputs{Authenticated: true, HasProfile: true, HasEntry: true, Step: model.StepPlan}, RouteApp},
		{"fresh visitor", RouteInputs{}, RouteProfile},
		{"step counter without profile data is not trusted", RouteInputs{Step: model.StepAccount}, RouteProfile},
		{"profile only", RouteInputs{HasProfile: true, Step: model.StepEntry}, RouteEntry},
		{"profile and entry below account step", RouteInputs{HasProfile: true, HasEntry: true, Step: model.StepEntry}, RouteAccount},
		{"profile and entry at account step", RouteInputs{HasProfile: true, HasEntry: true, Step: model.StepAccount}, RoutePlan},
		{"plan step with no migration resets", RouteInputs{HasProfile: true, HasEntry: true, Step: model.StepPlan}, RouteProfile},
		{"entry without profile routes to profile", RouteInputs{HasEntry: true, Step: model.StepAccount}, RouteProfile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DecideRoute(tc.in))
		})
	}
}

// The decision is pure: the same inputs always yield the same route.
func TestDecideRouteDeterministic(t *testing.T) {
	in := RouteInputs{HasProfile: true, HasEntry: true, Step: model.StepEntry}
	first := DecideRoute(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, DecideRoute(in))
	}
}

func TestRouteString(t *testing.T) {
	assert.Equal(t, "profile", RouteProfile.String())
	assert.Equal(t, "entry", RouteEntry.String())
	assert.Equal(t, "account", RouteAccount.String())
	assert.Equal(t, "plan", RoutePlan.String())
	assert.Equal(t, "app", RouteApp.String())
	assert.Equal(t, "unknown", Route(0).String())
}
