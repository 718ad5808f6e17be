// Package flow implements the onboarding state machine: the routing
// decision that picks the canonical step for a visitor, the controller
// that drives step submissions through the mirror and the draft store,
// and the coordinator that migrates a finished draft into permanent
// records.
package flow

import "github.com/s-411/tracker-onboarding/internal/model"

// Route names the destinations the routing decision can produce.  The
// first four correspond to onboarding steps; RouteApp sends the visitor
// to the authenticated application and out of this flow.
type Route int

const (
	RouteProfile Route = iota + 1 // step 1: profile form
	RouteEntry                    // step 2: first activity entry
	RouteAccount                  // step 3: account creation
	RoutePlan                     // step 4: plan selection
	RouteApp                      // signed in, leave the flow
)

// String returns the wire name used in routing responses.
func (r Route) String() string {
	switch r {
	case RouteProfile:
		return "profile"
	case RouteEntry:
		return "entry"
	case RouteAccount:
		return "account"
	case RoutePlan:
		return "plan"
	case RouteApp:
		return "app"
	}
	return "unknown"
}

// RouteInputs is the plain data the routing decision consumes.  The
// caller assembles it from the identity check, the mirror and, when
// needed, the server draft; DecideRoute itself touches nothing.
type RouteInputs struct {
	Authenticated bool // a signed-in identity is present
	HasProfile    bool // a profile draft exists
	HasEntry      bool // an entry draft exists
	Step          int  // recorded step counter, 0 when no draft
}

// DecideRoute picks the canonical step for the given inputs.  Draft
// contents outrank the recorded step counter: a step value with no
// matching data is never trusted.  In particular, a counter at the
// plan step with no completed migration is an inconsistent leftover
// and resets the visitor to the first step rather than stranding them
// on a form for data that no longer exists.
func DecideRoute(in RouteInputs) Route {
	if in.Authenticated {
		return RouteApp
	}
	if !in.HasProfile {
		return RouteProfile
	}
	if !in.HasEntry {
		return RouteEntry
	}
	if in.Step < model.StepAccount {
		return RouteAccount
	}
	if in.Step < model.StepPlan {
		return RoutePlan
	}
	// step >= plan without a migration having consumed the draft
	return RouteProfile
}
