package humastar

import "fmt"

// Action is a state-dependent hypermedia action link.
// Response bodies implement the Actor interface to emit conditional
// RFC 8288 Link headers with method and title extension parameters.
//
// Example Link header output:
//
//	</api/v1/map/layers/geojson-1/visibility>; rel="hide"; method="PUT"; title="Hide layer"
type Action struct {
	Rel    string // IANA rel or custom (e.g., "hide", "show")
	Href   string // target URL
	Method string // HTTP method: POST, PUT, DELETE, etc.
	Title  string // optional human-readable label
}

// Actor is implemented by response bodies that provide state-dependent actions.
type Actor interface {
	Actions() []Action
}

// LinkHeader formats the action as an RFC 8288 Link header value.
func (a Action) LinkHeader() string {
	h := fmt.Sprintf(`<%s>; rel="%s"`, a.Href, a.Rel)
	if a.Method != "" {
		h += fmt.Sprintf(`; method="%s"`, a.Method)
	}
	if a.Title != "" {
		h += fmt.Sprintf(`; title="%s"`, a.Title)
	}
	return h
}

// ActionDef is a reusable action template.
// Pattern uses a single %s verb for the resource ID.
type ActionDef struct {
	Rel     string
	Pattern string // e.g. "/api/v1/map/layers/%s/visibility"
	Method  string
	Title   string
}

// For builds the concrete action for a resource ID.
func (d ActionDef) For(id string) Action {
	return Action{Rel: d.Rel, Href: fmt.Sprintf(d.Pattern, id), Method: d.Method, Title: d.Title}
}

// ActionsFor generates concrete Action values from ActionDefs for a given resource ID.
func ActionsFor(id string, defs []ActionDef) []Action {
	actions := make([]Action, len(defs))
	for i, d := range defs {
		actions[i] = d.For(id)
	}
	return actions
}
