package models

type RelationType string

const (
	RelCallsFunction    RelationType = "calls_function"
	RelCalledByFunction RelationType = "called_by_function"
	RelHandlesEndpoint  RelationType = "handles_endpoint"
	RelEndpointHandler  RelationType = "endpoint_handler"
	RelCallsRoute       RelationType = "calls_route"
	RelCallsEndpoint    RelationType = "calls_endpoint"
	RelHandlesEvent     RelationType = "handles_event"
	RelImports          RelationType = "imports"
)

type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthMedium Strength = "medium"
	StrengthWeak   Strength = "weak"
)

// Rank orders strengths: strong 3, medium 2, weak 1.
func (s Strength) Rank() int {
	switch s {
	case StrengthStrong:
		return 3
	case StrengthMedium:
		return 2
	case StrengthWeak:
		return 1
	}
	return 0
}

type Direction string

const (
	DirIncoming  Direction = "incoming"
	DirOutgoing  Direction = "outgoing"
	DirFrontend  Direction = "frontend"
	DirBackend   Direction = "backend"
	DirJSHandler Direction = "js_handler"
	DirDependsOn Direction = "depends_on"
)

// RelationEdge is derived from two entities on demand and never stored
// on its own.
type RelationEdge struct {
	SourceID      string       `json:"sourceId"`
	TargetID      string       `json:"targetId"`
	Type          RelationType `json:"type"`
	Strength      Strength     `json:"strength"`
	Direction     Direction    `json:"direction"`
	EndpointMatch string       `json:"endpointMatch,omitempty"`
}

type RelatedEntity struct {
	Entity *CodeEntity  `json:"entity"`
	Edge   RelationEdge `json:"relation"`
}
