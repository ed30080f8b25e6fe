package models

// ScoredResult is a ranked entity with the component scores that produced
// its position.
type ScoredResult struct {
	*CodeEntity
	LexicalScore  float64 `json:"lexicalScore"`
	SemanticScore float64 `json:"semanticScore"`
	ContextScore  float64 `json:"contextScore"`
	CombinedScore float64 `json:"combinedScore"`

	Description     string `json:"description"`
	HasBackendLink  bool   `json:"hasBackendLink,omitempty"`
	HasFrontendLink bool   `json:"hasFrontendLink,omitempty"`
}

// FlowChain is an ordered UI -> handler -> API -> backend path of entity IDs.
type FlowChain []string

type GraphNode struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Type      EntityType `json:"type"`
	Tier      Tier       `json:"tier"`
	FilePath  string     `json:"filePath"`
	StartLine int        `json:"startLine"`
}

type GraphEdge struct {
	ID       string       `json:"id"`
	Source   string       `json:"source"`
	Target   string       `json:"target"`
	Type     RelationType `json:"type"`
	Strength Strength     `json:"strength"`
}

type FlowStats struct {
	TotalNodes                 int  `json:"totalNodes"`
	TotalEdges                 int  `json:"totalEdges"`
	FlowChainsCount            int  `json:"flowChainsCount"`
	FrontendNodes              int  `json:"frontendNodes"`
	BackendNodes               int  `json:"backendNodes"`
	FrontendBackendConnections int  `json:"frontendBackendConnections"`
	Truncated                  bool `json:"truncated"`
}

type FlowGraph struct {
	Query      string      `json:"query"`
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	FlowChains []FlowChain `json:"flowChains"`
	Stats      FlowStats   `json:"stats"`
}

// Hit pairs an entity with a raw score from one signal source.
type Hit struct {
	Entity *CodeEntity
	Score  float64
}
