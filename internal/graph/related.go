// Package graph infers typed relations between code entities, expands
// search hits along them, and reconstructs UI-to-backend flow chains.
package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dpolishuk/codeflow/internal/errors"
	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/dpolishuk/codeflow/internal/models"
)

// MaxRelated caps the result of FindRelated.
const MaxRelated = 15

// Builder evaluates relation predicates between a base entity and every
// other entity of a snapshot. It is stateless and safe for concurrent use.
type Builder struct {
	logger     *slog.Logger
	predicates []predicate
}

func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{
		logger:     logging.OrDefault(logger),
		predicates: defaultPredicates,
	}
}

// base caches the per-call facts about the base entity.
type base struct {
	entity    *models.CodeEntity
	key       string
	tier      models.Tier
	endpoints []string // normalized api_call endpoints
	routes    []string // normalized route paths
	elementID string
	classes   []string
	handlers  []string
}

func newBase(e *models.CodeEntity) *base {
	b := &base{
		entity:    e,
		key:       e.Key(),
		tier:      models.TierOf(e),
		elementID: strings.ToLower(e.ElementID),
	}
	if e.Type == models.EntityAPICall {
		b.endpoints = apiEndpoints(e)
	}
	if e.Type == models.EntityRoute {
		b.routes = routePaths(e)
	}
	for _, c := range e.Classes {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			b.classes = append(b.classes, c)
		}
	}
	for _, l := range e.EventListeners {
		if h := handlerName(l.Handler); h != "" {
			b.handlers = append(b.handlers, h)
		}
	}
	return b
}

// FindRelated returns up to MaxRelated entities related to e, strongest
// first. The base itself is never included. A candidate whose evaluation
// panics is logged and skipped.
func (bld *Builder) FindRelated(e *models.CodeEntity, all []*models.CodeEntity) []models.RelatedEntity {
	if e == nil {
		return nil
	}
	b := newBase(e)

	var related []models.RelatedEntity
	for _, c := range all {
		if c == nil || c == e || c.Key() == b.key {
			continue
		}
		related = append(related, bld.evaluate(b, c)...)
	}

	related = dedupe(related)
	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Edge.Strength.Rank() > related[j].Edge.Strength.Rank()
	})
	if len(related) > MaxRelated {
		related = related[:MaxRelated]
	}
	return related
}

type addFunc func(t models.RelationType, s models.Strength, d models.Direction, match string)

// predicate inspects one (base, candidate) pair and reports each relation
// it finds through add.
type predicate func(b *base, c *models.CodeEntity, add addFunc)

// Evaluation order is fixed; several predicates may fire for one pair.
var defaultPredicates = []predicate{
	callsFunction,
	calledByFunction,
	handlesEndpoint,
	callsRoute,
	callsEndpoint,
	handlesEvent,
	importsBase,
}

func (bld *Builder) evaluate(b *base, c *models.CodeEntity) (out []models.RelatedEntity) {
	defer func() {
		if r := recover(); r != nil {
			bld.logger.Warn("relation evaluation failed, skipping candidate",
				"code", errors.RelationEvaluationFailure,
				"base", b.key,
				"candidate", c.ID,
				"panic", fmt.Sprint(r))
			out = nil
		}
	}()

	target := c.Key()
	add := func(t models.RelationType, s models.Strength, d models.Direction, match string) {
		out = append(out, models.RelatedEntity{
			Entity: c,
			Edge: models.RelationEdge{
				SourceID:      b.key,
				TargetID:      target,
				Type:          t,
				Strength:      s,
				Direction:     d,
				EndpointMatch: match,
			},
		})
	}
	for _, p := range bld.predicates {
		p(b, c, add)
	}
	return out
}

// c calls base
func callsFunction(b *base, c *models.CodeEntity, add addFunc) {
	if b.entity.Name != "" && anyContains(c.Relations, b.entity.Name) {
		add(models.RelCallsFunction, models.StrengthStrong, models.DirOutgoing, "")
	}
}

// base calls c
func calledByFunction(b *base, c *models.CodeEntity, add addFunc) {
	if c.Name != "" && anyContains(b.entity.Relations, c.Name) {
		add(models.RelCalledByFunction, models.StrengthStrong, models.DirIncoming, "")
	}
}

// frontend api call -> backend handler
func handlesEndpoint(b *base, c *models.CodeEntity, add addFunc) {
	if len(b.endpoints) == 0 || b.tier != models.TierFrontend || models.TierOf(c) != models.TierBackend {
		return
	}
	if path, ok := matchRoute(b.endpoints, c.Routes); ok {
		add(models.RelHandlesEndpoint, models.StrengthStrong, models.DirBackend, path)
	} else if matchAny(b.endpoints, NormalizeEndpoint(c.Name)) {
		add(models.RelEndpointHandler, models.StrengthMedium, models.DirBackend, c.Name)
	}
}

// backend route -> frontend caller
func callsRoute(b *base, c *models.CodeEntity, add addFunc) {
	if len(b.routes) == 0 || b.tier != models.TierBackend {
		return
	}
	for _, ac := range c.APICalls {
		if matchAny(b.routes, NormalizeEndpoint(ac.Endpoint)) {
			add(models.RelCallsRoute, models.StrengthStrong, models.DirFrontend, ac.Endpoint)
			return
		}
	}
}

// code with api calls -> the api_call entity it issues
func callsEndpoint(b *base, c *models.CodeEntity, add addFunc) {
	e := b.entity
	if e.Type == models.EntityAPICall || len(e.APICalls) == 0 || c.Type != models.EntityAPICall {
		return
	}
	targets := apiEndpoints(c)
	for _, ac := range e.APICalls {
		if matchAny(targets, NormalizeEndpoint(ac.Endpoint)) {
			add(models.RelCallsEndpoint, models.StrengthStrong, models.DirOutgoing, ac.Endpoint)
			return
		}
	}
}

// UI element -> script handler
func handlesEvent(b *base, c *models.CodeEntity, add addFunc) {
	if !isBindable(b.entity.Type) {
		return
	}
	if s, ok := b.matchListeners(c); ok {
		add(models.RelHandlesEvent, s, models.DirJSHandler, "")
	}
}

// c imports base
func importsBase(b *base, c *models.CodeEntity, add addFunc) {
	if b.entity.Name != "" && anyContains(c.Imports, b.entity.Name) {
		add(models.RelImports, models.StrengthWeak, models.DirDependsOn, "")
	}
}

// matchListeners binds a UI element to c. The element id or classes may
// appear in c's listeners, or the element's own handlers may name c.
func (b *base) matchListeners(c *models.CodeEntity) (models.Strength, bool) {
	classHit := false
	for _, l := range c.EventListeners {
		h := strings.ToLower(l.Handler)
		el := strings.ToLower(l.Element)
		if b.elementID != "" && (strings.Contains(h, b.elementID) || strings.Contains(el, b.elementID)) {
			return models.StrengthStrong, true
		}
		for _, cls := range b.classes {
			if strings.Contains(h, cls) || strings.Contains(el, cls) {
				classHit = true
			}
		}
	}

	if len(b.handlers) > 0 && c.Name != "" && isHandlerType(c.Type) && models.TierOf(c) == models.TierFrontend {
		name := strings.ToLower(c.Name)
		for _, h := range b.handlers {
			if h == name || strings.Contains(h, name) || strings.Contains(name, h) {
				return models.StrengthStrong, true
			}
		}
	}

	if classHit {
		return models.StrengthMedium, true
	}
	return "", false
}

func isBindable(t models.EntityType) bool {
	return t == models.EntityButton || t == models.EntityElement || t == models.EntityInput
}

func isHandlerType(t models.EntityType) bool {
	return t == models.EntityFunction || t == models.EntityClass || t == models.EntityEventListener
}

// handlerName reduces an inline handler such as "handleSearch(event);
// return false" to "handlesearch".
func handlerName(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimPrefix(h, "return ")
	if i := strings.IndexAny(h, "(;"); i >= 0 {
		h = h[:i]
	}
	return strings.ToLower(strings.TrimSpace(h))
}

func apiEndpoints(e *models.CodeEntity) []string {
	var out []string
	for _, ac := range e.APICalls {
		if ep := NormalizeEndpoint(ac.Endpoint); ep != "" {
			out = append(out, ep)
		}
	}
	if len(out) == 0 {
		if ep := NormalizeEndpoint(e.Name); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

func routePaths(e *models.CodeEntity) []string {
	var out []string
	for _, r := range e.Routes {
		if p := NormalizeEndpoint(r.Path); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		if p := NormalizeEndpoint(e.Name); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchRoute(endpoints []string, routes []models.Route) (string, bool) {
	for _, r := range routes {
		if matchAny(endpoints, NormalizeEndpoint(r.Path)) {
			return r.Path, true
		}
	}
	return "", false
}

func matchAny(normalized []string, candidate string) bool {
	for _, n := range normalized {
		if endpointsMatch(n, candidate) {
			return true
		}
	}
	return false
}

func anyContains(list []string, name string) bool {
	for _, s := range list {
		if s == name || strings.Contains(s, name) {
			return true
		}
	}
	return false
}

func dedupe(in []models.RelatedEntity) []models.RelatedEntity {
	type key struct {
		path, name string
		t          models.RelationType
	}
	seen := make(map[key]bool, len(in))
	out := in[:0]
	for _, r := range in {
		k := key{r.Entity.FilePath, r.Entity.Name, r.Edge.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
