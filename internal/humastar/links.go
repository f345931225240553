package humastar

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds the RFC 8288 Link headers generated from an API's operations,
// keyed by operation path.
type Links struct {
	byPath map[string][]string
	skip   string
}

// NewLinks creates an empty link set. Operations tagged skipTag (the SSE
// endpoints) get no links.
func NewLinks(skipTag string) *Links {
	return &Links{byPath: map[string][]string{}, skip: skipTag}
}

// Build walks the OpenAPI spec and generates hypermedia links.
// Call after all routes are registered and before serving.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()
	l.byPath = map[string][]string{}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(primaryTags(pi), l.skip) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	slices.Sort(collections)
	slices.Sort(items)

	// Item → collection (rel="collection"), when the parent path exists.
	for _, item := range items {
		if parent := parentCollection(oapi, item); parent != "" {
			l.add(item, parent, "collection")
		}
	}

	// Collection → item template (rel="item").
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				l.add(coll, item, "item")
			}
		}
	}

	// Collections point back at the entry point.
	for _, coll := range collections {
		if coll != "/health" {
			l.add(coll, "/health", "up")
		}
	}

	for _, coll := range collections {
		if oapi.Paths[coll].Post != nil {
			l.add(coll, coll, "create-form")
		}
	}
	for _, item := range items {
		pi := oapi.Paths[item]
		if pi.Put != nil || pi.Patch != nil {
			l.add(item, item, "edit")
		}
	}

	// Entry point: every GET collection plus discovery rels.
	for _, coll := range collections {
		if coll == "/health" || oapi.Paths[coll].Get == nil {
			continue
		}
		l.add("/health", coll, relName(coll))
	}
	l.add("/health", "/openapi.json", "service-desc")
	l.add("/health", "/docs", "service-doc")

	for p, pi := range oapi.Paths {
		headers, ok := l.byPath[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// For returns the Link headers for an operation path.
func (l *Links) For(opPath string) []string {
	if l == nil {
		return nil
	}
	return l.byPath[opPath]
}

// Transformer returns a Huma Transformer that injects the generated Link
// headers at runtime, plus self, pagination and action links.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil || slices.Contains(op.Tags, l.skip) {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link with the resolved URL.
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if slices.Contains(l.byPath[from], val) {
		return
	}
	l.byPath[from] = append(l.byPath[from], val)
}

// parentCollection walks up item's path until it finds a registered
// collection, so /a/{id}/b resolves to /a.
func parentCollection(oapi *huma.OpenAPI, item string) string {
	for p := path.Dir(item); p != "/" && p != "."; p = path.Dir(p) {
		if strings.Contains(p, "{") {
			continue
		}
		if _, ok := oapi.Paths[p]; ok {
			return p
		}
	}
	return ""
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

// relName turns /api/v1/map/layers into "map-layers" style names,
// dropping the version prefix.
func relName(p string) string {
	p = strings.TrimPrefix(p, "/api/v1/")
	p = strings.Trim(p, "/")
	return strings.ReplaceAll(p, "/", "-")
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success response
// so the published document carries the relationships.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
