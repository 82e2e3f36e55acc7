// Package lesson describes the curriculum: which lessons exist, in what order
// they are learned and what each one needs to run.
package lesson

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// Levels lists every level in learning order.
var Levels = []Level{Beginner, Intermediate, Advanced}

// Need names an external dependency a lesson connects to.
type Need string

const (
	NeedDatabase Need = "database"
	NeedStorage  Need = "storage"
	NeedCache    Need = "cache"
)

// Lesson is one unit of the curriculum. Prefix is where its routes are mounted,
// empty meaning the root. Routes is false for lessons taught through tests only.
type Lesson struct {
	Number  int      `json:"number"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Level   Level    `json:"level"`
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
	Prefix  string   `json:"prefix"`
	Routes  bool     `json:"routes"`
	Needs   []Need   `json:"needs,omitempty"`
}

// Requires reports whether l needs n.
func (l Lesson) Requires(n Need) bool {
	return slices.Contains(l.Needs, n)
}

// LevelInfo summarises one level of the learning path.
type LevelInfo struct {
	Level    Level    `json:"level"`
	Focus    string   `json:"focus"`
	Skills   []string `json:"skills"`
	Duration string   `json:"duration"`
}

var catalog = []Lesson{
	{
		Number: 1, Slug: "intro", Title: "Introduction", Level: Beginner, Prefix: "/intro", Routes: true,
		Summary: "Framework basics and a first API",
		Topics:  []string{"application setup", "first routes", "typed path parameters", "optional query parameters"},
	},
	{
		Number: 2, Slug: "methods", Title: "First API", Level: Beginner, Prefix: "/methods", Routes: true,
		Summary: "HTTP methods and status codes",
		Topics:  []string{"GET POST PUT PATCH DELETE", "status codes", "in-memory CRUD", "search filters"},
	},
	{
		Number: 3, Slug: "paths", Title: "Path Parameters", Level: Beginner, Prefix: "/paths", Routes: true,
		Summary: "URL parameters and validation",
		Topics:  []string{"typed parameters", "numeric bounds", "enumerations", "wildcard paths", "patterns"},
	},
	{
		Number: 4, Slug: "queries", Title: "Query Parameters", Level: Beginner, Prefix: "/queries", Routes: true,
		Summary: "Query parameters and filtering",
		Topics:  []string{"defaults", "pagination", "sorting", "repeated parameters", "range checks"},
	},
	{
		Number: 5, Slug: "bodies", Title: "Request Body", Level: Beginner, Prefix: "/bodies", Routes: true,
		Summary: "Request bodies, nested models and file uploads",
		Topics:  []string{"JSON binding", "nested models", "partial updates", "multipart forms"},
	},
	{
		Number: 6, Slug: "responses", Title: "Response Models", Level: Intermediate, Prefix: "/responses", Routes: true,
		Summary: "Response models and serialization",
		Topics:  []string{"response shapes", "field exclusion", "pagination envelopes", "csv and xml output", "headers and cookies"},
	},
	{
		Number: 7, Slug: "errors", Title: "Error Handling", Level: Intermediate, Prefix: "/errors", Routes: true,
		Summary: "Custom errors and consistent error responses",
		Topics:  []string{"error taxonomy", "business rules", "upstream failures", "global error handler"},
	},
	{
		Number: 8, Slug: "deps", Title: "Dependency Injection", Level: Intermediate, Prefix: "/deps", Routes: true,
		Summary: "Reusable components and request scoped values",
		Topics:  []string{"middleware resolved values", "shared services", "computed once settings", "caching", "API keys"},
		Needs:   []Need{NeedCache},
	},
	{
		Number: 9, Slug: "security", Title: "Authentication", Level: Intermediate, Prefix: "/security", Routes: true,
		Summary: "JWT, OAuth2 password flow and API keys",
		Topics:  []string{"password hashing", "access and refresh tokens", "scopes", "roles", "token revocation", "API keys"},
		Needs:   []Need{NeedDatabase, NeedCache},
	},
	{
		Number: 10, Slug: "db", Title: "Database Integration", Level: Intermediate, Prefix: "/db", Routes: true,
		Summary: "PostgreSQL CRUD and relationships",
		Topics:  []string{"migrations", "repositories", "one-to-many", "many-to-many", "aggregates", "search"},
		Needs:   []Need{NeedDatabase},
	},
	{
		Number: 11, Slug: "middleware", Title: "Middleware", Level: Advanced, Prefix: "/middleware", Routes: true,
		Summary: "Custom middleware, CORS and request processing",
		Topics:  []string{"timing", "rate limiting", "security headers", "sessions", "compression", "bearer guards"},
	},
	{
		Number: 12, Slug: "tasks", Title: "Background Tasks", Level: Advanced, Prefix: "/tasks", Routes: true,
		Summary: "Background work, progress tracking and scheduling",
		Topics:  []string{"worker pool", "task status", "cancellation", "batches", "concurrent calls", "cron"},
		Needs:   []Need{NeedStorage},
	},
	{
		Number: 13, Slug: "testing", Title: "Testing", Level: Advanced,
		Summary: "Unit and integration testing",
		Topics:  []string{"handler tests", "mocks", "sqlmock", "table-driven tests"},
	},
	{
		Number: 14, Slug: "ops", Title: "Production Deployment", Level: Advanced, Routes: true,
		Summary: "Health checks, metrics, configuration and tracing",
		Topics:  []string{"liveness and readiness", "prometheus metrics", "tracing", "configuration", "graceful shutdown"},
	},
	{
		Number: 15, Slug: "advanced", Title: "Advanced Features", Level: Advanced, Prefix: "/advanced", Routes: true,
		Summary: "WebSockets, server-sent events and streaming",
		Topics:  []string{"websockets", "chat rooms", "server-sent events", "streaming responses", "file transfer"},
		Needs:   []Need{NeedDatabase, NeedStorage},
	},
}

var levels = []LevelInfo{
	{
		Level: Beginner, Focus: "API fundamentals", Duration: "3-5 hours",
		Skills: []string{
			"routing and automatic documentation",
			"HTTP methods",
			"path and query parameters with validation",
			"request bodies and models",
			"file uploads and form data",
		},
	},
	{
		Level: Intermediate, Focus: "production features", Duration: "8-12 hours",
		Skills: []string{
			"response models and serialization",
			"error handling and custom errors",
			"dependency wiring and services",
			"authentication and tokens",
			"database integration",
		},
	},
	{
		Level: Advanced, Focus: "production ready", Duration: "10-15 hours",
		Skills: []string{
			"middleware and CORS",
			"background tasks",
			"testing with mocks",
			"deployment and monitoring",
			"websockets, server-sent events and streaming",
		},
	},
}

// Catalog returns every lesson in learning order.
func Catalog() []Lesson {
	out := make([]Lesson, len(catalog))
	for i, l := range catalog {
		l.Topics = slices.Clone(l.Topics)
		l.Needs = slices.Clone(l.Needs)
		out[i] = l
	}
	return out
}

// Find looks a lesson up by number ("1", "01") or slug.
func Find(id string) (Lesson, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if n, err := strconv.Atoi(id); err == nil {
		for _, l := range Catalog() {
			if l.Number == n {
				return l, true
			}
		}
		return Lesson{}, false
	}
	for _, l := range Catalog() {
		if l.Slug == id {
			return l, true
		}
	}
	return Lesson{}, false
}

// ByLevel groups the catalog by level.
func ByLevel() map[Level][]Lesson {
	out := make(map[Level][]Lesson, len(Levels))
	for _, l := range Catalog() {
		out[l.Level] = append(out[l.Level], l)
	}
	return out
}

// Stage is one level of the learning path with its lessons.
type Stage struct {
	LevelInfo
	Lessons []Lesson `json:"lessons"`
}

// Path returns the learning path: levels in order, each with its lessons in order.
func Path() []Stage {
	grouped := ByLevel()
	out := make([]Stage, 0, len(levels))
	for _, info := range levels {
		info.Skills = slices.Clone(info.Skills)
		out = append(out, Stage{LevelInfo: info, Lessons: grouped[info.Level]})
	}
	return out
}

// Select resolves ids into lessons, keeping catalog order and dropping duplicates.
// No ids selects the whole catalog.
func Select(ids []string) ([]Lesson, error) {
	if len(ids) == 0 {
		return Catalog(), nil
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		if strings.EqualFold(strings.TrimSpace(id), "all") {
			return Catalog(), nil
		}
		l, ok := Find(id)
		if !ok {
			return nil, fmt.Errorf("unknown lesson %q", id)
		}
		want[l.Number] = true
	}
	out := make([]Lesson, 0, len(want))
	for _, l := range Catalog() {
		if want[l.Number] {
			out = append(out, l)
		}
	}
	return out, nil
}

// Needs collects the dependencies of lessons, without duplicates.
func Needs(lessons []Lesson) map[Need]bool {
	out := make(map[Need]bool)
	for _, l := range lessons {
		for _, n := range l.Needs {
			out[n] = true
		}
	}
	return out
}
