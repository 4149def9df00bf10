package api

import (
	"net/url"
	"strings"
)

// Endpoints are the backend paths, relative to the base URL. Paths holding
// "{uuid}" or "{kind}" are expanded per call.
type Endpoints struct {
	Authenticate string `yaml:"authenticate"`
	Register     string `yaml:"register"`
	Logout       string `yaml:"logout"`
	Me           string `yaml:"me"`
	Health       string `yaml:"health"`
	History      string `yaml:"history"`
	Task         string `yaml:"task"`
	TogglePublic string `yaml:"toggle_public"`
	Public       string `yaml:"public"`
	Save         string `yaml:"save"`
	Upload       string `yaml:"upload"`
	Generate     string `yaml:"generate"`
}

// DefaultEndpoints returns the paths served by the language helper backend
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Authenticate: "/api/authenticate",
		Register:     "/api/register",
		Logout:       "/api/logout",
		Me:           "/api/me",
		Health:       "/api/health",
		History:      "/api/history/getTasks",
		Task:         "/api/history/getTask/{uuid}",
		TogglePublic: "/api/exercise/{uuid}/toggle-public",
		Public:       "/api/public/exercise/{uuid}",
		Save:         "/api/exercise/save",
		Upload:       "/api/pdf/upload",
		Generate:     "/api/exercise/{kind}",
	}
}

// withDefaults fills every empty path from DefaultEndpoints
func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&e.Authenticate, d.Authenticate)
	fill(&e.Register, d.Register)
	fill(&e.Logout, d.Logout)
	fill(&e.Me, d.Me)
	fill(&e.Health, d.Health)
	fill(&e.History, d.History)
	fill(&e.Task, d.Task)
	fill(&e.TogglePublic, d.TogglePublic)
	fill(&e.Public, d.Public)
	fill(&e.Save, d.Save)
	fill(&e.Upload, d.Upload)
	fill(&e.Generate, d.Generate)
	return e
}

// withUUID expands the {uuid} placeholder, escaping the id
func withUUID(path, id string) string {
	return strings.ReplaceAll(path, "{uuid}", url.PathEscape(id))
}

// withKind expands the {kind} placeholder of the generation path
func withKind(path string, kind GenerationKind) string {
	return strings.ReplaceAll(path, "{kind}", url.PathEscape(string(kind)))
}

// joinURL appends path to base, tolerating a trailing slash on base and a
// missing leading slash on path.
func joinURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
