package handlers

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

var (
	buildMu sync.RWMutex
	build   = AppInfo{Name: "verifi", Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// SetVersionInfo records the ldflags build stamp reported by /version.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	build.Version, build.Commit, build.BuildDate = version, commit, buildDate
}

// SetAppName sets the name reported by /version. Blank names are ignored.
func SetAppName(name string) {
	if name == "" {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	build.Name = name
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo           `json:"app"`
	EntityKinds  []core.EntityKind `json:"entity_kinds"`
	Dependencies DepInfo           `json:"dependencies"`
	Runtime      RuntimeInfo       `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler reports the build stamp, the entity kinds this build can
// answer for, and the fulmen library versions.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	buildMu.RLock()
	app := build
	buildMu.RUnlock()
	app.GoVersion = runtime.Version()

	deps := crucible.GetVersion()
	writeJSON(w, http.StatusOK, VersionResponse{
		App:          app,
		EntityKinds:  core.EntityKinds(),
		Dependencies: DepInfo{Gofulmen: deps.Gofulmen, Crucible: deps.Crucible},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
