package manager

import (
	"localassist/internal/common/fsutil"
	"localassist/internal/runtime"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	LlamaBuilt    bool   `json:"llama_built"`
	RequiresFiles bool   `json:"requires_files"`
	ModelsDir     string `json:"models_dir,omitempty"`
	ModelsDirOK   bool   `json:"models_dir_ok"`
	Error         string `json:"error,omitempty"`
}

// SanityCheck validates that the configured runtime can serve loads.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{LlamaBuilt: runtime.LlamaBuilt(), RequiresFiles: m.cfg.Runtime.RequiresFiles()}
	if !r.RequiresFiles {
		return r
	}
	if m.cfg.Store == nil {
		r.Error = "no model store configured"
		return r
	}
	r.ModelsDir = m.cfg.Store.Root()
	r.ModelsDirOK = fsutil.IsDir(r.ModelsDir)
	if !r.ModelsDirOK {
		r.Error = "models directory missing"
	}
	return r
}

// OK reports whether the report shows no problems.
func (r SanityReport) OK() bool { return r.Error == "" }
