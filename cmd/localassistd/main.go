package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Flags with environment variable defaults.
var (
	configPath      string
	addr            string
	modelsDir       string
	dataDir         string
	catalogOverlay  string
	downloadBaseURL string
	runtimeKind     string
	remoteModel     string
	corsOrigins     string
	logLevel        string
	logJSON         bool
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "localassistd",
		Short:         "Local assistant inference daemon",
		Long:          "localassistd manages local models, streams chat replies and runs tool directives over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", envOr("LOCALASSIST_CONFIG", ""), "Config file (.yaml, .json or .toml); watched for changes")
	pf.StringVar(&modelsDir, "models-dir", envOr("LOCALASSIST_MODELS_DIR", "~/.localassist/models"), "Directory holding downloaded model files")
	pf.StringVar(&dataDir, "data-dir", envOr("LOCALASSIST_DATA_DIR", "~/.localassist/data"), "Directory for the settings database")
	pf.StringVar(&catalogOverlay, "catalog", envOr("LOCALASSIST_CATALOG", ""), "Optional catalog overlay file adding model descriptors")
	pf.StringVar(&logLevel, "log-level", envOr("LOCALASSIST_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	pf.BoolVar(&logJSON, "log-json", false, "Force JSON logs even on a terminal")

	f := root.Flags()
	f.StringVar(&addr, "addr", envOr("LOCALASSIST_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	f.StringVar(&downloadBaseURL, "download-base-url", envOr("LOCALASSIST_DOWNLOAD_BASE_URL", ""), "Model file host (default https://huggingface.co)")
	f.StringVar(&runtimeKind, "runtime", envOr("LOCALASSIST_RUNTIME", "llama"), "Inference runtime: llama or remote")
	f.StringVar(&remoteModel, "remote-model", envOr("LOCALASSIST_REMOTE_MODEL", ""), "Model name sent to the remote endpoint (default: catalog name)")
	f.StringVar(&corsOrigins, "cors-origins", envOr("LOCALASSIST_CORS_ORIGINS", ""), "Comma-separated allowed CORS origins; empty disables CORS")

	root.AddCommand(newModelsCmd(), newSanityCmd())
	return root
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log := newLogger(logLevel, logJSON)
		log.Fatal().Err(err).Msg("localassistd failed")
	}
}
