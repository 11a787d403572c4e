package manager

// Phase is the lifecycle phase of the active model.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDownloading Phase = "downloading"
	PhaseLoading     Phase = "loading"
	PhaseLoaded      Phase = "loaded"
	PhaseFailed      Phase = "failed"
)

// LoadState is an immutable snapshot of the lifecycle. Fraction and
// DownloadID are set while downloading; Reason while failed.
type LoadState struct {
	Phase      Phase
	Model      string
	Fraction   float64
	DownloadID string
	Reason     string
}

// Progress describes the most recent download, whether started by Select or
// by Prefetch.
type Progress struct {
	ID       string
	Model    string
	Fraction float64
	Active   bool
	Err      string
}
