package domain

// PlatformReport is one row of a scan status poll.
type PlatformReport struct {
	Platform string
	Status   PlatformStatus
	Attempts int
	Error    *string
}

// StatusReport is the aggregate a poller sees: the scan with its derived
// status, per-platform breakdown, and overall progress.
type StatusReport struct {
	Scan            Scan
	Platforms       []PlatformReport
	ProgressPercent int
	AllComplete     bool
}
