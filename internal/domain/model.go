package domain

import "time"

// Core domain models for the discovery scan queue. API response shapes live in
// the HTTP adapter; keep these decoupled where helpful.

type ScanStatus string

const (
	ScanRunning  ScanStatus = "running"
	ScanComplete ScanStatus = "complete"
	ScanFailed   ScanStatus = "failed"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobLeased   JobStatus = "leased"
	JobComplete JobStatus = "complete"
	JobFailed   JobStatus = "failed"
)

// Terminal reports whether no further transition can leave the status.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobFailed
}

type JobType string

const (
	JobTypeDiscovery  JobType = "discovery"
	JobTypePagination JobType = "pagination"
)

// PlatformStatus is the client-facing per-source state carried on a scan.
type PlatformStatus string

const (
	PlatformPending  PlatformStatus = "pending"
	PlatformRunning  PlatformStatus = "running"
	PlatformComplete PlatformStatus = "complete"
	PlatformFailed   PlatformStatus = "failed"
)

const DefaultMaxAttempts = 3

// Credentials are opaque per-source secrets resolved by the integration layer.
type Credentials map[string]string

type Scan struct {
	ID              string
	ProjectID       string
	RequestedBy     string
	Status          ScanStatus // derived from job rows, never authoritative alone
	Platforms       map[string]PlatformStatus
	TotalDiscovered int
	TotalRelevant   int
	TotalClassified int
	StartedAt       time.Time
	CompletedAt     *time.Time
}

type DiscoveryJob struct {
	ID             string
	ScanID         string
	Platform       string
	Type           JobType
	Cursor         string
	Status         JobStatus
	Attempts       int
	MaxAttempts    int
	Error          *string
	ClaimedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	NotBefore      time.Time
	LeaseExpiresAt *time.Time
}

// RawItem is a single piece of feedback returned by a source discoverer.
// It is handed to the classification collaborator untouched.
type RawItem struct {
	Platform  string    `json:"platform"`
	SourceID  string    `json:"source_id"`
	SourceURL string    `json:"source_url"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	PostedAt  time.Time `json:"posted_at"`
}

// NewScan builds a running scan covering the given platforms. The store
// assigns the id on insert.
func NewScan(projectID, requestedBy string, platforms []string) Scan {
	m := make(map[string]PlatformStatus, len(platforms))
	for _, p := range platforms {
		m[p] = PlatformPending
	}
	return Scan{
		ProjectID:   projectID,
		RequestedBy: requestedBy,
		Status:      ScanRunning,
		Platforms:   m,
		StartedAt:   time.Now().UTC(),
	}
}

// NewDiscoveryJob builds a pending discovery job for one platform. ScanID is
// filled by the store when the scan row is created alongside it.
func NewDiscoveryJob(platform string, maxAttempts int) DiscoveryJob {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	now := time.Now().UTC()
	return DiscoveryJob{
		Platform:    platform,
		Type:        JobTypeDiscovery,
		Status:      JobPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
		NotBefore:   now,
	}
}

// NewPaginationJob builds the follow-up job for the next page of a source.
// It inherits the parent's scan, platform and retry budget.
func NewPaginationJob(parent DiscoveryJob, cursor string) DiscoveryJob {
	j := NewDiscoveryJob(parent.Platform, parent.MaxAttempts)
	j.ScanID = parent.ScanID
	j.Type = JobTypePagination
	j.Cursor = cursor
	return j
}

// PlatformStatusOf maps the latest job for a platform onto the client-facing
// per-source state: terminal statuses pass through, an untouched pending job
// reads as pending, anything in flight (leased, or pending again after a
// retryable failure) reads as running.
func PlatformStatusOf(latest DiscoveryJob) PlatformStatus {
	switch latest.Status {
	case JobComplete:
		return PlatformComplete
	case JobFailed:
		return PlatformFailed
	case JobPending:
		if latest.Attempts == 0 && latest.Type == JobTypeDiscovery {
			return PlatformPending
		}
		return PlatformRunning
	default:
		return PlatformRunning
	}
}

// DeriveScanStatus recomputes the scan-level state from its job rows:
// complete once every job is terminal and at least one succeeded, failed once
// every job is terminal and none succeeded, running otherwise. A scan with no
// jobs is never terminal.
func DeriveScanStatus(jobs []DiscoveryJob) ScanStatus {
	if len(jobs) == 0 {
		return ScanRunning
	}
	completed := 0
	for _, j := range jobs {
		if !j.Status.Terminal() {
			return ScanRunning
		}
		if j.Status == JobComplete {
			completed++
		}
	}
	if completed == 0 {
		return ScanFailed
	}
	return ScanComplete
}
