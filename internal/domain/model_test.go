package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, domain.JobComplete.Terminal())
	assert.True(t, domain.JobFailed.Terminal())
	assert.False(t, domain.JobPending.Terminal())
	assert.False(t, domain.JobLeased.Terminal())
}

func TestNewScan(t *testing.T) {
	scan := domain.NewScan("p1", "user-1", []string{"reddit", "twitter"})
	assert.Equal(t, domain.ScanRunning, scan.Status)
	assert.Equal(t, domain.PlatformPending, scan.Platforms["reddit"])
	assert.Equal(t, domain.PlatformPending, scan.Platforms["twitter"])
	assert.Len(t, scan.Platforms, 2)
	assert.Nil(t, scan.CompletedAt)
}

func TestNewDiscoveryJob_Defaults(t *testing.T) {
	j := domain.NewDiscoveryJob("reddit", 0)
	assert.Equal(t, domain.JobPending, j.Status)
	assert.Equal(t, domain.JobTypeDiscovery, j.Type)
	assert.Equal(t, 0, j.Attempts)
	assert.Equal(t, domain.DefaultMaxAttempts, j.MaxAttempts)
}

func TestNewPaginationJob(t *testing.T) {
	parent := domain.NewDiscoveryJob("reddit", 5)
	parent.ScanID = "scan-1"
	follow := domain.NewPaginationJob(parent, "page-2")
	assert.Equal(t, "scan-1", follow.ScanID)
	assert.Equal(t, "reddit", follow.Platform)
	assert.Equal(t, domain.JobTypePagination, follow.Type)
	assert.Equal(t, "page-2", follow.Cursor)
	assert.Equal(t, 5, follow.MaxAttempts)
	assert.Equal(t, domain.JobPending, follow.Status)
}

func TestPlatformStatusOf(t *testing.T) {
	cases := []struct {
		name string
		job  domain.DiscoveryJob
		want domain.PlatformStatus
	}{
		{"untouched pending", domain.DiscoveryJob{Status: domain.JobPending, Type: domain.JobTypeDiscovery}, domain.PlatformPending},
		{"pending after retryable failure", domain.DiscoveryJob{Status: domain.JobPending, Type: domain.JobTypeDiscovery, Attempts: 1}, domain.PlatformRunning},
		{"pending pagination follow-up", domain.DiscoveryJob{Status: domain.JobPending, Type: domain.JobTypePagination}, domain.PlatformRunning},
		{"leased", domain.DiscoveryJob{Status: domain.JobLeased}, domain.PlatformRunning},
		{"complete", domain.DiscoveryJob{Status: domain.JobComplete}, domain.PlatformComplete},
		{"failed", domain.DiscoveryJob{Status: domain.JobFailed}, domain.PlatformFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.PlatformStatusOf(tc.job))
		})
	}
}

func TestDeriveScanStatus(t *testing.T) {
	complete := domain.DiscoveryJob{Status: domain.JobComplete}
	failed := domain.DiscoveryJob{Status: domain.JobFailed}
	leased := domain.DiscoveryJob{Status: domain.JobLeased}

	assert.Equal(t, domain.ScanRunning, domain.DeriveScanStatus(nil))
	assert.Equal(t, domain.ScanRunning, domain.DeriveScanStatus([]domain.DiscoveryJob{complete, leased}))
	assert.Equal(t, domain.ScanComplete, domain.DeriveScanStatus([]domain.DiscoveryJob{complete, failed}))
	assert.Equal(t, domain.ScanComplete, domain.DeriveScanStatus([]domain.DiscoveryJob{complete}))
	assert.Equal(t, domain.ScanFailed, domain.DeriveScanStatus([]domain.DiscoveryJob{failed, failed}))
}

func TestRetryDelay(t *testing.T) {
	p := domain.RetryPolicy{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, p.RetryDelay(1))
	assert.Equal(t, 2*time.Second, p.RetryDelay(2))
	assert.Equal(t, 4*time.Second, p.RetryDelay(3))
	assert.Equal(t, 5*time.Second, p.RetryDelay(4))
	assert.Equal(t, 5*time.Second, p.RetryDelay(20))
	assert.Equal(t, time.Second, p.RetryDelay(0))

	zero := domain.RetryPolicy{}
	assert.Equal(t, time.Duration(0), zero.RetryDelay(3))
}

func TestTerminalErrors(t *testing.T) {
	base := errors.New("credentials revoked")
	err := domain.Terminal(base)
	require.Error(t, err)
	assert.True(t, domain.IsTerminal(err))
	assert.True(t, domain.IsTerminal(fmt.Errorf("discover reddit: %w", err)))
	assert.False(t, domain.IsTerminal(base))
	assert.False(t, domain.IsTerminal(nil))
	assert.ErrorIs(t, err, base)
	assert.Nil(t, domain.Terminal(nil))
}
