package dispatcher

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sairevanth-zz/signalsloop-sub011/internal/domain"
)

// LoggingClassifier stands in when no classification queue is configured.
// Replace with the Redis-backed queue in real deployments.
type LoggingClassifier struct {
	Log *logrus.Logger
}

func (c LoggingClassifier) Classify(ctx context.Context, scanID string, items []domain.RawItem) error {
	c.Log.WithFields(logrus.Fields{"scan_id": scanID, "items": len(items)}).Info("classification skipped, no queue configured")
	return nil
}
