package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/sims-enrollment-api/pkg/cache"
	appErrors "github.com/noah-isme/sims-enrollment-api/pkg/errors"
)

const defaultLockTTL = 30 * time.Second

func assignLockKey(courseID, semester, academicYear string) string {
	return fmt.Sprintf("assign:%s:%s:%s", courseID, semester, academicYear)
}

func sectionLockKey(semester, academicYear string, day int) string {
	return fmt.Sprintf("sections:%s:%s:%d", semester, academicYear, day)
}

// withWriteLock runs fn while holding key. A held key fails fast with ErrLockBusy.
func withWriteLock(ctx context.Context, locker cache.Locker, key string, ttl time.Duration, metrics *MetricsService, scope string, fn func() error) error {
	release, err := locker.Acquire(ctx, key, ttl)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			metrics.RecordLockBusy(scope)
			return appErrors.Clone(appErrors.ErrLockBusy, fmt.Sprintf("another %s batch is in progress, retry later", scope))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	defer release()
	return fn()
}
