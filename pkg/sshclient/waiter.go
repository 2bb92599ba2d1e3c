package sshclient

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/remotekit/sshkit/pkg/config"
	"github.com/remotekit/sshkit/pkg/logger"
)

// WaitForSSH polls until the configured host accepts TCP connections on its
// SSH port, backing off exponentially up to maxWait. The core client never
// retries on its own; this helper is for callers that want to wait out a
// host that is still booting.
func WaitForSSH(ctx context.Context, cfg *config.ClientConfig, maxWait time.Duration) error {
	log := logger.Get()
	addr := cfg.Address()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait

	attempt := 0
	probe := func() error {
		attempt++
		conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
		if err != nil {
			log.Debugf("ssh not ready on %s (attempt %d): %v", addr, attempt, err)
			return err
		}
		conn.Close()
		return nil
	}

	if err := backoff.Retry(probe, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("ssh did not become ready on %s within %s: %w", addr, maxWait, err)
	}
	log.Debugf("ssh ready on %s after %d attempts", addr, attempt)
	return nil
}
