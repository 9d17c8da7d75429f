package client

import (
	"context"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// dialTimeout bounds a single connect attempt.
const dialTimeout = 5 * time.Second

// maxDialElapsed bounds the whole retry loop: a server that never comes up
// should fail the command rather than hang it forever.
const maxDialElapsed = 10 * time.Second

// dial connects to addr, retrying with bounded exponential backoff. This
// absorbs the narrow race between `start` spawning the daemon and the
// daemon's listener becoming ready; it is not a substitute for the
// per-request timeout every operation still applies once connected.
func dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer

	var conn net.Conn
	op := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		c, err := d.DialContext(dialCtx, "tcp", addr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxDialElapsed
	bctx := backoff.WithContext(b, ctx)

	if err := backoff.Retry(op, bctx); err != nil {
		return nil, errors.Wrapf(err, "connect to %v", addr)
	}
	return conn, nil
}
