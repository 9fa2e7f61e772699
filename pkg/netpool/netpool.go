// Package netpool is the process-wide, address-keyed chunkserver connection
// pool named in §5's "Shared-resource policy": "A connection in use by one
// operation is not shared." It multiplexes many logical streams over one
// pooled TCP connection per chunkserver via smux, replacing the teacher
// repo's gateway peer-dialing (modules/gateway/peer.go, which used muxado)
// with its direct successor library.
package netpool

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/NebulousLabs/errors"
	"github.com/xtaci/smux"
)

// Pool dials and multiplexes connections to chunkservers, keyed by address.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*smux.Session
	dialer   net.Dialer
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{sessions: map[string]*smux.Session{}}
}

// Stream returns a fresh multiplexed stream to address, dialing and
// establishing an smux session on first use and reusing it afterward. A
// stream returned here is never handed out to a second concurrent caller,
// matching §5's "not shared" rule.
func (p *Pool) Stream(ctx context.Context, address string) (net.Conn, error) {
	sess, err := p.sessionFor(ctx, address)
	if err != nil {
		return nil, err
	}
	stream, err := sess.OpenStream()
	if err != nil {
		// The session may have died between Get and OpenStream; drop it
		// and let the caller retry, which will redial.
		p.mu.Lock()
		if p.sessions[address] == sess {
			delete(p.sessions, address)
		}
		p.mu.Unlock()
		return nil, errors.AddContext(err, "netpool: could not open stream")
	}
	return stream, nil
}

func (p *Pool) sessionFor(ctx context.Context, address string) (*smux.Session, error) {
	p.mu.Lock()
	if sess, ok := p.sessions[address]; ok && !sess.IsClosed() {
		p.mu.Unlock()
		return sess, nil
	}
	p.mu.Unlock()

	conn, err := p.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.AddContext(err, "netpool: dial failed")
	}
	cfg := smux.DefaultConfig()
	cfg.KeepAliveInterval = 10 * time.Second
	sess, err := smux.Client(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, errors.AddContext(err, "netpool: smux handshake failed")
	}

	p.mu.Lock()
	p.sessions[address] = sess
	p.mu.Unlock()
	return sess, nil
}

// Close tears down every pooled session.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for addr, sess := range p.sessions {
		if err := sess.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.sessions, addr)
	}
	return errors.Compose(errs...)
}
