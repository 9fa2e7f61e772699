// Package workerpool runs one goroutine per accepted connection, gated by a
// threadgroup so the daemon can drain in-flight connections on shutdown
// instead of dropping them.
//
// Grounded on the teacher repo's goroutine-per-accept style (modules/
// gateway/peer.go's listen loop, modules/host/host.go's threadedListen) and
// its use of github.com/NebulousLabs/threadgroup for cooperative shutdown.
package workerpool

import (
	"net"

	"github.com/NebulousLabs/errors"
	"github.com/NebulousLabs/threadgroup"
)

// Pool accepts connections on a listener and dispatches each to handle in
// its own goroutine, tracked by an internal threadgroup.
type Pool struct {
	tg       threadgroup.ThreadGroup
	listener net.Listener
	handle   func(net.Conn)
}

// New returns a Pool that will serve ln, handing every accepted connection
// to handle.
func New(ln net.Listener, handle func(net.Conn)) *Pool {
	return &Pool{listener: ln, handle: handle}
}

// Serve accepts connections until Close is called or the listener errors.
func (p *Pool) Serve() error {
	if err := p.tg.Add(); err != nil {
		return err
	}
	defer p.tg.Done()

	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-p.tg.StopChan():
				return nil
			default:
				return errors.AddContext(err, "workerpool: accept failed")
			}
		}
		if err := p.tg.Add(); err != nil {
			conn.Close()
			return nil
		}
		go func() {
			defer p.tg.Done()
			p.handle(conn)
		}()
	}
}

// Close stops accepting new connections and blocks until every in-flight
// handler returns.
func (p *Pool) Close() error {
	p.listener.Close()
	return p.tg.Stop()
}
