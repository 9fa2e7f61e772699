package modules

import "github.com/NebulousLabs/errors"

// ErrChunkserverFault is extended onto errors that originate on the
// chunkserver side of a read or write (a bad CRC, a missing part, a stale
// chunk version) so that callers can tell them apart from client-side or
// master-side faults.
var ErrChunkserverFault = errors.New("")

// IsChunkserverFault indicates if a returned error is the chunkserver's
// fault.
func IsChunkserverFault(err error) bool {
	return errors.Contains(err, ErrChunkserverFault)
}
