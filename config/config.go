// Package config loads and stamps daemon configuration, the same way the
// teacher repo's siad handles its config.json: a flat struct loaded from
// JSON, stamped with a persist.Metadata header so a config file written by
// an incompatible version is refused at startup rather than silently
// misread.
package config

import "github.com/lizardfs/dataplane/persist"

// Metadata identifies the on-disk config format.
var Metadata = persist.Metadata{
	Header:  "Lizard Data Plane Config",
	Version: "1.0",
}

// Daemon is shared by both the master and chunkserver entrypoints.
type Daemon struct {
	ListenAddress string
	StatusAddress string
	PersistDir    string

	// MasterAddress is only meaningful for chunkserver/client daemons.
	MasterAddress string

	// UPnPEnabled mirrors the teacher repo's gateway port-forwarding
	// toggle, now applied to a chunkserver's listen port rather than a
	// gateway's.
	UPnPEnabled bool
}

// DefaultDaemon returns baseline settings new daemons start from.
func DefaultDaemon() Daemon {
	return Daemon{
		ListenAddress: ":9422",
		StatusAddress: ":9425",
		PersistDir:    "~/.lizard-dataplane",
		UPnPEnabled:   true,
	}
}

// Load reads a Daemon config from path, falling back to DefaultDaemon
// fields left unset should the file not exist.
func Load(path string) (Daemon, error) {
	d := DefaultDaemon()
	err := persist.LoadJSON(Metadata, &d, path)
	return d, err
}

// Save stamps and writes d to path.
func Save(d Daemon, path string) error {
	return persist.SaveJSON(Metadata, d, path)
}
