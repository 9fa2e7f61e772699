// Package persist handles storing and loading data generated by the chunk
// data plane's daemons, the same way NebulousLabs/Sia's persist package
// handles siad's on-disk state: every persisted file carries a Metadata
// header stamping its own format identity, so loaders can refuse to read a
// file written by an incompatible version.
package persist

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/NebulousLabs/errors"
)

// Metadata contains the header and version of the data being stored.
type Metadata struct {
	Header  string
	Version string
}

var (
	// ErrBadHeader indicates that the file opened is not the file that was
	// expected.
	ErrBadHeader = errors.New("wrong header")

	// ErrBadVersion indicates that the version number of the file is not
	// compatible with the current code.
	ErrBadVersion = errors.New("incompatible version")
)

// persistFile mirrors the on-disk envelope: a Metadata header followed by
// the caller's data under the "Data" key.
type persistFile struct {
	Metadata
	Data json.RawMessage
}

// SaveJSON writes json-encoded data to a file, stamped with the given
// metadata header and version.
func SaveJSON(meta Metadata, data interface{}, filename string) error {
	encData, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return errors.AddContext(err, "failed to marshal data")
	}
	pf := persistFile{Metadata: meta, Data: encData}
	buf, err := json.MarshalIndent(pf, "", "\t")
	if err != nil {
		return errors.AddContext(err, "failed to marshal persist envelope")
	}
	return ioutil.WriteFile(filename, buf, 0600)
}

// LoadJSON loads json-encoded data from a file, checking that the header
// and version match what the caller expects before decoding into data.
func LoadJSON(meta Metadata, data interface{}, filename string) error {
	buf, err := ioutil.ReadFile(filename)
	if os.IsNotExist(err) {
		return err
	} else if err != nil {
		return errors.AddContext(err, "failed to read persist file")
	}

	var pf persistFile
	if err := json.Unmarshal(buf, &pf); err != nil {
		return errors.AddContext(err, "failed to parse persist envelope")
	}
	if pf.Header != meta.Header {
		return ErrBadHeader
	}
	if pf.Version != meta.Version {
		return ErrBadVersion
	}
	return json.Unmarshal(pf.Data, data)
}
