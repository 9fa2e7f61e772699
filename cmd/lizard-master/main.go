// Command lizard-master runs the master chunk-lookup daemon: the
// authoritative chunk directory (pkg/master) plus the read_chunk/
// write_chunk/write_chunk_end RPC surface (§4.6), with a status surface for
// operators via pkg/statusapi. The directory lives in memory only: the
// pkg/masterstore database is opened at startup but not read or written.
//
// Grounded on the teacher repo's cmd/siad entrypoint idiom (cobra root
// command, osext for locating the binary's own directory to default the
// config path against).
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kardianos/osext"
	"github.com/spf13/cobra"

	"github.com/lizardfs/dataplane/config"
	"github.com/lizardfs/dataplane/persist"
	"github.com/lizardfs/dataplane/pkg/master"
	"github.com/lizardfs/dataplane/pkg/masterstore"
	"github.com/lizardfs/dataplane/pkg/statusapi"
	"github.com/lizardfs/dataplane/pkg/workerpool"
)

var cfgPath string

func defaultConfigPath() string {
	dir, err := osext.ExecutableFolder()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "lizard-master.json")
}

func main() {
	root := &cobra.Command{
		Use:   "lizard-master",
		Short: "Run the LizardFS chunk-metadata master daemon",
		RunE:  run,
	}
	root.Flags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to daemon config file")
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	logger, err := persist.NewFileLogger(filepath.Join(cfg.PersistDir, "master.log"), "lizard-master")
	if err != nil {
		return err
	}
	defer logger.Close()

	store, err := masterstore.Open(filepath.Join(cfg.PersistDir, "chunks.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	dir := master.NewDirectory()
	logger.Println("chunk directory initialized")

	status := statusapi.New()
	go func() {
		logger.Println("status API listening on " + cfg.StatusAddress)
		http.ListenAndServe(cfg.StatusAddress, status)
	}()

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return err
	}
	pool := workerpool.New(ln, serveMaster(dir))
	logger.Println("lizard-master listening on " + cfg.ListenAddress)
	return pool.Serve()
}
