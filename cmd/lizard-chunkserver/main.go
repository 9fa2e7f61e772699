// Command lizard-chunkserver runs a chunkserver: it stores chunk parts on
// local disk (layout out of core per spec.md §1), serves CLTOCS_READ /
// CLTOCS_WRITE_DATA over the wire protocol, and registers itself with the
// master over CSTOMA_REGISTER, signing its claim with an ed25519 node key.
//
// Grounded on the teacher repo's cmd/siad entrypoint idiom and
// modules/host/host.go's lifecycle (New/Close, external settings), with
// go-upnp forwarding the listen port the same way the teacher's gateway
// forwards its peer port.
package main

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/NebulousLabs/go-upnp"
	"github.com/kardianos/osext"
	"github.com/spf13/cobra"

	"github.com/lizardfs/dataplane/config"
	"github.com/lizardfs/dataplane/persist"
	"github.com/lizardfs/dataplane/pkg/registry"
	"github.com/lizardfs/dataplane/pkg/wire"
	"github.com/lizardfs/dataplane/pkg/workerpool"
)

var cfgPath string

func defaultConfigPath() string {
	dir, err := osext.ExecutableFolder()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "lizard-chunkserver.json")
}

func main() {
	root := &cobra.Command{
		Use:   "lizard-chunkserver",
		Short: "Run a LizardFS chunkserver",
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

	logger, err := persist.NewFileLogger(filepath.Join(cfg.PersistDir, "chunkserver.log"), "lizard-chunkserver")
	if err != nil {
		return err
	}
	defer logger.Close()

	pub, priv, err := registry.GenerateKeyPair()
	if err != nil {
		return err
	}

	if cfg.UPnPEnabled {
		go forwardPort(logger, cfg.ListenAddress)
	}

	store := newPartStore(filepath.Join(cfg.PersistDir, "parts"))

	ln, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return err
	}

	if cfg.MasterAddress != "" {
		if err := registerWithMaster(cfg.MasterAddress, cfg.ListenAddress, pub, priv); err != nil {
			logger.Severe("registration with master failed:", err)
		} else {
			logger.Println("registered with master at " + cfg.MasterAddress)
		}
	}

	pool := workerpool.New(ln, serveChunkserver(store))
	logger.Println(fmt.Sprintf("lizard-chunkserver %x listening on %s", pub, cfg.ListenAddress))
	return pool.Serve()
}

// registerWithMaster sends CSTOMA_REGISTER (this chunkserver's address, its
// public key, and a signature over both) and waits for
// MATOCS_REGISTER_STATUS, the handshake that lets the master trust a part
// location claim back to a genuine chunkserver (pkg/registry).
func registerWithMaster(masterAddr, listenAddr string, pub registry.PublicKey, priv registry.SecretKey) error {
	conn, err := net.Dial("tcp", masterAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	sig := registry.SignRegistration(priv, listenAddr, nil)
	var buf bytes.Buffer
	if err := wire.WritePrefixedString(&buf, listenAddr); err != nil {
		return err
	}
	buf.Write(pub)
	buf.Write(sig)
	if err := wire.WriteFrame(conn, wire.Frame{Type: wire.CSTOMA_REGISTER, Body: buf.Bytes()}); err != nil {
		return err
	}

	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}
	if resp.Type != wire.MATOCS_REGISTER_STATUS || len(resp.Body) < 1 || wire.Status(resp.Body[0]) != wire.StatusOK {
		return fmt.Errorf("master rejected registration")
	}
	return nil
}

func forwardPort(logger *persist.Logger, listenAddress string) {
	_, port, err := net.SplitHostPort(listenAddress)
	if err != nil {
		logger.Severe("could not parse listen address for UPnP:", err)
		return
	}
	d, err := upnp.Discover()
	if err != nil {
		logger.Println("UPnP discovery failed, continuing without port forwarding:", err)
		return
	}
	var p uint16
	fmt.Sscanf(port, "%d", &p)
	if err := d.Forward(p, "lizard-chunkserver"); err != nil {
		logger.Println("UPnP port forward failed:", err)
		return
	}
	logger.Println("UPnP forwarded port", port)
}
