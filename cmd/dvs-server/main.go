// Command dvs-server runs on the camera sidecar. It listens for control
// connections and starts or stops the event-camera capture process on
// request; the most recent connection always wins.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/durin-robotics/durin/internal/config"
	"github.com/durin-robotics/durin/internal/dvs"
)

var (
	port   = flag.Int("port", config.DefaultDVSPort, "Control listen port")
	device = flag.String("device", "", "Capture device passed to aestream")
	nop    = flag.Bool("nop", false, "Run without camera hardware (control plane only)")
)

func main() {
	flag.Parse()

	var streamer dvs.Streamer
	if *nop {
		streamer = &dvs.NopStreamer{}
		log.Print("running with no-op streamer")
	} else {
		var err error
		streamer, err = dvs.NewAEStreamer(*device)
		if err != nil {
			// Missing capture tooling degrades to a warning; the control
			// plane stays reachable either way.
			log.Printf("warning: %v, falling back to no-op streamer", err)
			streamer = &dvs.NopStreamer{}
		}
	}

	srv, err := dvs.NewServer(*port, streamer)
	if err != nil {
		log.Fatalf("failed to start control server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %v, shutting down", sig)
		srv.Close()
	}()

	if err := srv.Serve(); err != nil {
		log.Printf("control server exited: %v", err)
	}
}
