// Command durin is the host-side control and telemetry client for the
// Durin robot. It opens the TCP command channel and the UDP telemetry
// channel, asks the robot to stream telemetry back to this host, and
// periodically logs (and optionally records) observation snapshots until
// interrupted.
package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/durin-robotics/durin/internal/actuator"
	"github.com/durin-robotics/durin/internal/config"
	"github.com/durin-robotics/durin/internal/db"
	"github.com/durin-robotics/durin/internal/link"
	"github.com/durin-robotics/durin/internal/sensor"
	"github.com/durin-robotics/durin/internal/wire"
)

var (
	robotHost  = flag.String("robot", "", "Robot address (required)")
	configPath = flag.String("config", "", "Optional JSON config file")
	dbFile     = flag.String("db", "", "Record observations to this sqlite file")
	interval   = flag.Duration("interval", time.Second, "Observation log interval")
	period     = flag.Uint("period", 50, "Telemetry stream period in milliseconds")
)

// localIP guesses the address the robot should stream back to, by routing
// towards the robot without sending anything.
func localIP(robot string) string {
	conn, err := net.Dial("udp", net.JoinHostPort(robot, "1"))
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func main() {
	flag.Parse()

	if *robotHost == "" {
		log.Fatal("robot address is required (-robot)")
	}

	cfg := &config.Config{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	tcp, err := link.NewTCPLink(link.TCPConfig{
		Host:         *robotHost,
		Port:         cfg.GetRobotPort(),
		SendQueueCap: cfg.GetSendQueueCap(),
		RecvQueueCap: cfg.GetRecvQueueCap(),
	})
	if err != nil {
		log.Fatalf("failed to connect to robot: %v", err)
	}
	defer tcp.Stop()

	udp, err := link.NewUDPLink(link.UDPConfig{
		Port:     cfg.GetTelemetryPort(),
		QueueCap: cfg.GetTelemetryQueueCap(),
	})
	if err != nil {
		log.Fatalf("failed to bind telemetry port: %v", err)
	}
	defer udp.Stop()

	sens := sensor.New(udp.Queue(), sensor.Config{
		RingCapacity: cfg.GetRingCapacity(),
		Epsilon:      cfg.GetEpsilon(),
	})
	act := actuator.New(tcp, cfg.GetSendTimeout())

	var store *db.DB
	if *dbFile != "" {
		store, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open observation store: %v", err)
		}
		defer store.Close()
	}

	tcp.Start()
	udp.Start()
	sens.Start()
	defer sens.Stop()

	// Point the robot's telemetry stream back at us.
	streamTo := localIP(*robotHost)
	act.Do(wire.StreamOn{Host: streamTo, Port: uint16(udp.LocalPort()), Period: uint16(*period)})
	log.Printf("requested telemetry stream to %s:%d every %dms", streamTo, udp.LocalPort(), *period)
	defer act.Do(wire.StreamOff{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			log.Printf("received %v, shutting down", sig)
			return
		case <-ticker.C:
			obs := sens.Read()
			received, malformed := udp.Stats()
			log.Printf("charge=%.1f%% voltage=%.2fV freq=%.1fHz packets=%d malformed=%d",
				obs.Charge, obs.Voltage, obs.UpdateFrequency, received, malformed)
			if store != nil {
				if err := store.RecordObservation(obs); err != nil {
					log.Printf("failed to record observation: %v", err)
				}
			}
		}
	}
}
