// Command knock-monitor reads the bridge's serial protocol on the host side
// of the link and republishes touches and knock patterns to MQTT.
// Use it with boards running knock-firmware, which have no network of their own.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/knock-sensor/internal/mqtt"
	"github.com/sweeney/knock-sensor/internal/protocol"
	"github.com/sweeney/knock-sensor/internal/serial"
)

func main() {
	serialDev := flag.String("serial", "", "Serial device the bridge is attached to (required)")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address (empty to only log)")

	flag.Parse()

	if *serialDev == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*serialDev, *broker); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(serialDev, broker string) error {
	port, err := serial.OpenPort(serialDev)
	if err != nil {
		return err
	}
	defer port.Close()

	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	if broker != "" {
		p, err := mqtt.NewRealPublisher(broker, "knock-monitor")
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	log.Printf("started: serial=%s baud=%d broker=%s", port.Name(), protocol.Baud, broker)

	lines := make(chan string, 16)
	go func() {
		if err := scanLines(port, lines); err != nil {
			log.Printf("monitor: read error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return monitorLoop(lines, publisher, time.Now, sigCh)
}

// scanLines sends each line read from r to lines, then closes lines.
// A closed port ends the stream without error.
func scanLines(r io.Reader, lines chan<- string) error {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("scan serial: %w", err)
	}
	return nil
}

// monitorLoop publishes an event for every state or pattern line until the
// stream ends or a signal arrives. Events are stamped on receipt.
func monitorLoop(lines <-chan string, publisher mqtt.Publisher, now func() time.Time, sig <-chan os.Signal) error {
	var patterns int
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down after %d patterns", s, patterns)
			return nil

		case line, ok := <-lines:
			if !ok {
				log.Printf("monitor: serial stream ended after %d patterns", patterns)
				return nil
			}

			msg, err := protocol.ParseLine(line)
			if err != nil {
				log.Printf("monitor: skipping line %q: %v", line, err)
				continue
			}

			event, ok := msg.Event(now())
			if !ok {
				if msg.Text == protocol.Banner {
					log.Printf("monitor: bridge ready")
				} else if msg.Text != "" {
					log.Printf("monitor: %s", msg.Text)
				}
				continue
			}

			if msg.Kind == protocol.KindPattern {
				patterns++
				log.Printf("event: %s intervals=%v", event.Type, msg.Intervals)
			} else {
				log.Printf("event: %s", event.Type)
			}
			if err := publisher.Publish(event); err != nil {
				log.Printf("publish error: %v", err)
			}
		}
	}
}
