// Command knock-sensor mirrors a touch sensor onto an LED, reports every
// change and recorded knock pattern over serial, and publishes them to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/knock-sensor/internal/gpio"
	"github.com/sweeney/knock-sensor/internal/logic"
	"github.com/sweeney/knock-sensor/internal/mqtt"
	"github.com/sweeney/knock-sensor/internal/protocol"
	"github.com/sweeney/knock-sensor/internal/serial"
	"github.com/sweeney/knock-sensor/internal/status"
	"github.com/sweeney/knock-sensor/internal/web"
)

type config struct {
	poll       time.Duration
	serialDev  string
	banner     bool
	broker     string
	heartbeat  time.Duration
	pinTouch   int
	pinLED     int
	printState bool
	httpAddr   string
}

func main() {
	var cfg config
	flag.DurationVar(&cfg.poll, "poll", time.Millisecond, "Sensor polling interval")
	flag.StringVar(&cfg.serialDev, "serial", "", "Serial device for protocol output (empty for stdout)")
	flag.BoolVar(&cfg.banner, "banner", true, "Write the ready banner at startup")
	flag.StringVar(&cfg.broker, "broker", "tcp://localhost:1883", "MQTT broker address (empty to disable)")
	flag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&cfg.pinTouch, "pin-touch", gpio.DefaultPinTouch, "BCM pin number for the touch sensor")
	flag.IntVar(&cfg.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number for the LED")
	flag.BoolVar(&cfg.printState, "print-state", false, "Print current touch state and exit")
	flag.StringVar(&cfg.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")

	flag.Parse()

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config) error {
	// Initialize GPIO
	pins, err := gpio.NewRealPins(cfg.pinTouch, cfg.pinLED)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	// Print state mode
	if cfg.printState {
		touch, err := pins.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("Touch: %s\n", protocol.FormatState(touch))
		return nil
	}

	// Serial output, mirrored to the live web feed
	var port serial.LineWriter = serial.NewStreamWriter(os.Stdout)
	if cfg.serialDev != "" {
		p, err := serial.OpenPort(cfg.serialDev)
		if err != nil {
			return err
		}
		defer p.Close()
		port = p
		log.Printf("serial: writing to %s at %d baud", p.Name(), protocol.Baud)
	}
	out := serial.Tee{port}
	var feed *web.Feed
	if cfg.httpAddr != "" {
		feed = web.NewFeed()
		out = append(out, feed)
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.broker, "knock-sensor")
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	} else {
		log.Printf("mqtt: no broker configured, publishing disabled")
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.poll.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Broker:      cfg.broker,
		HTTPPort:    cfg.httpAddr,
		Serial:      cfg.serialDev,
		PinTouch:    cfg.pinTouch,
		PinLED:      cfg.pinLED,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	updateMQTT(tracker, publisher)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, feed)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.httpAddr)
	}

	if cfg.banner {
		if err := out.WriteLine(protocol.Banner); err != nil {
			log.Printf("serial write error: %v", err)
		}
	}

	log.Printf("started: poll=%v quiet=%v capacity=%d broker=%s heartbeat=%v",
		cfg.poll, logic.QuietPeriod, logic.Capacity, cfg.broker, cfg.heartbeat)

	ticker := time.NewTicker(cfg.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(pins, pins, out, publisher, publisher, tracker, cfg.heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(reader gpio.TouchReader, led gpio.LED, out serial.LineWriter, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	bridge := logic.NewBridge(startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					updateMQTT(tracker, mqttStatus)
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			touch, err := reader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			res := bridge.Process(logic.Input{
				Touch: touch,
				Time:  t,
			})

			if err := led.Set(res.LED); err != nil {
				log.Printf("led write error: %v", err)
			}

			// Serial first: it is the latency-sensitive path.
			for _, line := range protocol.Lines(res.Events) {
				if err := out.WriteLine(line); err != nil {
					log.Printf("serial write error: %v", err)
				}
			}

			for _, event := range res.Events {
				if event.Type == logic.EventPattern {
					log.Printf("event: %s intervals=%d reason=%s", event.Type, len(event.Intervals), event.Reason)
					if tracker != nil {
						tracker.RecordPattern(event)
					}
				} else {
					log.Printf("event: %s", event.Type)
				}
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Check for heartbeat
			if hbData := bridge.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v touch_on=%d touch_off=%d patterns=%d overflows=%d",
					hbData.Uptime, hbData.Counts.TouchOn, hbData.Counts.TouchOff, hbData.Counts.Patterns, hbData.Counts.Overflows)
				if mqttStatus != nil {
					if n := mqttStatus.Queued(); n > 0 {
						log.Printf("heartbeat: %d mqtt messages waiting for the broker", n)
					}
				}

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						updateMQTT(tracker, mqttStatus)
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					updateTracker(tracker, bridge)
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				updateTracker(tracker, bridge)
				if mqttStatus != nil {
					updateMQTT(tracker, mqttStatus)
				}
			}
		}
	}
}

func updateMQTT(tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus) {
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	tracker.SetMQTTQueued(mqttStatus.Queued())
}

func updateTracker(tracker *status.Tracker, bridge *logic.Bridge) {
	tracker.Update(bridge.CurrentState(), bridge.Recording(), bridge.Pending(), bridge.EventCountsSnapshot())
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
