// Package publisher pushes hotspot warning events onto NATS for downstream
// consumers (dashboards, alert review tools). Publishing is optional; the
// data products in the database remain the system of record.
package publisher

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type HotspotPublisher struct {
	nc      *nats.Conn
	stream  string
	metrics PublisherMetrics
}

type PublisherMetrics interface {
	EventPublishedInc()
	EventPublishErrInc()
	SetConnected(connected bool)
}

func NewHotspotPublisher(url, stream string, m PublisherMetrics) (*HotspotPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("transit-safety-etl"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Printf("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Printf("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Printf("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.SetConnected(true)
	}
	return &HotspotPublisher{nc: nc, stream: stream, metrics: m}, nil
}

func (p *HotspotPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// HotspotEvent is the wire form of one hotspot product row.
type HotspotEvent struct {
	RouteName   string    `json:"routeName"`
	RouteID     int       `json:"routeId"`
	Heading     string    `json:"heading"`
	DriverID    int       `json:"driverId"`
	VehicleID   int       `json:"vehicleId"`
	BusNumber   int       `json:"busNumber"`
	LocTime     time.Time `json:"locTime"`
	WarningName string    `json:"warningName"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
}

// PublishHotspot publishes one event on <stream>.hotspot.<route>.<bus>.
func (p *HotspotPublisher) PublishHotspot(ev HotspotEvent) error {
	subject := fmt.Sprintf("%s.hotspot.%s.%d",
		p.stream, subjectToken(ev.RouteName), ev.BusNumber)
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.EventPublishErrInc()
		} else {
			p.metrics.EventPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
