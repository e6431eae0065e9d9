// internal/writer/builder.go
package writer

import (
	"errors"
	"fmt"
	"time"

	cfg "github.com/tamzrod/seesaw-poller/internal/config"
	"github.com/tamzrod/seesaw-poller/internal/writer/ingest"
	wmodbus "github.com/tamzrod/seesaw-poller/internal/writer/modbus"
)

// BuildPlan converts one channel and the configured targets into a write Plan.
// Assumes config has already passed validation and normalization.
// A channel without a slot is not mirrored and gets an empty plan.
func BuildPlan(ch cfg.ChannelConfig, targets []cfg.TargetConfig) (Plan, error) {
	if ch.ID == "" {
		return Plan{}, errors.New("writer: channel.id required")
	}

	plan := Plan{ChannelID: ch.ID}
	if ch.Slot == nil {
		return plan, nil
	}
	slot := *ch.Slot

	name := ch.DeviceName
	if name == "" {
		name = ch.ID
	}

	for _, t := range targets {
		plan.Targets = append(plan.Targets, TargetEndpoint{
			TargetID: t.ID,
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Address:  t.BaseAddress + slot*2,
		})

		if t.StatusUnitID != nil {
			plan.Status = append(plan.Status, StatusPlan{
				Endpoint:   t.Endpoint,
				UnitID:     *t.StatusUnitID,
				BaseSlot:   slot,
				DeviceName: name,
			})
		}
	}

	return plan, nil
}

// BuildEndpointClients creates one client per unique endpoint.
// Nothing is dialed here; clients connect on first write.
func BuildEndpointClients(targets []cfg.TargetConfig) (map[string]EndpointClient, func() error, error) {
	clients := make(map[string]EndpointClient)
	var closers []func() error

	closeAll := func() error {
		var errs []error
		for _, fn := range closers {
			if err := fn(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for _, t := range targets {
		if _, ok := clients[t.Endpoint]; ok {
			continue
		}

		ep, err := cfg.ParseEndpoint(t.Endpoint)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("target %d: %w", t.ID, err)
		}
		timeout := time.Duration(t.TimeoutMs) * time.Millisecond

		switch ep.Scheme {
		case cfg.SchemeTCP:
			c, err := wmodbus.NewTCPClient(wmodbus.Config{Endpoint: ep.Address, Timeout: timeout})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			clients[t.Endpoint] = c
			closers = append(closers, c.Close)

		case cfg.SchemeRTU:
			c, err := wmodbus.NewRTUClient(wmodbus.Config{Endpoint: ep.Address, Baud: ep.Baud, Timeout: timeout})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			clients[t.Endpoint] = c
			closers = append(closers, c.Close)

		case cfg.SchemeIngest:
			c, err := ingest.NewEndpointClient(ingest.Config{Endpoint: ep.Address, Timeout: timeout})
			if err != nil {
				_ = closeAll()
				return nil, nil, err
			}
			clients[t.Endpoint] = c
			closers = append(closers, c.Close)
		}
	}

	return clients, closeAll, nil
}
