// Package panel defines the detail panel contract. The engine drives it;
// concrete UI implementations live outside this module.
package panel

import (
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/pkg/feed"
)

// DetailPanel is the read-only surface showing the selected entity's full
// state: static vessel attributes, live readouts and replayed history.
type DetailPanel interface {
	// ShowVessel opens the panel on a vessel with its static attributes
	// and current state.
	ShowVessel(info feed.VesselInfo, st core.EntityState)

	// ShowSensor opens the panel on a sensor with its capability tags and
	// latest raw payload.
	ShowSensor(id string, types []string, raw string)

	// ShowHistorySample mirrors one replayed record into the readouts.
	ShowHistorySample(identity string, sample core.HistorySample, index, total int)

	// ShowError surfaces a failed history fetch with a retry affordance.
	ShowError(identity string, message string)

	// Hide closes the panel.
	Hide()
}

// SinkAdapter bridges a DetailPanel onto the playback sample stream.
type SinkAdapter struct {
	Panel DetailPanel
}

// OnSample forwards a replayed record to the panel.
func (a SinkAdapter) OnSample(identity string, sample core.HistorySample, index, total int) {
	if a.Panel != nil {
		a.Panel.ShowHistorySample(identity, sample, index, total)
	}
}
