package session

import (
	"encoding/json"

	"questboard/internal/model"
)

// Standing is the points/level pair shown for a user.
type Standing struct {
	TotalPoints int `json:"total_points"`
	Level       int `json:"level"`
}

// StandingOf reads the stored pair off a user row.
func StandingOf(user *model.User) Standing {
	if user == nil {
		return Standing{Level: 1}
	}
	return Standing{TotalPoints: user.TotalPoints, Level: user.Level}
}

// DisplayState decides which standing the current user sees. It is either
// Synced (store values are shown) or Overridden (values computed by the last
// completion are shown until the store catches up).
type DisplayState struct {
	override *Standing
}

// Override enters the Overridden state with the given pair.
func (d *DisplayState) Override(s Standing) {
	held := s
	d.override = &held
}

// Overridden returns the held pair when an override is active.
func (d DisplayState) Overridden() (Standing, bool) {
	if d.override == nil {
		return Standing{}, false
	}
	return *d.override, true
}

// Reconcile compares a fresh store read with the held pair and returns to
// Synced only on an exact match. It reports whether the state changed.
func (d *DisplayState) Reconcile(store Standing) bool {
	if d.override == nil || *d.override != store {
		return false
	}
	d.override = nil
	return true
}

// Resolve returns the pair to display. While Overridden the held pair wins;
// while Synced a store total that lags the points history is replaced by the
// history value with its level rederived.
func (d DisplayState) Resolve(store Standing, historyCumulative int) Standing {
	if held, ok := d.Overridden(); ok {
		return held
	}
	if store.TotalPoints < historyCumulative {
		return Standing{TotalPoints: historyCumulative, Level: model.LevelFor(historyCumulative)}
	}
	return store
}

type displayJSON struct {
	Override *Standing `json:"override"`
}

func (d DisplayState) MarshalJSON() ([]byte, error) {
	return json.Marshal(displayJSON{Override: d.override})
}

func (d *DisplayState) UnmarshalJSON(data []byte) error {
	var raw displayJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.override = raw.Override
	return nil
}
