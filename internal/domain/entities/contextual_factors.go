package entities

import "strconv"

// ContextualFactors is a sparse record of the situation a selection or
// feedback event happened in. It has no identity of its own; it is hashed
// into a context key and used to weight rewards.
type ContextualFactors struct {
	UserType            string   `json:"user_type,omitempty"`
	TimeOfDay           string   `json:"time_of_day,omitempty"`
	Season              string   `json:"season,omitempty"`
	DeviceType          string   `json:"device_type,omitempty"`
	SessionDuration     *float64 `json:"session_duration,omitempty"`
	InteractionVelocity *float64 `json:"interaction_velocity,omitempty"`
	MoodIndicators      string   `json:"mood_indicators,omitempty"`
	Occasion            string   `json:"occasion,omitempty"`
	LocationType        string   `json:"location_type,omitempty"`
}

// Fields returns the present (non-empty, non-nil) factors as canonical
// string key/value pairs. Field order never matters to callers: the map is
// consumed through sorted keys.
func (f ContextualFactors) Fields() map[string]string {
	fields := make(map[string]string)

	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}

	put("user_type", f.UserType)
	put("time_of_day", f.TimeOfDay)
	put("season", f.Season)
	put("device_type", f.DeviceType)
	put("mood_indicators", f.MoodIndicators)
	put("occasion", f.Occasion)
	put("location_type", f.LocationType)

	if f.SessionDuration != nil {
		fields["session_duration"] = strconv.FormatFloat(*f.SessionDuration, 'f', -1, 64)
	}
	if f.InteractionVelocity != nil {
		fields["interaction_velocity"] = strconv.FormatFloat(*f.InteractionVelocity, 'f', -1, 64)
	}

	return fields
}
