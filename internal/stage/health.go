package stage

import "sort"

// Health summarizes whether a workflow stage can run. A ready stage may still
// carry Detail when it runs with reduced output.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// States reported by Health.State.
const (
	StateReady       = "ready"
	StateDegraded    = "degraded"
	StateUnavailable = "unavailable"
)

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// Degraded marks a stage that still runs but produces less, such as
// narration without a TTS key.
func Degraded(name, detail string) Health {
	return Health{Name: name, Ready: true, Detail: detail}
}

// State classifies h for display.
func (h Health) State() string {
	switch {
	case !h.Ready:
		return StateUnavailable
	case h.Detail != "":
		return StateDegraded
	default:
		return StateReady
	}
}

// AllReady reports whether every stage can run. Degraded stages count as ready.
func AllReady(health map[string]Health) bool {
	for _, h := range health {
		if !h.Ready {
			return false
		}
	}
	return true
}

// Sorted orders stage reports by name. A report without a Name takes its key.
func Sorted(health map[string]Health) []Health {
	if len(health) == 0 {
		return nil
	}
	out := make([]Health, 0, len(health))
	for key, h := range health {
		if h.Name == "" {
			h.Name = key
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
