package models

// EndpointStatus tracks device node presence apart from session health.
type EndpointStatus struct {
	Present bool `json:"present"`
	Open    bool `json:"open"`
}

// Connected is true only while the node exists and a session is open.
func (s EndpointStatus) Connected() bool { return s.Present && s.Open }

// ConnectionStatus is the flattened indicator map sent to observers.
type ConnectionStatus map[string]bool

// Equal reports whether both maps hold the same flags.
func (c ConnectionStatus) Equal(other ConnectionStatus) bool {
	if len(c) != len(other) {
		return false
	}
	for k, v := range c {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
