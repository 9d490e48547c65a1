package domain

import "time"

// Property is a named value on an observation. Properties keep the order in
// which the requirement schema listed them.
type Property struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Observation is a timestamped reading for a single data item.
type Observation struct {
	DataItemID  string     `json:"data_item_id"`
	Device      string     `json:"device,omitempty"`
	Timestamp   time.Time  `json:"ts"`
	Duration    *float64   `json:"duration,omitempty"`
	Unavailable bool       `json:"unavailable,omitempty"`
	Properties  []Property `json:"properties,omitempty"`
}

// Property returns the named property if present.
func (o *Observation) Property(name string) (Value, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}

// SetProperty replaces the named property in place or appends it, keeping
// insertion order stable.
func (o *Observation) SetProperty(name string, v Value) {
	for i := range o.Properties {
		if o.Properties[i].Name == name {
			o.Properties[i].Value = v
			return
		}
	}
	o.Properties = append(o.Properties, Property{Name: name, Value: v})
}

// Value returns the VALUE property, the conventional payload field.
func (o *Observation) Value() (Value, bool) {
	return o.Property("VALUE")
}
