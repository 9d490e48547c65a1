package domain

import "time"

// Entity is the unit that flows through the WAL, queue, and sinks. Exactly one
// of Observation or Asset is set.
type Entity struct {
	Observation *Observation  `json:"observation,omitempty"`
	Asset       *AssetCommand `json:"asset,omitempty"`
}

func NewObservationEntity(o *Observation) *Entity { return &Entity{Observation: o} }
func NewAssetEntity(a *AssetCommand) *Entity      { return &Entity{Asset: a} }

func (e *Entity) IsObservation() bool { return e.Observation != nil }
func (e *Entity) IsAsset() bool       { return e.Asset != nil }

// Timestamp returns the instant the entity was observed.
func (e *Entity) Timestamp() time.Time {
	if e.Observation != nil {
		return e.Observation.Timestamp
	}
	if e.Asset != nil {
		return e.Asset.Timestamp
	}
	return time.Time{}
}

// Key identifies the entity for logging and routing: the data item for
// observations, the asset id (or command kind) for asset commands.
func (e *Entity) Key() string {
	if e.Observation != nil {
		return e.Observation.DataItemID
	}
	if e.Asset != nil {
		if e.Asset.AssetID != "" {
			return e.Asset.AssetID
		}
		return string(e.Asset.Kind)
	}
	return ""
}
