package domain

import "time"

// AssetCommandKind distinguishes the asset lifecycle commands an adapter can send.
type AssetCommandKind string

const (
	AssetDefinition AssetCommandKind = "definition"
	AssetRemoveAll  AssetCommandKind = "remove_all"
	AssetRemoveOne  AssetCommandKind = "remove_asset"
)

// AssetDocument is the parsed form of an @ASSET@ XML body.
type AssetDocument struct {
	AssetID string `json:"asset_id,omitempty"`
	Type    string `json:"type,omitempty"`
	Root    string `json:"root"`
	Raw     string `json:"raw"`
}

// AssetCommand is an asset lifecycle change received from an adapter.
type AssetCommand struct {
	Kind      AssetCommandKind `json:"kind"`
	AssetID   string           `json:"asset_id,omitempty"`
	AssetType string           `json:"asset_type,omitempty"`
	Body      string           `json:"body,omitempty"`
	Timestamp time.Time        `json:"ts"`
	Document  *AssetDocument   `json:"document,omitempty"`
}
