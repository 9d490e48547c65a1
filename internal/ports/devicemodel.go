package ports

import "github.com/masonhieb/shdredge/internal/domain"

// DataItemResolver looks up data items in the device model. The mapper
// re-resolves on every frame so a device-model reload takes effect without
// restarting the connector.
type DataItemResolver interface {
	ResolveDataItem(device, key string) (*domain.DataItem, bool)
	ResolveDevice(prefix string) string
}

// AssetParser turns the XML body of an @ASSET@ command into a document.
type AssetParser interface {
	Parse(body string) (*domain.AssetDocument, error)
}
