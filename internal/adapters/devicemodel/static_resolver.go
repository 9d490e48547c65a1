package devicemodel

import (
	"fmt"
	"sync"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// ItemConfig is the YAML shape of one data item dictionary entry.
type ItemConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Device   string `yaml:"device"`
	Category string `yaml:"category"`

	TimeSeries   bool `yaml:"time_series"`
	ThreeSpace   bool `yaml:"three_space"`
	Message      bool `yaml:"message"`
	Alarm        bool `yaml:"alarm"`
	DataSet      bool `yaml:"data_set"`
	Table        bool `yaml:"table"`
	AssetChanged bool `yaml:"asset_changed"`
	AssetRemoved bool `yaml:"asset_removed"`
	ResetTrigger bool `yaml:"reset_trigger"`
}

func (ic ItemConfig) toDataItem() (*domain.DataItem, error) {
	if ic.ID == "" && ic.Name == "" {
		return nil, fmt.Errorf("data item needs an id or a name")
	}
	cat := domain.CategoryEvent
	if ic.Category != "" {
		parsed, err := domain.ParseCategory(ic.Category)
		if err != nil {
			return nil, err
		}
		cat = parsed
	}
	id := ic.ID
	if id == "" {
		id = ic.Name
	}
	return &domain.DataItem{
		ID:           id,
		Name:         ic.Name,
		Device:       ic.Device,
		Category:     cat,
		TimeSeries:   ic.TimeSeries,
		ThreeSpace:   ic.ThreeSpace,
		Message:      ic.Message,
		Alarm:        ic.Alarm,
		DataSet:      ic.DataSet,
		Table:        ic.Table,
		AssetChanged: ic.AssetChanged,
		AssetRemoved: ic.AssetRemoved,
		ResetTrigger: ic.ResetTrigger,
	}, nil
}

// StaticResolver serves data item lookups from an in-memory dictionary.
// Replace swaps the whole dictionary, so a config reload is a single
// pointer-sized critical section for readers.
type StaticResolver struct {
	mu      sync.RWMutex
	byKey   map[string]*domain.DataItem
	aliases map[string]string
}

// NewStaticResolver builds a resolver from dictionary entries. Items are
// addressable by ID and, when set, by Name.
func NewStaticResolver(items []ItemConfig, deviceAliases map[string]string) (*StaticResolver, error) {
	r := &StaticResolver{aliases: deviceAliases}
	if err := r.Replace(items); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *StaticResolver) Replace(items []ItemConfig) error {
	byKey := make(map[string]*domain.DataItem, len(items)*2)
	for _, ic := range items {
		di, err := ic.toDataItem()
		if err != nil {
			return err
		}
		byKey[indexKey(di.Device, di.ID)] = di
		if di.Name != "" && di.Name != di.ID {
			byKey[indexKey(di.Device, di.Name)] = di
		}
	}

	r.mu.Lock()
	r.byKey = byKey
	r.mu.Unlock()
	return nil
}

func (r *StaticResolver) ResolveDataItem(device, key string) (*domain.DataItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if di, ok := r.byKey[indexKey(device, key)]; ok {
		return di, true
	}
	if device != "" {
		if di, ok := r.byKey[indexKey("", key)]; ok {
			return di, true
		}
	}
	return nil, false
}

func (r *StaticResolver) ResolveDevice(prefix string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if alias, ok := r.aliases[prefix]; ok {
		return alias
	}
	return prefix
}

func indexKey(device, key string) string {
	return device + "\x00" + key
}

var _ ports.DataItemResolver = (*StaticResolver)(nil)
