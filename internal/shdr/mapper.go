package shdr

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

var (
	// ErrUnknownAssetCommand is raised for an @…@ token outside the known set.
	ErrUnknownAssetCommand = errors.New("unknown asset command")
	// ErrUnresolvedRequirements means a data item's category/subtype did not
	// select a requirement schema or a required field was missing.
	ErrUnresolvedRequirements = errors.New("unresolved data item requirements")
)

type valueType uint8

const (
	typeString valueType = iota
	typeInt
	typeDouble
	typeVector
	typeDataSet
)

type requirement struct {
	name     string
	typ      valueType
	required bool
}

var (
	conditionReqs = []requirement{
		{"level", typeString, true},
		{"nativeCode", typeString, false},
		{"nativeSeverity", typeString, false},
		{"qualifier", typeString, false},
		{"VALUE", typeString, false},
	}
	alarmReqs = []requirement{
		{"code", typeString, true},
		{"nativeCode", typeString, false},
		{"severity", typeString, false},
		{"state", typeString, true},
		{"VALUE", typeString, false},
	}
	timeSeriesReqs = []requirement{
		{"sampleCount", typeInt, true},
		{"sampleRate", typeDouble, true},
		{"VALUE", typeVector, true},
	}
	messageReqs = []requirement{
		{"nativeCode", typeString, false},
		{"VALUE", typeString, false},
	}
	threeSpaceReqs = []requirement{{"VALUE", typeVector, false}}
	sampleReqs     = []requirement{{"VALUE", typeDouble, false}}
	assetEventReqs = []requirement{
		{"assetType", typeString, false},
		{"VALUE", typeString, false},
	}
	eventReqs   = []requirement{{"VALUE", typeString, false}}
	dataSetReqs = []requirement{{"VALUE", typeDataSet, false}}
)

// Mapper classifies token streams against the device model and produces
// observations and asset commands. Data items are re-resolved on every frame
// so a device-model reload takes effect immediately.
type Mapper struct {
	resolver ports.DataItemResolver
	assets   ports.AssetParser
	log      *slog.Logger
	logOnce  map[string]struct{}
}

func NewMapper(resolver ports.DataItemResolver, assets ports.AssetParser, log *slog.Logger) *Mapper {
	if log == nil {
		log = slog.Default()
	}
	return &Mapper{
		resolver: resolver,
		assets:   assets,
		log:      log,
		logOnce:  make(map[string]struct{}),
	}
}

// MapTokens walks a timestamped token stream and emits zero or more entities.
// A property that fails conversion or a bad asset command is logged and
// skipped, and mapping continues with the next item; an unknown data item key
// (or one with no requirement schema) skips the rest of the frame.
func (m *Mapper) MapTokens(ts Timestamped) []*domain.Entity {
	var entities []*domain.Entity
	tokens := ts.Tokens
	i := 0
	for i < len(tokens) {
		if tokens[i] == "" {
			i++
			continue
		}
		if tokens[i][0] == '@' {
			asset, err := m.mapAsset(ts, tokens, &i)
			if err != nil {
				m.log.Error("could not map asset command", "err", err)
				continue
			}
			entities = append(entities, domain.NewAssetEntity(asset))
			continue
		}

		obs, err := m.mapDataItem(ts, tokens, &i)
		if err != nil {
			m.log.Error("could not create observation", "err", err)
			continue
		}
		if obs != nil {
			entities = append(entities, domain.NewObservationEntity(obs))
		}
	}
	return entities
}

// splitKey separates an optional device prefix from the data item key.
func splitKey(key string) (item, device string) {
	if c := strings.IndexByte(key, ':'); c >= 0 {
		return key[c+1:], key[:c]
	}
	return key, ""
}

func (m *Mapper) mapDataItem(ts Timestamped, tokens []string, idx *int) (*domain.Observation, error) {
	key, devicePrefix := splitKey(tokens[*idx])
	*idx++

	device := devicePrefix
	if m.resolver != nil {
		device = m.resolver.ResolveDevice(devicePrefix)
	}

	dataItem, ok := m.lookup(device, key)
	if !ok {
		// resync to next frame
		if _, logged := m.logOnce[key]; !logged {
			m.log.Warn("could not find data item", "device", device, "key", key)
			m.logOnce[key] = struct{}{}
		}
		*idx = len(tokens)
		return nil, nil
	}

	reqs := requirementsFor(dataItem)
	if reqs == nil {
		*idx = len(tokens)
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedRequirements, key)
	}

	return m.zipProperties(dataItem, ts, reqs, tokens, idx)
}

func (m *Mapper) lookup(device, key string) (*domain.DataItem, bool) {
	if m.resolver == nil {
		return nil, false
	}
	return m.resolver.ResolveDataItem(device, key)
}

func requirementsFor(d *domain.DataItem) []requirement {
	switch {
	case d.IsSample():
		switch {
		case d.TimeSeries:
			return timeSeriesReqs
		case d.ThreeSpace:
			return threeSpaceReqs
		default:
			return sampleReqs
		}
	case d.IsEvent():
		switch {
		case d.Message:
			return messageReqs
		case d.Alarm:
			return alarmReqs
		case d.DataSet || d.Table:
			return dataSetReqs
		case d.AssetChanged || d.AssetRemoved:
			return assetEventReqs
		default:
			return eventReqs
		}
	case d.IsCondition():
		return conditionReqs
	}
	return nil
}

func isUnavailable(tok string) bool {
	return strings.EqualFold(tok, "UNAVAILABLE")
}

// zipProperties pairs schema fields with tokens positionally. Empty tokens
// are skipped, UNAVAILABLE marks the observation unavailable, and a token
// that fails type conversion drops only that property.
func (m *Mapper) zipProperties(d *domain.DataItem, ts Timestamped, reqs []requirement, tokens []string, idx *int) (*domain.Observation, error) {
	obs := &domain.Observation{
		DataItemID: d.ID,
		Device:     d.Device,
		Timestamp:  ts.Timestamp,
		Duration:   ts.Duration,
	}

	for r := 0; r < len(reqs) && *idx < len(tokens); r++ {
		req := reqs[r]
		tok := tokens[*idx]
		*idx++

		if tok == "" {
			continue
		}
		if isUnavailable(tok) && (req.name == "VALUE" || req.name == "level") {
			obs.Unavailable = true
			continue
		}

		raw := extractResetTrigger(d, tok, obs)
		value, err := convertValue(raw, req.typ, d.Table)
		if err != nil {
			m.log.Warn("cannot convert value", "token", tok, "field", req.name, "err", err)
			continue
		}
		obs.SetProperty(req.name, value)
	}

	if !obs.Unavailable {
		for _, req := range reqs {
			if !req.required {
				continue
			}
			if _, ok := obs.Property(req.name); !ok {
				return nil, fmt.Errorf("%w: %s missing required field %s", ErrUnresolvedRequirements, d.ID, req.name)
			}
		}
	}

	return obs, nil
}

// extractResetTrigger peels a reset trigger out of the token when the data
// item carries reset or data-set semantics. Samples encode the trigger as a
// ':'-separated suffix. For everything else the trigger runs from index 1 to
// the first whitespace after the colon; the first character is consumed even
// when there is no leading delimiter, a long-standing wire quirk kept for
// compatibility.
func extractResetTrigger(d *domain.DataItem, token string, obs *domain.Observation) string {
	if !d.ResetTrigger && !d.Table && !d.DataSet {
		return token
	}
	pos := strings.IndexByte(token, ':')
	if pos < 0 {
		return token
	}

	var trig, value string
	if d.IsSample() {
		trig = token[pos+1:]
		value = token[:pos]
	} else {
		ef := strings.IndexAny(token[pos:], " \t")
		if ef < 0 {
			trig = token[1:]
			value = token
		} else {
			ef += pos
			trig = token[1:ef]
			value = token[ef+1:]
		}
	}
	obs.SetProperty("resetTriggered", domain.StringValue(strings.ToUpper(trig)))
	return value
}

func convertValue(s string, t valueType, table bool) (domain.Value, error) {
	switch t {
	case typeString:
		return domain.StringValue(s), nil
	case typeInt:
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.IntValue(v), nil
	case typeDouble:
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.DoubleValue(v), nil
	case typeVector:
		fields := strings.Fields(s)
		vec := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return domain.Value{}, err
			}
			vec = append(vec, v)
		}
		return domain.VectorValue(vec), nil
	case typeDataSet:
		set, err := ParseDataSet(s, table)
		if err != nil {
			return domain.Value{}, err
		}
		return domain.DataSetValue(set), nil
	default:
		return domain.Value{}, fmt.Errorf("unknown value type %d", t)
	}
}

func (m *Mapper) mapAsset(ts Timestamped, tokens []string, idx *int) (*domain.AssetCommand, error) {
	command := tokens[*idx]
	*idx++

	switch command {
	case "@ASSET@":
		if len(tokens)-*idx < 3 {
			*idx = len(tokens)
			return nil, fmt.Errorf("asset definition: need id, type, and body")
		}
		id := tokens[*idx]
		typ := tokens[*idx+1]
		body := tokens[*idx+2]
		*idx += 3

		cmd := &domain.AssetCommand{
			Kind:      domain.AssetDefinition,
			AssetID:   id,
			AssetType: typ,
			Body:      body,
			Timestamp: ts.Timestamp,
		}
		if m.assets != nil {
			doc, err := m.assets.Parse(body)
			if err != nil {
				return nil, fmt.Errorf("asset %s: %w", id, err)
			}
			cmd.Document = doc
		}
		return cmd, nil

	case "@REMOVE_ALL_ASSETS@":
		cmd := &domain.AssetCommand{Kind: domain.AssetRemoveAll, Timestamp: ts.Timestamp}
		if *idx < len(tokens) {
			cmd.AssetType = tokens[*idx]
			*idx++
		}
		return cmd, nil

	case "@REMOVE_ASSET@":
		if *idx >= len(tokens) {
			return nil, fmt.Errorf("remove asset: missing asset id")
		}
		cmd := &domain.AssetCommand{
			Kind:      domain.AssetRemoveOne,
			AssetID:   tokens[*idx],
			Timestamp: ts.Timestamp,
		}
		*idx++
		return cmd, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAssetCommand, command)
	}
}
