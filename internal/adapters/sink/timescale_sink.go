package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// TimescaleSink writes observations into a hypertable and keeps an assets
// table in step with the asset commands that arrive on the same stream.
type TimescaleSink struct {
	db          *sql.DB
	obsTable    string
	assetsTable string
}

func NewTimescaleSink(db *sql.DB, obsTable, assetsTable string) *TimescaleSink {
	return &TimescaleSink{db: db, obsTable: obsTable, assetsTable: assetsTable}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteBatch(entities []*domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	var observations []*domain.Observation
	for _, e := range entities {
		switch {
		case e.IsObservation():
			observations = append(observations, e.Observation)
		case e.IsAsset():
			if err := t.applyAssetCommand(e.Asset); err != nil {
				return err
			}
		}
	}
	return t.insertObservations(observations)
}

func (t *TimescaleSink) insertObservations(observations []*domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	// INSERT ... ON CONFLICT DO NOTHING (idempotent via unique key)
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.obsTable)
	b.WriteString(" (device, data_item_id, ts, duration, unavailable, properties) VALUES ")

	args := make([]any, 0, len(observations)*6)
	for i, o := range observations {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5, len(args)+6))

		props, err := json.Marshal(o.Properties)
		if err != nil {
			return fmt.Errorf("marshal properties: %w", err)
		}

		var duration any
		if o.Duration != nil {
			duration = *o.Duration
		}

		args = append(args,
			o.Device,
			o.DataItemID,
			o.Timestamp,
			duration,
			o.Unavailable,
			props,
		)
	}

	b.WriteString(" ON CONFLICT (device, data_item_id, ts) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func (t *TimescaleSink) applyAssetCommand(cmd *domain.AssetCommand) error {
	switch cmd.Kind {
	case domain.AssetDefinition:
		assetType := cmd.AssetType
		if cmd.Document != nil && cmd.Document.Type != "" {
			assetType = cmd.Document.Type
		}
		q := "INSERT INTO " + t.assetsTable +
			" (asset_id, asset_type, ts, body, removed) VALUES ($1,$2,$3,$4,false)" +
			" ON CONFLICT (asset_id) DO UPDATE SET asset_type = $2, ts = $3, body = $4, removed = false"
		_, err := t.db.Exec(q, cmd.AssetID, assetType, cmd.Timestamp, cmd.Body)
		return err
	case domain.AssetRemoveOne:
		q := "UPDATE " + t.assetsTable + " SET removed = true, ts = $2 WHERE asset_id = $1"
		_, err := t.db.Exec(q, cmd.AssetID, cmd.Timestamp)
		return err
	case domain.AssetRemoveAll:
		if cmd.AssetType != "" {
			q := "UPDATE " + t.assetsTable + " SET removed = true, ts = $2 WHERE asset_type = $1"
			_, err := t.db.Exec(q, cmd.AssetType, cmd.Timestamp)
			return err
		}
		q := "UPDATE " + t.assetsTable + " SET removed = true, ts = $1"
		_, err := t.db.Exec(q, cmd.Timestamp)
		return err
	default:
		return fmt.Errorf("unknown asset command kind %q", cmd.Kind)
	}
}

var _ ports.Sink = (*TimescaleSink)(nil)
