package sink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/masonhieb/shdredge/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "observations", "assets")
	ts := time.Now()

	entities := []*domain.Entity{
		domain.NewObservationEntity(&domain.Observation{
			DataItemID: "load",
			Device:     "mill-1",
			Timestamp:  ts,
			Properties: []domain.Property{{Name: "VALUE", Value: domain.DoubleValue(42)}},
		}),
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO observations (device, data_item_id, ts, duration, unavailable, properties) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (device, data_item_id, ts) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("mill-1", "load", ts, nil, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteBatch(entities); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkAssetCommands(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "observations", "assets")
	ts := time.Now()

	entities := []*domain.Entity{
		domain.NewAssetEntity(&domain.AssetCommand{
			Kind:      domain.AssetDefinition,
			AssetID:   "T100.1",
			Timestamp: ts,
			Body:      `<CuttingTool assetId="T100.1"/>`,
			Document:  &domain.AssetDocument{AssetID: "T100.1", Type: "CuttingTool", Root: "CuttingTool"},
		}),
		domain.NewAssetEntity(&domain.AssetCommand{
			Kind:      domain.AssetRemoveOne,
			AssetID:   "T100.1",
			Timestamp: ts,
		}),
		domain.NewAssetEntity(&domain.AssetCommand{
			Kind:      domain.AssetRemoveAll,
			AssetType: "CuttingTool",
			Timestamp: ts,
		}),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assets (asset_id, asset_type, ts, body, removed) VALUES ($1,$2,$3,$4,false) ON CONFLICT (asset_id) DO UPDATE SET asset_type = $2, ts = $3, body = $4, removed = false")).
		WithArgs("T100.1", "CuttingTool", ts, `<CuttingTool assetId="T100.1"/>`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET removed = true, ts = $2 WHERE asset_id = $1")).
		WithArgs("T100.1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets SET removed = true, ts = $2 WHERE asset_type = $1")).
		WithArgs("CuttingTool", ts).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := sink.WriteBatch(entities); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "observations", "assets")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "observations", "assets")
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}
