package shdredge

import (
	"github.com/masonhieb/shdredge/internal/domain"
	"github.com/masonhieb/shdredge/internal/ports"
)

// Entity is the unit that flows through the WAL→queue→sink pipeline: either
// an observation or an asset command.
type Entity = domain.Entity

// Observation is a timestamped set of properties for one data item.
type Observation = domain.Observation

// Property is one named value inside an observation.
type Property = domain.Property

// Value is the tagged union used for observation properties.
type Value = domain.Value

// AssetCommand carries asset lifecycle changes through the pipeline.
type AssetCommand = domain.AssetCommand

// DataItem describes one signal in the device model.
type DataItem = domain.DataItem

// QueuedEntity represents an item buffered inside the bounded queue.
type QueuedEntity = ports.QueuedEntity

// Collector streams entities from any data source into the pipeline.
type Collector = ports.Collector

// EntityQueue is the bounded, in-memory queue that decouples the collector and sink.
type EntityQueue = ports.EntityQueue

// Transformer lets callers mutate entities (unit conversion, enrichment) before persistence.
type Transformer = ports.Transformer

// Sink consumes batches of entities and persists them to any downstream system.
type Sink = ports.Sink

// Observability emits metrics/logs about throughput, latency, and DLQ conditions.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// DataItemResolver looks up data items in the device model.
type DataItemResolver = ports.DataItemResolver

// WAL abstracts the write-ahead log used for durability and crash recovery.
type WAL = ports.WAL

// WALStats exposes WAL metadata for observability.
type WALStats = ports.WALStats

// WALEntryID uniquely identifies a WAL entry.
type WALEntryID = ports.WALEntryID
