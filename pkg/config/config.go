// Package config loads Nexus's engine configuration from a YAML file into
// a single typed Config struct, decoded with gopkg.in/yaml.v3 and backed
// by sane zero-value defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DurabilityPolicy controls when WAL writes are fsynced.
type DurabilityPolicy string

const (
	DurabilityPerCommit DurabilityPolicy = "per_commit"
	DurabilityGroup     DurabilityPolicy = "group_commit"
	DurabilityPeriodic  DurabilityPolicy = "periodic"
)

// AckPolicy controls how eagerly the leader waits for replica acknowledgement.
type AckPolicy string

const (
	AckAsyncOne AckPolicy = "async_one"
	AckSyncOne  AckPolicy = "sync_one"
	AckSyncAll  AckPolicy = "sync_all"
)

// Config is the top-level engine configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Storage StorageConfig `yaml:"storage"`
	WAL     WALConfig     `yaml:"wal"`
	Cache   CacheConfig   `yaml:"cache"`
	Cost    CostConfig    `yaml:"cost"`
	Repl    ReplConfig    `yaml:"replication"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

type StorageConfig struct {
	InitialNodeCapacity int64  `yaml:"initial_node_capacity"`
	GrowthFloorBytes    int64  `yaml:"growth_floor_bytes"`
	BlockSizeBytes      int    `yaml:"block_size_bytes"`
	AdjacencyCompression string `yaml:"adjacency_compression"` // varint|delta|dict|lz4|zstd|rle|adaptive
}

type WALConfig struct {
	SegmentBytes int64            `yaml:"segment_bytes"`
	Durability   DurabilityPolicy `yaml:"durability"`
	GroupCommitWindow time.Duration `yaml:"group_commit_window"`
}

type CacheConfig struct {
	ResultCacheCapacity  int           `yaml:"result_cache_capacity"`
	ResultCacheTTL       time.Duration `yaml:"result_cache_ttl"`
	PlanCacheCapacity    int           `yaml:"plan_cache_capacity"`
	RelCacheCapacity     int           `yaml:"relationship_cache_capacity"`
	RelCacheMaxBytes     int64         `yaml:"relationship_cache_max_bytes"`
}

// CostConfig carries the optimizer's default cost model constants.
type CostConfig struct {
	SeqScan           float64 `yaml:"seq_scan"`
	IndexScan         float64 `yaml:"index_scan"`
	RandomPage        float64 `yaml:"random_page"`
	CPUTuple          float64 `yaml:"cpu_tuple"`
	Join              float64 `yaml:"join"`
	EqualitySelectivity float64 `yaml:"equality_selectivity"`
	RangeSelectivity    float64 `yaml:"range_selectivity"`
}

type ReplConfig struct {
	Role              string        `yaml:"role"` // "leader" | "replica" | "standalone"
	ListenAddr        string        `yaml:"listen_addr"`
	LeaderAddr        string        `yaml:"leader_addr"`
	ReplicaID         string        `yaml:"replica_id"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MissedHeartbeats  int           `yaml:"missed_heartbeats"`
	AutoFailover      bool          `yaml:"auto_failover"`
	AckPolicy         AckPolicy     `yaml:"ack_policy"`
	RequiredAcks      int           `yaml:"required_acks"`
}

// Default returns the documented baseline configuration values.
func Default() Config {
	return Config{
		DataDir: "./data",
		Storage: StorageConfig{
			InitialNodeCapacity:  1 << 20,
			GrowthFloorBytes:     64 << 20,
			BlockSizeBytes:       4096,
			AdjacencyCompression: "adaptive",
		},
		WAL: WALConfig{
			SegmentBytes:      256 << 20,
			Durability:        DurabilityPerCommit,
			GroupCommitWindow: 5 * time.Millisecond,
		},
		Cache: CacheConfig{
			ResultCacheCapacity: 1000,
			ResultCacheTTL:      60 * time.Second,
			PlanCacheCapacity:   1000,
			RelCacheCapacity:    10000,
			RelCacheMaxBytes:    64 << 20,
		},
		Cost: CostConfig{
			SeqScan:             1.0,
			IndexScan:           0.1,
			RandomPage:          4.0,
			CPUTuple:            0.01,
			Join:                0.1,
			EqualitySelectivity: 0.1,
			RangeSelectivity:    0.33,
		},
		Repl: ReplConfig{
			Role:              "standalone",
			HeartbeatInterval: time.Second,
			MissedHeartbeats:  3,
			AckPolicy:         AckAsyncOne,
			RequiredAcks:      1,
		},
		LogLevel: "info",
	}
}

// Load reads and decodes a YAML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
