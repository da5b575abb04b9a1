// Package metadata maps metric names to the unit, divisor and kind used when
// displaying their deltas.
package metadata

import "sync"

// Kind classifies a metric for display.
type Kind int

const (
	// KindUnknown is returned for names missing from the table. Unknown
	// metrics are displayed as counters.
	KindUnknown Kind = iota
	KindCounter
	KindGauge
)

// String returns the lowercase name of k.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	default:
		return "unknown"
	}
}

// IsGauge reports whether k renders through the gauge path. Everything that
// is not explicitly a gauge, including KindUnknown, renders as a counter.
func (k Kind) IsGauge() bool {
	return k == KindGauge
}

// Info describes how to display one metric.
type Info struct {
	Suffix  string
	Divisor int64
	Kind    Kind
}

// UnknownSuffix is the suffix returned for metrics missing from the table.
const UnknownSuffix = "?"

// unknown is returned for every miss. The "?" suffix is visible in reports
// so that new metrics get added here.
var unknown = Info{Suffix: UnknownSuffix, Divisor: 1, Kind: KindUnknown}

// Table is an immutable name -> Info lookup.
type Table struct {
	entries map[string]Info
}

// NewTable builds a Table from entries. Divisors below 1 are stored as 1.
func NewTable(entries map[string]Info) *Table {
	m := make(map[string]Info, len(entries))
	for name, info := range entries {
		if info.Divisor < 1 {
			info.Divisor = 1
		}
		m[name] = info
	}
	return &Table{entries: m}
}

// Lookup returns the Info for name, or the "?" sentinel when name is unknown.
// It never fails.
func (t *Table) Lookup(name string) Info {
	if t == nil {
		return unknown
	}
	if info, ok := t.entries[name]; ok {
		return info
	}
	return unknown
}

// Len returns the number of known metrics.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

var defaultTable = sync.OnceValue(func() *Table {
	return NewTable(builtin)
})

// Default returns the built-in YugabyteDB table. It is constructed on first
// use and never modified afterwards.
func Default() *Table {
	return defaultTable()
}

func counter(suffix string) Info { return Info{Suffix: suffix, Divisor: 1, Kind: KindCounter} }
func gauge(suffix string) Info { return Info{Suffix: suffix, Divisor: 1, Kind: KindGauge} }

var builtin = map[string]Info{
	// server
	"cpu_utime":                                 counter("ms"),
	"cpu_stime":                                 counter("ms"),
	"voluntary_context_switches":                counter("csws"),
	"involuntary_context_switches":              counter("csws"),
	"threads_started":                           counter("threads"),
	"threads_running":                           gauge("threads"),
	"glog_info_messages":                        counter("messages"),
	"glog_warning_messages":                     counter("messages"),
	"glog_error_messages":                       counter("messages"),
	"hybrid_clock_hybrid_time":                  gauge("us"),
	"hybrid_clock_error":                        {Suffix: "ms", Divisor: 1000, Kind: KindGauge},
	"generic_heap_size":                         gauge("bytes"),
	"generic_current_allocated_bytes":           gauge("bytes"),
	"tcmalloc_pageheap_free_bytes":              gauge("bytes"),
	"tcmalloc_pageheap_unmapped_bytes":          gauge("bytes"),
	"tcmalloc_max_total_thread_cache_bytes":     gauge("bytes"),
	"tcmalloc_current_total_thread_cache_bytes": gauge("bytes"),
	"mem_tracker":                               gauge("bytes"),
	"mem_tracker_Tablets":                       gauge("bytes"),
	"mem_tracker_log_cache":                     gauge("bytes"),
	"mem_tracker_Read_Buffer":                   gauge("bytes"),
	"mem_tracker_Compressed_Read_Buffer":        gauge("bytes"),
	"rpc_inbound_calls_created":                 counter("calls"),
	"rpc_inbound_calls_alive":                   gauge("calls"),
	"rpc_outbound_calls_created":                counter("calls"),
	"rpc_outbound_calls_alive":                  gauge("calls"),
	"rpc_connections_alive":                     gauge("connections"),
	"rpc_incoming_queue_time":                   counter("us"),
	"tcp_bytes_received":                        counter("bytes"),
	"tcp_bytes_sent":                            counter("bytes"),
	"ts_bootstrap_time":                         counter("us"),

	// tablet / table
	"rows_inserted":                                       counter("rows"),
	"log_bytes_logged":                                    counter("bytes"),
	"log_wal_size":                                        gauge("bytes"),
	"log_append_latency":                                  counter("us"),
	"log_sync_latency":                                    counter("us"),
	"log_group_commit_latency":                            counter("us"),
	"is_raft_leader":                                      gauge("leader"),
	"raft_term":                                           gauge("term"),
	"follower_lag_ms":                                     gauge("ms"),
	"in_progress_ops":                                     gauge("ops"),
	"majority_sst_files_rejections":                       counter("rejections"),
	"not_leader_rejections":                               counter("rejections"),
	"leader_memory_pressure_rejections":                   counter("rejections"),
	"operation_memory_pressure_rejections":                counter("rejections"),
	"transaction_conflicts":                               counter("conflicts"),
	"expired_transactions":                                counter("transactions"),
	"restart_read_requests":                               counter("requests"),
	"consistent_prefix_read_requests":                     counter("requests"),
	"pick_read_time_on_docdb":                             counter("reads"),
	"docdb_keys_found":                                    counter("keys"),
	"docdb_obsolete_keys_found":                           counter("keys"),
	"ql_read_latency":                                     counter("us"),
	"ql_write_latency":                                    counter("us"),
	"write_lock_latency":                                  counter("us"),
	"write_op_duration_client_propagated_consistency":     counter("us"),
	"snapshot_read_inflight_wait_duration":                counter("us"),
	"rocksdb_number_db_seek":                              counter("seeks"),
	"rocksdb_number_db_next":                              counter("nexts"),
	"rocksdb_number_db_prev":                              counter("prevs"),
	"rocksdb_number_db_seek_found":                        counter("seeks"),
	"rocksdb_number_db_next_found":                        counter("nexts"),
	"rocksdb_number_db_prev_found":                        counter("prevs"),
	"rocksdb_number_keys_written":                         counter("keys"),
	"rocksdb_number_keys_read":                            counter("keys"),
	"rocksdb_bytes_read":                                  counter("bytes"),
	"rocksdb_bytes_written":                               counter("bytes"),
	"rocksdb_block_cache_hit":                             counter("blocks"),
	"rocksdb_block_cache_miss":                            counter("blocks"),
	"rocksdb_block_cache_add":                             counter("blocks"),
	"rocksdb_block_cache_data_hit":                        counter("blocks"),
	"rocksdb_block_cache_data_miss":                       counter("blocks"),
	"rocksdb_block_cache_index_hit":                       counter("blocks"),
	"rocksdb_block_cache_index_miss":                      counter("blocks"),
	"rocksdb_block_cache_filter_hit":                      counter("blocks"),
	"rocksdb_block_cache_filter_miss":                     counter("blocks"),
	"rocksdb_block_cache_bytes_read":                      counter("bytes"),
	"rocksdb_block_cache_bytes_write":                     counter("bytes"),
	"rocksdb_bloom_filter_checked":                        counter("checks"),
	"rocksdb_bloom_filter_useful":                         counter("checks"),
	"rocksdb_flush_write_bytes":                           counter("bytes"),
	"rocksdb_compact_read_bytes":                          counter("bytes"),
	"rocksdb_compact_write_bytes":                         counter("bytes"),
	"rocksdb_db_get_micros":                               counter("us"),
	"rocksdb_db_write_micros":                             counter("us"),
	"rocksdb_db_seek_micros":                              counter("us"),
	"rocksdb_sst_read_micros":                             counter("us"),
	"rocksdb_wal_bytes":                                   counter("bytes"),
	"rocksdb_write_self":                                  counter("writes"),
	"rocksdb_current_version_sst_files_size":              gauge("bytes"),
	"rocksdb_current_version_sst_files_uncompressed_size": gauge("bytes"),
	"rocksdb_current_version_num_sst_files":               gauge("files"),
	"rocksdb_total_sst_files_size":                        gauge("bytes"),
	"intentsdb_rocksdb_block_cache_hit":                   counter("blocks"),
	"intentsdb_rocksdb_block_cache_miss":                  counter("blocks"),

	// cdc
	"cdcsdk_change_event_count":              counter("events"),
	"cdcsdk_traffic_sent":                    counter("bytes"),
	"cdcsdk_sent_lag_micros":                 gauge("us"),
	"cdcsdk_expiry_time_ms":                  gauge("ms"),
	"async_replication_sent_lag_micros":      gauge("us"),
	"async_replication_committed_lag_micros": gauge("us"),

	// ysql / ycql handlers
	"handler_latency_yb_ysqlserver_SQLProcessor_SelectStmt":   counter("us"),
	"handler_latency_yb_ysqlserver_SQLProcessor_InsertStmt":   counter("us"),
	"handler_latency_yb_ysqlserver_SQLProcessor_UpdateStmt":   counter("us"),
	"handler_latency_yb_ysqlserver_SQLProcessor_DeleteStmt":   counter("us"),
	"handler_latency_yb_ysqlserver_SQLProcessor_OtherStmts":   counter("us"),
	"handler_latency_yb_ysqlserver_SQLProcessor_Transactions": counter("us"),
	"handler_latency_yb_tserver_TabletServerService_Read":     counter("us"),
	"handler_latency_yb_tserver_TabletServerService_Write":    counter("us"),
	"handler_latency_yb_cqlserver_SQLProcessor_SelectStmt":    counter("us"),
	"handler_latency_yb_cqlserver_SQLProcessor_InsertStmt":    counter("us"),
	"handler_latency_yb_client_read_remote":                   counter("us"),
	"handler_latency_yb_client_write_remote":                  counter("us"),
	"handler_latency_outbound_call_queue_time":                counter("us"),
	"handler_latency_outbound_call_time_to_response":          counter("us"),
}
