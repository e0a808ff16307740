package constants

import "time"

// Status byte masks.
const (
	StatusFlag    = 0x80
	StatusMask    = 0xF0
	ChannelMask   = 0x0F
	DataMask      = 0x7F
	NoteOffStatus = 0x80
	NoteOnStatus  = 0x90
	SystemStatus  = 0xF0

	// note messages need status, key and velocity
	NoteFrameSize = 3
)

const (
	DefaultBatchWindow     = 10 * time.Millisecond
	DefaultDebounceWindow  = 50 * time.Millisecond
	DefaultMaxBatchSize    = 128
	DefaultMaxBatchRate    = 1000
	DefaultLatencyCapacity = 100
	DefaultAccessTimeout   = 10 * time.Second
	DefaultStrategy        = "microbatch"
	DefaultLogLevel        = "info"
	DefaultHTTPAddr        = ":8080"

	// RateWindow is the span the batch rate limiter counts over.
	RateWindow = time.Second

	// LatencyBudget is the arrival-to-chord target.
	LatencyBudget = 20 * time.Millisecond
	// IngestThreshold is the soft limit for parse-to-immediate-fan-out.
	IngestThreshold = 2 * time.Millisecond

	RescanInterval = time.Second
)

const (
	EnvBatchWindowMs   = "KEYSTREAM_BATCH_WINDOW_MS"
	EnvDebounceMs      = "KEYSTREAM_DEBOUNCE_MS"
	EnvMaxBatchSize    = "KEYSTREAM_MAX_BATCH_SIZE"
	EnvMaxBatchRate    = "KEYSTREAM_MAX_BATCH_RATE"
	EnvLatencyCapacity = "KEYSTREAM_LATENCY_CAPACITY"
	EnvAccessTimeout   = "KEYSTREAM_ACCESS_TIMEOUT"
	EnvStrategy        = "KEYSTREAM_STRATEGY"
	EnvLogLevel        = "KEYSTREAM_LOG_LEVEL"
	EnvLogFormat       = "KEYSTREAM_LOG_FORMAT"
	EnvHTTPAddr        = "KEYSTREAM_HTTP_ADDR"
	EnvSource          = "KEYSTREAM_SOURCE"
)

// Operation names recorded by the latency monitor.
const (
	OpIngest   = "pipeline.ingest"
	OpFlush    = "pipeline.flush"
	OpEndToEnd = "pipeline.end_to_end"
)

// Ports matching these are virtual/system ports and never opened.
var ExcludedPortPatterns = []string{"Midi Through", "Through Port", "Dummy"}
