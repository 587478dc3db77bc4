package params

import "time"

const (
	DefaultPollingInterval = 10 * time.Second // Interval between receipt and event polls.
	DevnetPollingInterval  = 1 * time.Second  // Local devnet blocks are produced on demand.

	DefaultTxVersion = "0x3"               // Transaction version used when executing with explicit options.
	DefaultMaxFee    = "0x16345785d8a0000" // 0.1 STRK in fri, enough for any counter call on devnet.

	DefaultResetFee = "1" // Reset fee in whole tokens of the network currency.

	DefaultEventChunkSize = 100 // Events requested per starknet_getEvents page.
	DefaultFeedLength     = 10  // Events shown in the change feed.
	DefaultFeedCacheSize  = 1024

	AutoConnectTTL = 60 * time.Second
)
