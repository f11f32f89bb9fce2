package blockchain

// Bucket layout, analogous to the reference core's consensus database:
// pools are stored once, keyed by sequence, and every other index
// (hash lookup, per-wallet touch counts) is derived rather than
// duplicated.
var (
	// bucketPools maps a big-endian uint64 sequence number to a pool's
	// wire encoding.
	bucketPools = []byte("Pools")

	// bucketHashIndex maps a PoolHash to its sequence number, so lookups
	// by hash don't require a table scan.
	bucketHashIndex = []byte("PoolHashIndex")

	// bucketMeta stores chain-wide scalars: last written sequence, last
	// hash, global sequence counter.
	bucketMeta = []byte("Meta")
)

var (
	metaKeyLastSequence   = []byte("LastSequence")
	metaKeyLastHash       = []byte("LastHash")
	metaKeyGlobalSequence = []byte("GlobalSequence")
)
