package modules

// Consts that are required by multiple packages in the chunk data plane.
const (
	// BlockSize is the fixed size of a stored block within a chunk part.
	// Every CRC32 in the wire protocol covers exactly one block.
	BlockSize = 64 * 1024

	// MaxPartsPerChunk bounds the number of data+parity parts a legacy XOR
	// slice can spread a chunk across (xor9, the widest, has 10). ec(k,m)
	// slices have their own, larger ceiling, chunk.MaxECParts.
	MaxPartsPerChunk = 11

	// MaxChunkSize is the maximum number of bytes a single chunk part may
	// hold before the chunk is full and a new one must be allocated.
	MaxChunkSize = 64 * 1024 * 1024
)
