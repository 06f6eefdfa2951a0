// Package astriapb defines the astria.execution.v2 wire contract that the
// rest of this module programs against.
//
// Only generated Go for astria.execution.v1 is available
// (buf.build/gen/go/astria/execution-apis/...). Rather than guess at an
// undocumented v2 transport, these types mirror the field names and
// semantics of astria.execution.v2 directly, and
// executor.grpcExecutionClient adapts them onto the real v1 wire.
package astriapb

import "time"

// ExecutedBlockMetadata is the block information the rollup returns from
// ExecuteBlock, GetExecutedBlockMetadata and UpdateCommitmentState.
type ExecutedBlockMetadata struct {
	Number             uint64
	Hash               string
	ParentHash         string
	Timestamp          time.Time
	SequencerBlockHash string
}

// CommitmentState mirrors astria.execution.v2.CommitmentState.
type CommitmentState struct {
	SoftExecutedBlockMetadata ExecutedBlockMetadata
	FirmExecutedBlockMetadata ExecutedBlockMetadata
	LowestCelestiaSearchHeight uint64
}

// SessionParameters mirrors the parameters embedded in ExecutionSession.
type SessionParameters struct {
	RollupID                  [32]byte
	RollupStartBlockNumber    uint64
	RollupEndBlockNumber      uint64
	SequencerChainID          string
	DAChainID                 string
	SequencerFirstBlockHeight uint64
	DASearchMaxLookAhead      uint64
}

// ExecutionSession is the response to CreateExecutionSession.
type ExecutionSession struct {
	SessionID  string
	Parameters SessionParameters
	Commitment CommitmentState
}

// BlockIdentifier selects a block by number or hash for GetExecutedBlockMetadata.
type BlockIdentifier struct {
	Number uint64
	Hash   string // hex-encoded; used when Number == 0 and Hash != ""
}

// ByNumber builds a BlockIdentifier selecting a block by rollup number.
func ByNumber(number uint64) BlockIdentifier {
	return BlockIdentifier{Number: number}
}
