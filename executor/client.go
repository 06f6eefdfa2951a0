package executor

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	astriaPb "buf.build/gen/go/astria/execution-apis/protocolbuffers/go/astria/execution/v1"
	astriaGrpc "buf.build/gen/go/astria/execution-apis/grpc/go/astria/execution/v1/executionv1grpc"
	sequencerblockv1 "buf.build/gen/go/astria/sequencerblock-apis/protocolbuffers/go/astria/sequencerblock/v1"

	"github.com/astriaorg/conductor/astriapb"
	"github.com/astriaorg/conductor/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// RPCClient is the execution-node RPC surface the Executor drives.
// Retries, backoff and the failure taxonomy are the concern of the
// concrete implementation; the Executor only sees a terminal success
// or a *Error carrying the right Kind.
type RPCClient interface {
	CreateExecutionSession(ctx context.Context) (astriapb.ExecutionSession, error)
	ExecuteBlock(ctx context.Context, sessionID, parentHash string, transactions [][]byte, timestamp time.Time, sequencerBlockHash string) (astriapb.ExecutedBlockMetadata, error)
	UpdateCommitmentState(ctx context.Context, sessionID string, commitment astriapb.CommitmentState) (astriapb.CommitmentState, error)
	GetExecutedBlockMetadata(ctx context.Context, id astriapb.BlockIdentifier) (astriapb.ExecutedBlockMetadata, error)
}

// BackoffConfig bounds the retry loops: CreateExecutionSession retries
// unboundedly (until shutdown), the other three RPCs are bounded.
type BackoffConfig struct {
	BoundedMaxElapsed time.Duration
}

func defaultBackoffConfig() BackoffConfig {
	return BackoffConfig{BoundedMaxElapsed: 30 * time.Second}
}

// grpcExecutionClient adapts the astria.execution.v2 contract this module
// programs against onto the astria.execution.v1 wire, the only generated
// Astria execution protobuf currently available (see DESIGN.md for why
// this mapping exists and how each field is translated).
type grpcExecutionClient struct {
	raw     astriaGrpc.ExecutionServiceClient
	backoff BackoffConfig
	metrics *metrics.Metrics
}

// NewGRPCClient builds an RPCClient backed by a real gRPC connection to
// the rollup's execution-node API. m may be nil, in which case no metrics
// are recorded.
func NewGRPCClient(conn *grpc.ClientConn, cfg BackoffConfig, m *metrics.Metrics) RPCClient {
	return &grpcExecutionClient{
		raw:     astriaGrpc.NewExecutionServiceClient(conn),
		backoff: cfg,
		metrics: m,
	}
}

func (c *grpcExecutionClient) CreateExecutionSession(ctx context.Context) (astriapb.ExecutionSession, error) {
	if c.metrics != nil {
		c.metrics.IncCreateExecutionSessionRequests()
	}
	var out astriapb.ExecutionSession
	op := func() error {
		genesis, err := c.raw.GetGenesisInfo(ctx, &astriaPb.GetGenesisInfoRequest{})
		if err != nil {
			return classify(err)
		}
		commitment, err := c.raw.GetCommitmentState(ctx, &astriaPb.GetCommitmentStateRequest{})
		if err != nil {
			return classify(err)
		}

		var rollupID [32]byte
		copy(rollupID[:], genesis.GetRollupId().GetInner())

		out = astriapb.ExecutionSession{
			SessionID: uuid.NewString(),
			Parameters: astriapb.SessionParameters{
				RollupID:                  rollupID,
				RollupStartBlockNumber:    uint64(genesis.GetSequencerGenesisBlockHeight()) + 1,
				SequencerFirstBlockHeight: genesis.GetSequencerGenesisBlockHeight(),
				DASearchMaxLookAhead:      genesis.GetCelestiaBlockVariance(),
			},
			Commitment: astriapb.CommitmentState{
				SoftExecutedBlockMetadata:  blockToMetadata(commitment.GetSoft()),
				FirmExecutedBlockMetadata:  blockToMetadata(commitment.GetFirm()),
				LowestCelestiaSearchHeight: commitment.GetBaseCelestiaHeight(),
			},
		}
		return nil
	}
	// unbounded: keep trying to establish a session until shutdown cancels ctx.
	if err := backoff.Retry(withTransientNotify(op), backoff.WithContext(unboundedBackoff(), ctx)); err != nil {
		return astriapb.ExecutionSession{}, err
	}
	if c.metrics != nil {
		c.metrics.IncCreateExecutionSessionSuccess()
	}
	return out, nil
}

func (c *grpcExecutionClient) ExecuteBlock(ctx context.Context, sessionID, parentHash string, transactions [][]byte, timestamp time.Time, sequencerBlockHash string) (astriapb.ExecutedBlockMetadata, error) {
	if c.metrics != nil {
		c.metrics.IncExecuteBlockRequests()
		defer c.metrics.ExecuteBlockTimer().UpdateSince(time.Now())
	}
	prevBlockHash, err := decodeHash(parentHash)
	if err != nil {
		return astriapb.ExecutedBlockMetadata{}, wrapErr(KindRPCFatal, "malformed parent hash", err)
	}
	seqBlockHash, err := decodeHash(sequencerBlockHash)
	if err != nil {
		return astriapb.ExecutedBlockMetadata{}, wrapErr(KindRPCFatal, "malformed sequencer block hash", err)
	}
	req := &astriaPb.ExecuteBlockRequest{
		PrevBlockHash:      prevBlockHash,
		Transactions:       wrapTransactions(transactions),
		Timestamp:          timestamppb.New(timestamp),
		SequencerBlockHash: seqBlockHash,
	}
	var out astriapb.ExecutedBlockMetadata
	op := func() error {
		block, err := c.raw.ExecuteBlock(ctx, req)
		if err != nil {
			return classify(err)
		}
		out = blockToMetadata(block)
		return nil
	}
	if err := backoff.Retry(withTransientNotify(op), backoff.WithContext(c.bounded(), ctx)); err != nil {
		return astriapb.ExecutedBlockMetadata{}, err
	}
	if c.metrics != nil {
		c.metrics.IncExecuteBlockSuccess()
	}
	return out, nil
}

func (c *grpcExecutionClient) UpdateCommitmentState(ctx context.Context, sessionID string, commitment astriapb.CommitmentState) (astriapb.CommitmentState, error) {
	if c.metrics != nil {
		c.metrics.IncUpdateCommitmentStateRequests()
		defer c.metrics.CommitmentStateUpdateTimer().UpdateSince(time.Now())
	}
	soft, err := metadataToBlock(commitment.SoftExecutedBlockMetadata)
	if err != nil {
		return astriapb.CommitmentState{}, wrapErr(KindRPCFatal, "malformed soft commitment hash", err)
	}
	firm, err := metadataToBlock(commitment.FirmExecutedBlockMetadata)
	if err != nil {
		return astriapb.CommitmentState{}, wrapErr(KindRPCFatal, "malformed firm commitment hash", err)
	}
	req := &astriaPb.UpdateCommitmentStateRequest{
		CommitmentState: &astriaPb.CommitmentState{
			Soft:               soft,
			Firm:               firm,
			BaseCelestiaHeight: commitment.LowestCelestiaSearchHeight,
		},
	}
	var out astriapb.CommitmentState
	op := func() error {
		resp, err := c.raw.UpdateCommitmentState(ctx, req)
		if err != nil {
			return classify(err)
		}
		out = astriapb.CommitmentState{
			SoftExecutedBlockMetadata:  blockToMetadata(resp.GetSoft()),
			FirmExecutedBlockMetadata:  blockToMetadata(resp.GetFirm()),
			LowestCelestiaSearchHeight: resp.GetBaseCelestiaHeight(),
		}
		return nil
	}
	if err := backoff.Retry(withTransientNotify(op), backoff.WithContext(c.bounded(), ctx)); err != nil {
		return astriapb.CommitmentState{}, err
	}
	if c.metrics != nil {
		c.metrics.IncUpdateCommitmentStateSuccess()
	}
	return out, nil
}

func (c *grpcExecutionClient) GetExecutedBlockMetadata(ctx context.Context, id astriapb.BlockIdentifier) (astriapb.ExecutedBlockMetadata, error) {
	identifier := &astriaPb.BlockIdentifier{
		Identifier: &astriaPb.BlockIdentifier_BlockNumber{
			BlockNumber: uint32(id.Number),
		},
	}
	if id.Number == 0 && id.Hash != "" {
		hash, err := decodeHash(id.Hash)
		if err != nil {
			return astriapb.ExecutedBlockMetadata{}, wrapErr(KindRPCFatal, "malformed block hash", err)
		}
		identifier.Identifier = &astriaPb.BlockIdentifier_BlockHash{BlockHash: hash}
	}
	req := &astriaPb.GetBlockRequest{Identifier: identifier}
	var out astriapb.ExecutedBlockMetadata
	op := func() error {
		block, err := c.raw.GetBlock(ctx, req)
		if err != nil {
			return classify(err)
		}
		out = blockToMetadata(block)
		return nil
	}
	if err := backoff.Retry(withTransientNotify(op), backoff.WithContext(c.bounded(), ctx)); err != nil {
		return astriapb.ExecutedBlockMetadata{}, err
	}
	return out, nil
}

func (c *grpcExecutionClient) bounded() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	cfg := c.backoff
	if cfg.BoundedMaxElapsed == 0 {
		cfg = defaultBackoffConfig()
	}
	b.MaxElapsedTime = cfg.BoundedMaxElapsed
	return b
}

func unboundedBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // unbounded; only ctx cancellation stops it
	b.MaxInterval = 30 * time.Second
	return b
}

func withTransientNotify(op func() error) backoff.Operation {
	return func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsKind(err, KindRPCFatal) {
			return backoff.Permanent(err)
		}
		return err
	}
}

func wrapTransactions(raw [][]byte) []*sequencerblockv1.RollupData {
	out := make([]*sequencerblockv1.RollupData, 0, len(raw))
	for _, tx := range raw {
		out = append(out, &sequencerblockv1.RollupData{
			Value: &sequencerblockv1.RollupData_SequencedData{
				SequencedData: tx,
			},
		})
	}
	return out
}

func blockToMetadata(b *astriaPb.Block) astriapb.ExecutedBlockMetadata {
	if b == nil {
		return astriapb.ExecutedBlockMetadata{}
	}
	var ts time.Time
	if b.GetTimestamp() != nil {
		ts = b.GetTimestamp().AsTime()
	}
	return astriapb.ExecutedBlockMetadata{
		Number:     uint64(b.GetNumber()),
		Hash:       fmt.Sprintf("%x", b.GetHash()),
		ParentHash: fmt.Sprintf("%x", b.GetParentBlockHash()),
		Timestamp:  ts,
	}
}

func metadataToBlock(m astriapb.ExecutedBlockMetadata) (*astriaPb.Block, error) {
	hash, err := decodeHash(m.Hash)
	if err != nil {
		return nil, fmt.Errorf("decoding hash: %w", err)
	}
	parentHash, err := decodeHash(m.ParentHash)
	if err != nil {
		return nil, fmt.Errorf("decoding parent hash: %w", err)
	}
	return &astriaPb.Block{
		Number:          uint32(m.Number),
		Hash:            hash,
		ParentBlockHash: parentHash,
		Timestamp:       timestamppb.New(m.Timestamp),
	}, nil
}

// decodeHash reverses the hex encoding blockToMetadata applies to wire
// hash bytes. An empty string decodes to nil bytes rather than an error,
// since a block's parent/sequencer hash is legitimately unset at session
// start.
func decodeHash(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// classify maps a raw transport error onto the executor's failure
// taxonomy by grpc status code: codes that indicate the server or
// network is temporarily unavailable are transient and worth retrying,
// everything else (bad arguments, missing session, internal errors) is
// treated as fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	log.Debug("execution rpc failed", "err", err)

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return wrapErr(KindRPCTransient, "execution rpc call failed", err)
	default:
		return wrapErr(KindRPCFatal, "execution rpc call failed", err)
	}
}
