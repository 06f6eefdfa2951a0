// Package executor implements the Executor subsystem: the state machine
// that establishes an execution session with the rollup, multiplexes the
// firm and soft block streams, enforces height-monotonic execution, and
// maintains the canonical commitment pair under backpressure.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/astriaorg/conductor/astriapb"
	"github.com/astriaorg/conductor/blocks"
	"github.com/astriaorg/conductor/celestia"
	"github.com/astriaorg/conductor/metrics"
	"github.com/astriaorg/conductor/sequencer"
	"github.com/astriaorg/conductor/state"
	"github.com/ethereum/go-ethereum/log"
)

// readerKind distinguishes the two reader tasks for supervision.
type readerKind int

const (
	readerFirm readerKind = iota
	readerSoft
)

func (k readerKind) String() string {
	if k == readerFirm {
		return "firm celestia reader"
	}
	return "soft sequencer reader"
}

// readerExit is sent on the reader-exit channel when a reader task returns,
// including when it panics (panics are recovered, never crash the process).
type readerExit struct {
	kind readerKind
	err  error
}

// Config holds the executor's own configuration surface, independent of
// the CLI/env layer that populates it.
type Config struct {
	CommitLevel state.CommitLevel
}

// Builder constructs an Executor from its explicit collaborators.
type Builder struct {
	Config  Config
	Client  RPCClient
	Metrics *metrics.Metrics

	CelestiaFetcher   celestia.Fetcher
	CelestiaBlockTime time.Duration

	SequencerOpener         sequencer.StreamOpener
	SequencerReconnectDelay time.Duration
}

func (b Builder) Build() *Executor {
	return &Executor{
		config:                  b.Config,
		client:                  b.Client,
		metrics:                 b.Metrics,
		celestiaFetcher:         b.CelestiaFetcher,
		celestiaBlockTime:       b.CelestiaBlockTime,
		sequencerOpener:         b.SequencerOpener,
		sequencerReconnectDelay: b.SequencerReconnectDelay,
	}
}

// Executor drives the rollup: see package doc.
type Executor struct {
	config  Config
	client  RPCClient
	metrics *metrics.Metrics

	celestiaFetcher   celestia.Fetcher
	celestiaBlockTime time.Duration

	sequencerOpener         sequencer.StreamOpener
	sequencerReconnectDelay time.Duration

	sessionID string
	state     *state.Cell

	firmBlocks chan *blocks.ReconstructedBlock
	softBlocks chan blocks.FilteredSequencerBlock

	// blocksPendingFinalization holds the metadata of soft-executed blocks,
	// keyed by rollup number, until the matching firm block arrives. This
	// is what lets executeFirm skip re-executing a block the rollup has
	// already applied (the no-re-execution invariant).
	blocksPendingFinalization map[uint64]astriapb.ExecutedBlockMetadata

	readerExitCh chan readerExit
	// firmCancel/softCancel cancel each reader's context independently, so
	// one reader reaching its stop height can stop its peer without tearing
	// down the whole executor (see handleReaderExit).
	firmCancel context.CancelFunc
	softCancel context.CancelFunc
	// firmStoppedByPeer/softStoppedByPeer record that this reader was asked
	// to stop because its peer reached its own stop height first, so its
	// own (necessarily early) clean exit is expected rather than fatal.
	firmStoppedByPeer bool
	softStoppedByPeer bool
	activeReaders     int
}

// RunUntilStoppedOrStopHeightReached runs the Executor until a shutdown
// signal is received or the stop height is reached.
//
// Returns the final state snapshot on graceful exit. Returns (nil, nil) if
// shutdown arrives before initialization completes.
func (e *Executor) RunUntilStoppedOrStopHeightReached(ctx context.Context) (*state.Snapshot, error) {
	initDone := make(chan error, 1)
	go func() { initDone <- e.init(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal while initializing executor; cancelling initialization")
		return nil, nil
	case err := <-initDone:
		if err != nil {
			return nil, fmt.Errorf("initialization failed: %w", err)
		}
	}

	return e.run(ctx)
}

// init creates the execution session, builds channels, and spawns
// reader tasks per commit level.
func (e *Executor) init(ctx context.Context) error {
	session, err := e.client.CreateExecutionSession(ctx)
	if err != nil {
		return fmt.Errorf("failed creating execution session: %w", err)
	}

	snap, err := state.NewFromExecutionSession(
		state.SessionParameters{
			RollupID:                  session.Parameters.RollupID,
			RollupStartBlockNumber:    session.Parameters.RollupStartBlockNumber,
			RollupEndBlockNumber:      session.Parameters.RollupEndBlockNumber,
			SequencerChainID:          session.Parameters.SequencerChainID,
			DAChainID:                 session.Parameters.DAChainID,
			SequencerFirstBlockHeight: session.Parameters.SequencerFirstBlockHeight,
			DASearchMaxLookAhead:      session.Parameters.DASearchMaxLookAhead,
		},
		state.CommitmentState{
			Firm: state.ExecutedBlockMetadata{
				Number:     session.Commitment.FirmExecutedBlockMetadata.Number,
				Hash:       session.Commitment.FirmExecutedBlockMetadata.Hash,
				ParentHash: session.Commitment.FirmExecutedBlockMetadata.ParentHash,
			},
			Soft: state.ExecutedBlockMetadata{
				Number:     session.Commitment.SoftExecutedBlockMetadata.Number,
				Hash:       session.Commitment.SoftExecutedBlockMetadata.Hash,
				ParentHash: session.Commitment.SoftExecutedBlockMetadata.ParentHash,
			},
			LowestDASearchHeight: session.Commitment.LowestCelestiaSearchHeight,
		},
		e.config.CommitLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to construct initial state from execution session: %w", err)
	}
	e.sessionID = session.SessionID
	e.state = state.NewCell(snap)

	if e.metrics != nil {
		e.metrics.SetFirmBlockNumber(snap.Commitment.Firm.Number)
		e.metrics.SetSoftBlockNumber(snap.Commitment.Soft.Number)
	}

	chans, err := newChannels(e.config.CommitLevel, snap.Params)
	if err != nil {
		return fmt.Errorf("failed to create channels: %w", err)
	}
	// Only wire the channel(s) this commit level actually runs a reader
	// for: the event loop treats a nil firmBlocks/softBlocks as "no such
	// source", which is also how it detects it can stop.
	if e.config.CommitLevel.IsWithFirm() {
		e.firmBlocks = chans.firm
	}
	if e.config.CommitLevel.IsWithSoft() {
		e.softBlocks = chans.soft
	}
	e.blocksPendingFinalization = make(map[uint64]astriapb.ExecutedBlockMetadata)
	e.readerExitCh = make(chan readerExit, 2)

	if e.config.CommitLevel.IsWithFirm() {
		firmCtx, cancel := context.WithCancel(ctx)
		e.firmCancel = cancel
		reader := celestia.Builder{
			Fetcher:     e.celestiaFetcher,
			BlockTime:   e.celestiaBlockTime,
			FirmBlocks:  e.firmBlocks,
			RollupState: e.state.Subscribe(),
		}.Build()
		e.activeReaders++
		go e.superviseReader(firmCtx, readerFirm, reader.Run)
	}

	if e.config.CommitLevel.IsWithSoft() {
		softCtx, cancel := context.WithCancel(ctx)
		e.softCancel = cancel
		reader := sequencer.Builder{
			Opener:         e.sequencerOpener,
			RollupID:       snap.Params.RollupID,
			ReconnectDelay: e.sequencerReconnectDelay,
			SoftBlocks:     e.softBlocks,
			RollupState:    e.state.Subscribe(),
		}.Build()
		e.activeReaders++
		go e.superviseReader(softCtx, readerSoft, reader.Run)
	}

	return nil
}

func (e *Executor) superviseReader(ctx context.Context, kind readerKind, run func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			e.readerExitCh <- readerExit{kind: kind, err: fmt.Errorf("reader panicked: %v", r)}
		}
	}()
	err := run(ctx)
	e.readerExitCh <- readerExit{kind: kind, err: err}
}

// run drives the prioritized main select loop, then shuts down.
func (e *Executor) run(ctx context.Context) (*state.Snapshot, error) {
	result, runErr := e.runEventLoop(ctx)
	e.shutdown()
	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

// runEventLoop is the priority-ordered select loop: firm blocks
// are always drained before soft blocks, and soft blocks are only taken
// when the spread predicate allows it. Go has no native biased select, so
// priority is expressed as a non-blocking poll of each source in order,
// falling back to a single blocking select over everything once nothing
// is immediately ready.
func (e *Executor) runEventLoop(ctx context.Context) (*state.Snapshot, error) {
	for {
		if e.firmBlocks == nil && e.softBlocks == nil && e.activeReaders == 0 {
			snap := e.state.Get()
			return &snap, nil
		}

		select {
		case block, ok := <-e.firmBlocks:
			if !ok {
				e.firmBlocks = nil
				continue
			}
			if err := e.executeFirm(ctx, block); err != nil {
				return nil, fmt.Errorf("failed executing firm block: %w", err)
			}
			continue
		default:
		}

		if !e.state.Get().IsSpreadTooLarge(e.config.CommitLevel) {
			select {
			case block, ok := <-e.softBlocks:
				if !ok {
					e.softBlocks = nil
					continue
				}
				if err := e.executeSoft(ctx, block); err != nil {
					return nil, fmt.Errorf("failed executing soft block: %w", err)
				}
				continue
			default:
			}
		}

		select {
		case <-ctx.Done():
			snap := e.state.Get()
			return &snap, nil

		case block, ok := <-e.firmBlocks:
			if !ok {
				e.firmBlocks = nil
				continue
			}
			if err := e.executeFirm(ctx, block); err != nil {
				return nil, fmt.Errorf("failed executing firm block: %w", err)
			}

		case block, ok := <-softOrNil(e.softBlocks, e.state.Get().IsSpreadTooLarge(e.config.CommitLevel)):
			if !ok {
				e.softBlocks = nil
				continue
			}
			if err := e.executeSoft(ctx, block); err != nil {
				return nil, fmt.Errorf("failed executing soft block: %w", err)
			}

		case exit := <-e.readerExitCh:
			e.activeReaders--
			if err := e.handleReaderExit(exit); err != nil {
				return nil, err
			}
		}
	}
}

// softOrNil returns nil when the spread predicate forbids receiving soft
// blocks this iteration, which makes the corresponding select case never
// fire — the idiomatic Go substitute for tokio::select!'s per-branch `if`
// guard.
func softOrNil(ch chan blocks.FilteredSequencerBlock, spreadTooLarge bool) chan blocks.FilteredSequencerBlock {
	if spreadTooLarge {
		return nil
	}
	return ch
}

// executeSoft handles one block off the soft (live sequencer) stream,
// implementing the staleness check and no-re-execution bookkeeping.
func (e *Executor) executeSoft(ctx context.Context, block blocks.FilteredSequencerBlock) error {
	snap := e.state.Get()
	expected := snap.NextExpectedSoftSequencerHeight()

	if block.Height() < expected {
		log.Debug("dropping stale soft block", "height", block.Height(), "expected", expected)
		return nil
	}
	if block.Height() > expected {
		return newErr(KindOutOfOrder, fmt.Sprintf(
			"soft block at sequencer height %d skips ahead of expected height %d", block.Height(), expected))
	}

	rollupNumber, err := state.MapSequencerHeightToRollupNumber(
		snap.Params.SequencerFirstBlockHeight, snap.Params.RollupStartBlockNumber, block.Height())
	if err != nil {
		return wrapErr(KindOutOfOrder, "failed mapping soft block to rollup number", err)
	}

	executable := fromSequencer(block, snap.Params.RollupID)
	metadata, err := e.executeBlock(ctx, "soft", snap.Commitment.Soft.Number, rollupNumber, executable, snap.Commitment.Soft.Hash, fmt.Sprintf("%x", block.BlockHash))
	if err != nil {
		return err
	}

	e.blocksPendingFinalization[rollupNumber] = metadata

	next := snap
	next.Commitment.Soft = toStateMetadata(metadata)
	e.state.Set(next)
	if e.metrics != nil {
		e.metrics.SetSoftBlockNumber(metadata.Number)
	}
	return nil
}

// executeFirm handles one block off the firm (Celestia) stream. If a soft
// execution already produced this rollup number, the cached metadata is
// reused instead of re-executing.
func (e *Executor) executeFirm(ctx context.Context, block *blocks.ReconstructedBlock) error {
	snap := e.state.Get()
	expected := snap.NextExpectedFirmSequencerHeight()

	if block.SequencerHeight() < expected {
		log.Debug("dropping stale firm block", "height", block.SequencerHeight(), "expected", expected)
		return nil
	}
	if block.SequencerHeight() > expected {
		return newErr(KindOutOfOrder, fmt.Sprintf(
			"firm block at sequencer height %d skips ahead of expected height %d", block.SequencerHeight(), expected))
	}

	rollupNumber, err := state.MapSequencerHeightToRollupNumber(
		snap.Params.SequencerFirstBlockHeight, snap.Params.RollupStartBlockNumber, block.SequencerHeight())
	if err != nil {
		return wrapErr(KindOutOfOrder, "failed mapping firm block to rollup number", err)
	}

	var metadata astriapb.ExecutedBlockMetadata
	if cached, ok := e.blocksPendingFinalization[rollupNumber]; ok {
		metadata = cached
		delete(e.blocksPendingFinalization, rollupNumber)
	} else if snap.Commitment.Soft.Number > snap.Commitment.Firm.Number {
		// Soft has already advanced past this rollup number, so it must
		// have executed this block already; the cache entry is simply
		// missing (e.g. a restart dropped the in-memory map). Recover the
		// rollup's own record of it instead of re-executing, preserving
		// the no-re-execution invariant.
		fetched, err := e.client.GetExecutedBlockMetadata(ctx, astriapb.ByNumber(rollupNumber))
		if err != nil {
			return fmt.Errorf("failed recovering cached soft execution for rollup block %d: %w", rollupNumber, err)
		}
		metadata = fetched
	} else {
		executable := fromReconstructed(block)
		metadata, err = e.executeBlock(ctx, "firm", snap.Commitment.Firm.Number, rollupNumber, executable, snap.Commitment.Firm.Hash, "")
		if err != nil {
			return err
		}
	}

	next := snap
	next.Commitment.Firm = toStateMetadata(metadata)
	if block.DAHeight+1 > next.Commitment.LowestDASearchHeight {
		next.Commitment.LowestDASearchHeight = block.DAHeight + 1
	}
	if next.Commitment.Soft.Number < next.Commitment.Firm.Number {
		next.Commitment.Soft = next.Commitment.Firm
	}

	updated, err := e.client.UpdateCommitmentState(ctx, e.sessionID, astriapb.CommitmentState{
		SoftExecutedBlockMetadata:  fromStateMetadata(next.Commitment.Soft),
		FirmExecutedBlockMetadata:  fromStateMetadata(next.Commitment.Firm),
		LowestCelestiaSearchHeight: next.Commitment.LowestDASearchHeight,
	})
	if err != nil {
		return fmt.Errorf("failed updating commitment state: %w", err)
	}
	next.Commitment.Firm = toStateMetadata(updated.FirmExecutedBlockMetadata)
	next.Commitment.Soft = toStateMetadata(updated.SoftExecutedBlockMetadata)
	next.Commitment.LowestDASearchHeight = updated.LowestCelestiaSearchHeight

	// forget anything at or below the newly finalized number.
	for number := range e.blocksPendingFinalization {
		if number <= next.Commitment.Firm.Number {
			delete(e.blocksPendingFinalization, number)
		}
	}

	e.state.Set(next)
	if e.metrics != nil {
		e.metrics.SetFirmBlockNumber(next.Commitment.Firm.Number)
	}
	return nil
}

// executeBlock issues ExecuteBlock and enforces the height contract.
func (e *Executor) executeBlock(ctx context.Context, side string, currentNumber, rollupNumber uint64, block ExecutableBlock, parentHash, sequencerBlockHash string) (astriapb.ExecutedBlockMetadata, error) {
	metadata, err := e.client.ExecuteBlock(ctx, e.sessionID, parentHash, block.Transactions, block.Timestamp, sequencerBlockHash)
	if err != nil {
		return astriapb.ExecutedBlockMetadata{}, fmt.Errorf("failed executing %s block: %w", side, err)
	}
	if err := checkContract(side, currentNumber, metadata.Number); err != nil {
		return astriapb.ExecutedBlockMetadata{}, err
	}
	return metadata, nil
}

// handleReaderExit implements the exit-handling decision table. A reader
// that exits with an error is always fatal. A clean exit (err == nil) is
// only expected in two cases: a stop height is configured and this
// reader's side has actually reached it, or its peer reached its stop
// height first and asked it to stop (firmStoppedByPeer/softStoppedByPeer).
// Any other clean exit — no stop height configured at all, or one before
// reaching it and with no peer request behind it — is an unexpected early
// exit and is fatal.
//
// When a reader does cleanly reach its own stop height, its peer has no
// further reason to keep running, so its context is cancelled here: the
// peer observes cancellation (at the top of its run loop or inside drain),
// returns nil, and closes its own block channel on the way out.
func (e *Executor) handleReaderExit(exit readerExit) error {
	if exit.err != nil {
		return wrapErr(KindReaderExited, fmt.Sprintf("%s exited unexpectedly", exit.kind), exit.err)
	}

	switch exit.kind {
	case readerFirm:
		if e.firmStoppedByPeer {
			log.Info("reader task exited after peer requested it stop", "reader", exit.kind.String())
			return nil
		}
		snap := e.state.Get()
		if !snap.Params.HasStopHeight() || !snap.HasFirmReachedStopHeight() {
			return newErr(KindReaderExited, fmt.Sprintf("%s exited before reaching stop height", exit.kind))
		}
		e.softStoppedByPeer = true
		if e.softCancel != nil {
			e.softCancel()
		}
	case readerSoft:
		if e.softStoppedByPeer {
			log.Info("reader task exited after peer requested it stop", "reader", exit.kind.String())
			return nil
		}
		snap := e.state.Get()
		if !snap.Params.HasStopHeight() || !snap.HasSoftReachedStopHeight() {
			return newErr(KindReaderExited, fmt.Sprintf("%s exited before reaching stop height", exit.kind))
		}
		e.firmStoppedByPeer = true
		if e.firmCancel != nil {
			e.firmCancel()
		}
	}
	log.Info("reader task exited cleanly", "reader", exit.kind.String())
	return nil
}

// shutdown cancels any still-running reader tasks and waits for them to
// report their exit, so RunUntilStoppedOrStopHeightReached never returns
// while a reader goroutine is still writing to a channel nobody drains.
func (e *Executor) shutdown() {
	if e.firmCancel != nil {
		e.firmCancel()
	}
	if e.softCancel != nil {
		e.softCancel()
	}
	for e.activeReaders > 0 {
		<-e.readerExitCh
		e.activeReaders--
	}
}

func toStateMetadata(m astriapb.ExecutedBlockMetadata) state.ExecutedBlockMetadata {
	return state.ExecutedBlockMetadata{
		Number:             m.Number,
		Hash:               m.Hash,
		ParentHash:         m.ParentHash,
		Timestamp:          m.Timestamp.Unix(),
		SequencerBlockHash: m.SequencerBlockHash,
	}
}

func fromStateMetadata(m state.ExecutedBlockMetadata) astriapb.ExecutedBlockMetadata {
	return astriapb.ExecutedBlockMetadata{
		Number:             m.Number,
		Hash:               m.Hash,
		ParentHash:         m.ParentHash,
		Timestamp:          time.Unix(m.Timestamp, 0),
		SequencerBlockHash: m.SequencerBlockHash,
	}
}
