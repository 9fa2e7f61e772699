// Package executor drives a planner.Plan against the network: §4.3's
// read-plan executor. It opens one fetch per scheduled read operation,
// advances waves on timeout, validates each part's CRC as it lands, and
// runs the plan's post-processing chain once every requested part is
// either directly available or reconstructible.
//
// Grounded on LizardFS's src/common/read_plan_executor.h for the wave/
// deadline state machine, and on the teacher repo's
// modules/host/negotiatedownload.go and modules/gateway/rpc.go for the Go
// idiom of driving a socket RPC with a context deadline and reporting which
// peers failed so the caller can retry with fresh locations.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/NebulousLabs/errors"
	"github.com/lizardfs/dataplane/crypto"
	"github.com/lizardfs/dataplane/modules"
	"github.com/lizardfs/dataplane/pkg/chunk"
	"github.com/lizardfs/dataplane/pkg/planner"
	"github.com/lizardfs/dataplane/pkg/redundancy"
)

// ErrDeadlineExceeded is returned when the overall deadline fires before the
// plan's completion predicate is satisfied.
var ErrDeadlineExceeded = errors.New("read plan execution exceeded its deadline")

// ErrUnfinishable is returned when a connect failure leaves the plan unable
// to complete with the remaining candidates (§4.3 step 1).
var ErrUnfinishable = errors.New("read plan cannot complete with remaining candidates")

// Fetcher performs one part read against a chunkserver. Implementations
// must return exactly the requested block range, a CRC32 covering it, and
// respect ctx cancellation. No implementation ships in this repository;
// pkg/netpool provides pooled smux streams one can be built on, and tests
// back it with an in-memory fake, the same pattern as the teacher repo's
// download_test.go testFetcher.
type Fetcher interface {
	FetchPart(ctx context.Context, address string, part chunk.PartType, blockCount int) (data []byte, crc uint32, err error)
}

// Params configures one execution run.
type Params struct {
	ConnectTimeout time.Duration
	WaveTimeout    time.Duration
	Deadline       time.Duration

	// Deps optionally injects faults into the fetch path for testing, per
	// modules.Dependencies' Disrupt seam. A nil Deps disrupts nothing.
	Deps modules.Dependencies
}

// disrupted reports whether a named fault point should fire, matching the
// teacher pack's fi := deps.Disrupt("name") idiom used to simulate network
// failures without a real flaky peer.
func disrupted(deps modules.Dependencies, name string) bool {
	return deps != nil && deps.Disrupt(name)
}

// Result is a completed execution: the filled output buffer and the
// addresses of any chunkserver that failed to deliver, so the caller can
// retry with fresh locations (§4.3 step 7).
type Result struct {
	Buffer  []byte
	Failed  []string
	Decoded map[int][]byte // part index -> recovered bytes, for callers that want them directly
}

type fetchResult struct {
	op   planner.ReadOp
	data []byte
	err  error
}

// Execute drives plan to completion or failure.
func Execute(ctx context.Context, plan planner.Plan, fetcher Fetcher, params Params) (Result, error) {
	overallCtx := ctx
	var cancel context.CancelFunc
	if params.Deadline > 0 {
		overallCtx, cancel = context.WithTimeout(ctx, params.Deadline)
		defer cancel()
	}

	buf := make([]byte, plan.BufferSize)
	have := map[int][]byte{} // part index -> bytes, once fetched
	var failed []string
	var mu sync.Mutex

	requestedSet := map[int]bool{}
	for idx := range plan.Offsets {
		requestedSet[idx] = true
	}

	for waveNum, ops := range plan.Waves {
		select {
		case <-overallCtx.Done():
			return Result{}, ErrDeadlineExceeded
		default:
		}

		waveCtx := overallCtx
		var waveCancel context.CancelFunc
		if params.WaveTimeout > 0 {
			waveCtx, waveCancel = context.WithTimeout(overallCtx, params.WaveTimeout)
		}

		results := make(chan fetchResult, len(ops))
		var wg sync.WaitGroup
		for _, op := range ops {
			wg.Add(1)
			go func(op planner.ReadOp) {
				defer wg.Done()
				connCtx := waveCtx
				var connCancel context.CancelFunc
				if params.ConnectTimeout > 0 {
					connCtx, connCancel = context.WithTimeout(waveCtx, params.ConnectTimeout)
					defer connCancel()
				}
				var data []byte
				var crc uint32
				var err error
				if disrupted(params.Deps, "executorFetchFailure") {
					err = errors.New("disrupted: injected fetch failure")
				} else {
					data, crc, err = fetcher.FetchPart(connCtx, op.Address, op.Part, plan.BlockCount)
				}
				if err == nil && !crypto.VerifyBlockCRC32(data, crc) {
					err = errors.New("crc mismatch on fetched part")
				}
				results <- fetchResult{op: op, data: data, err: err}
			}(op)
		}

		go func() {
			wg.Wait()
			close(results)
		}()

		for r := range results {
			if r.err != nil {
				mu.Lock()
				failed = append(failed, r.op.Address)
				mu.Unlock()
				continue
			}
			have[r.op.Part.Index] = r.data
		}
		if waveCancel != nil {
			waveCancel()
		}

		if complete(plan, have, requestedSet) {
			decoded, err := postProcess(plan, have, buf)
			if err != nil {
				return Result{}, err
			}
			placeDirect(plan, have, buf)
			return Result{Buffer: buf, Failed: failed, Decoded: decoded}, nil
		}

		// If this was the last wave and we still aren't complete, the plan
		// is unfinishable with what remains.
		if waveNum == len(plan.Waves)-1 {
			return Result{}, ErrUnfinishable
		}
	}

	return Result{}, ErrUnfinishable
}

// complete implements §4.3 step 5's predicate: every requested part is
// either directly available or recoverable from available parts.
func complete(plan planner.Plan, have map[int][]byte, requested map[int]bool) bool {
	if plan.Direct {
		for idx := range requested {
			if _, ok := have[idx]; !ok {
				return false
			}
		}
		return true
	}
	for _, step := range plan.PostProcess {
		present := 0
		for _, idx := range step.SourceIndices {
			if _, ok := have[idx]; ok {
				present++
			}
		}
		if present < len(step.SourceIndices) {
			return false
		}
	}
	return true
}

func placeDirect(plan planner.Plan, have map[int][]byte, buf []byte) {
	for idx, data := range have {
		off, ok := plan.Offsets[idx]
		if !ok {
			continue
		}
		copy(buf[off:], data)
	}
}

// postProcess runs the plan's recovery chain back-to-front, per §4.2 step 6.
func postProcess(plan planner.Plan, have map[int][]byte, buf []byte) (map[int][]byte, error) {
	decoded := map[int][]byte{}
	for i := len(plan.PostProcess) - 1; i >= 0; i-- {
		step := plan.PostProcess[i]
		switch step.Kind {
		case planner.PostStepXOR:
			for _, missing := range step.MissingIndices {
				present := make([][]byte, len(step.SourceIndices)+1)
				for j, idx := range step.SourceIndices {
					present[j] = have[idx]
				}
				out := make([]byte, modules.BlockSize*plan.BlockCount)
				if err := redundancy.XORAccumulate(present, len(present)-1, out); err != nil {
					return nil, err
				}
				decoded[missing] = out
				have[missing] = out
				if off, ok := plan.Offsets[missing]; ok {
					copy(buf[off:], out)
				}
			}
		case planner.PostStepEC:
			k := step.EC.DataParts
			m := step.EC.ParityParts
			coder, err := redundancy.NewECCoder(k, m)
			if err != nil {
				return nil, err
			}
			shards := make([][]byte, k+m)
			for _, idx := range step.SourceIndices {
				if idx < len(shards) {
					shards[idx] = have[idx]
				}
			}
			if err := coder.Recover(shards); err != nil {
				return nil, err
			}
			for _, missing := range step.MissingIndices {
				if missing < len(shards) {
					decoded[missing] = shards[missing]
					have[missing] = shards[missing]
					if off, ok := plan.Offsets[missing]; ok {
						copy(buf[off:], shards[missing])
					}
				}
			}
		}
	}
	return decoded, nil
}
