// Package diff implements the differential tester (spec §4.K): sample
// sentences of increasing length and compare the grammar's reference LR
// interpreter against the StackLang interpreter running the compiled
// Program, aborting on the first mismatch.
package diff

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"
	"sort"

	"github.com/slowlang/stacklang/stacklang"
	"github.com/slowlang/stacklang/stacklang/interp"
	"github.com/slowlang/stacklang/stacklang/ir"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// DefaultLengthThreshold is the largest sentence length tested per entry
// symbol (spec §4.K.1.b's "threshold (default 100)").
const DefaultLengthThreshold = 100

// DefaultGlobalCap is the total number of sentences tested across every
// entry symbol before the tester stops (spec §4.K.1.b's "global cap
// (default 1000)").
const DefaultGlobalCap = 1000

// DefaultSampleSize is the number of sentences sampled per length once
// the exhaustive count exceeds it (spec §4.K.1.b's "m=100").
const DefaultSampleSize = 100

// ReferenceInterpreter runs the grammar's own LR interpreter — the
// ground truth the StackLang interpreter is checked against.
type ReferenceInterpreter interface {
	Run(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error)
}

// SentenceGenerator enumerates, for one entry symbol and length, how
// many sentences of exactly that length exist and produces the sentence
// at a given index in that enumeration — without ever materializing the
// full set, since Count can be astronomically large.
type SentenceGenerator interface {
	Count(entry ir.Nonterminal, length int) *big.Int
	Sentence(entry ir.Nonterminal, length int, index *big.Int) []ir.Terminal
}

// MismatchError reports a sentence on which the reference and
// StackLang interpreters disagreed.
type MismatchError struct {
	Entry     ir.Nonterminal
	Sentence  []ir.Terminal
	Reference interp.Outcome
	StackLang interp.Outcome
}

func (e MismatchError) Error() string {
	return fmt.Sprintf("diff: mismatch on %s %v: reference=%v stacklang=%v",
		e.Entry, e.Sentence, e.Reference, e.StackLang)
}

type sizeJob struct {
	entry  ir.Nonterminal
	length int
	order  int
}

func lessBySize(d []sizeJob, i, j int) bool {
	if d[i].length != d[j].length {
		return d[i].length < d[j].length
	}

	return d[i].order < d[j].order
}

// primEval is the StackLang interpreter's primitive callback for
// differential testing. A Program's Prim results never feed the tag or
// token dispatch that decides Accepted/Rejected/Overshoot — only pushed
// and popped Tag values and the sentence's own terminals do — so a
// constant placeholder is observationally equivalent to any real host
// evaluator for this purpose.
func primEval(ctx context.Context, prim ir.Primitive, regs map[ir.Register]ir.Value) (ir.Value, error) {
	return ir.Unit{}, nil
}

// Run implements §4.K's five-step algorithm: for each entry symbol,
// walk sentence lengths in increasing order, sample (or exhaust) the
// sentences of each length, and compare outcomes until the global cap
// is reached or a mismatch is found.
func Run(ctx context.Context, p *ir.Program, ref ReferenceInterpreter, gen SentenceGenerator, settings stacklang.Settings) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "diff: run", "entries", len(p.Entry))
	defer tr.Finish("err", &err)

	if settings.ErrorToken {
		tr.Printw("diff: skipped, error-recovery token grammar")
		return nil
	}

	entries := sortedEntries(p.Entry)

	worklist := heap.Heap[sizeJob]{Less: lessBySize}
	order := 0

	for _, nt := range entries {
		for length := 0; length <= DefaultLengthThreshold; length++ {
			worklist.Push(sizeJob{entry: nt, length: length, order: order})
			order++
		}
	}

	tested := 0

	for worklist.Len() > 0 && tested < DefaultGlobalCap {
		j := worklist.Pop()

		count := gen.Count(j.entry, j.length)

		for _, idx := range sampleIndices(count, DefaultSampleSize) {
			if tested >= DefaultGlobalCap {
				break
			}

			sentence := gen.Sentence(j.entry, j.length, idx)
			tested++

			refOutcome, err := ref.Run(ctx, j.entry, sentence)
			if err != nil {
				return errors.Wrap(err, "reference interpreter: %v length %d", j.entry, j.length)
			}

			stackOutcome, err := interp.Run(ctx, p, j.entry, sentence, primEval)
			if err != nil {
				return errors.Wrap(err, "stacklang interpreter: %v length %d", j.entry, j.length)
			}

			if refOutcome != stackOutcome {
				return MismatchError{
					Entry:     j.entry,
					Sentence:  sentence,
					Reference: refOutcome,
					StackLang: stackOutcome,
				}
			}
		}
	}

	tr.Printw("diff: totals", "sentences_tested", tested)

	return nil
}

// sampleIndices returns every index in [0, count) if count <= want, or
// want uniformly-sampled distinct indices otherwise, without ever
// materializing the full [0, count) range.
func sampleIndices(count *big.Int, want int) []*big.Int {
	wantBig := big.NewInt(int64(want))

	if count.Sign() <= 0 {
		return nil
	}

	if count.Cmp(wantBig) <= 0 {
		out := make([]*big.Int, 0, count.Int64())

		for i := big.NewInt(0); i.Cmp(count) < 0; i.Add(i, big.NewInt(1)) {
			out = append(out, new(big.Int).Set(i))
		}

		return out
	}

	seen := map[string]bool{}
	out := make([]*big.Int, 0, want)

	maxAttempts := want * 50

	for attempt := 0; len(out) < want && attempt < maxAttempts; attempt++ {
		cand := uniformBigInt(count)
		key := cand.String()

		if seen[key] {
			continue
		}

		seen[key] = true
		out = append(out, cand)
	}

	return out
}

// uniformBigInt returns a uniformly distributed value in [0, count)
// using rejection sampling over count's bit length.
func uniformBigInt(count *big.Int) *big.Int {
	bitLen := count.BitLen()
	byteLen := (bitLen + 7) / 8

	if byteLen == 0 {
		return big.NewInt(0)
	}

	excess := byteLen*8 - bitLen
	buf := make([]byte, byteLen)

	for {
		for i := range buf {
			buf[i] = byte(rand.IntN(256))
		}

		if excess > 0 {
			buf[0] &= byte(0xFF >> excess)
		}

		cand := new(big.Int).SetBytes(buf)
		if cand.Cmp(count) < 0 {
			return cand
		}
	}
}

func sortedEntries(entry map[ir.Nonterminal]ir.Label) []ir.Nonterminal {
	nts := make([]ir.Nonterminal, 0, len(entry))

	for nt := range entry {
		nts = append(nts, nt)
	}

	sort.Slice(nts, func(i, j int) bool { return nts[i] < nts[j] })

	return nts
}
