package diff

import (
	"context"
	"math/big"
	"testing"

	"github.com/slowlang/stacklang/stacklang"
	"github.com/slowlang/stacklang/stacklang/interp"
	"github.com/slowlang/stacklang/stacklang/ir"
	"github.com/stretchr/testify/require"
)

// trivialGrammar builds the boundary scenario's S -> a program.
func trivialGrammar() *ir.Program {
	body := ir.CaseToken{
		R: 1,
		Branches: []ir.TokenBranch{
			ir.TokSingle{Terminal: "a", R: 1, Next: ir.Return{R: 1}},
		},
		Default: ir.Die{},
	}

	return &ir.Program{
		CFG:   map[ir.Label]*ir.TypedBlock{"L0": {Block: body}},
		Entry: map[ir.Nonterminal]ir.Label{"S": "L0"},
	}
}

// trivialReference is the grammar's own reference interpreter for S -> a:
// exactly the sentence [a] is accepted, anything shorter overshoots,
// anything else is rejected.
type trivialReference struct{}

func (trivialReference) Run(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error) {
	if len(sentence) == 0 {
		return interp.Overshoot, nil
	}

	if len(sentence) == 1 && sentence[0] == "a" {
		return interp.Accepted, nil
	}

	return interp.Rejected, nil
}

// trivialGenerator enumerates the single sentence "a" at length 1 and
// nothing at any other length.
type trivialGenerator struct{}

func (trivialGenerator) Count(entry ir.Nonterminal, length int) *big.Int {
	if length == 1 {
		return big.NewInt(1)
	}

	return big.NewInt(0)
}

func (trivialGenerator) Sentence(entry ir.Nonterminal, length int, index *big.Int) []ir.Terminal {
	return []ir.Terminal{"a"}
}

func TestRunTrivialGrammarSamplerAgrees(t *testing.T) {
	p := trivialGrammar()

	err := Run(context.Background(), p, trivialReference{}, trivialGenerator{}, stacklang.Settings{})
	require.NoError(t, err)
}

func TestRunSkipsErrorTokenGrammars(t *testing.T) {
	p := trivialGrammar()

	// A reference that would mismatch on anything actually run, to prove
	// ErrorToken really does skip the tester rather than happening not to
	// find a mismatch.
	broken := trivialReferenceFunc(func(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error) {
		return interp.Outcome(99), nil
	})

	err := Run(context.Background(), p, broken, trivialGenerator{}, stacklang.Settings{ErrorToken: true})
	require.NoError(t, err)
}

func TestRunReportsMismatch(t *testing.T) {
	p := trivialGrammar()

	wrong := trivialReferenceFunc(func(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error) {
		return interp.Rejected, nil
	})

	err := Run(context.Background(), p, wrong, trivialGenerator{}, stacklang.Settings{})
	require.Error(t, err)

	var mismatch MismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, interp.Rejected, mismatch.Reference)
	require.Equal(t, interp.Accepted, mismatch.StackLang)
}

type trivialReferenceFunc func(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error)

func (f trivialReferenceFunc) Run(ctx context.Context, entry ir.Nonterminal, sentence []ir.Terminal) (interp.Outcome, error) {
	return f(ctx, entry, sentence)
}

func TestSampleIndicesExhaustsSmallCounts(t *testing.T) {
	got := sampleIndices(big.NewInt(3), 100)
	require.Len(t, got, 3)
}

func TestSampleIndicesDedupesLargeCounts(t *testing.T) {
	got := sampleIndices(big.NewInt(1_000_000), 50)
	require.Len(t, got, 50)

	seen := map[string]bool{}
	for _, idx := range got {
		require.False(t, seen[idx.String()], "sampled indices must be distinct")
		seen[idx.String()] = true
	}
}
