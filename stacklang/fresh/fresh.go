// Package fresh is the mutable fresh-name counter shared by passes that
// allocate new registers (push commutation's alpha-renames, commuted-push
// ids). Per spec §9 it must be seedable and reset per pass so output is
// deterministic across runs of the same input.
package fresh

import (
	"fmt"

	"github.com/slowlang/stacklang/stacklang/ir"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

// Gen is a non-reentrant fresh-id generator. The zero value starts at 0;
// call Seed to pin a deterministic starting point for a pass.
type Gen struct {
	next int
}

// Seed resets the generator to start allocating at n, for testability.
func (g *Gen) Seed(n int) {
	g.next = n
}

// Register allocates a fresh register derived from base, for alpha-
// renaming a register whose original name would conflict with a pending
// commuted push.
func (g *Gen) Register(base ir.Register) ir.Register {
	id := g.next
	g.next++

	tlog.V("fresh_reg").Printw("fresh register", "base", base, "id", id, "from", loc.Caller(1))

	return ir.Register(int(base)<<20 | id)
}

// PushID allocates a fresh id naming a commuted push, used only in
// diagnostic Comment text ("Commuting push_<id> ...").
func (g *Gen) PushID() string {
	id := g.next
	g.next++

	return fmt.Sprintf("%d", id)
}
