/*

StackLang pipeline

LR(1) Automaton (upstream) ->
	emit ->
Program (ir) ->
	check ->
	cfg.InDegree + inline ->
	check ->
	taginline + commute + deadbranch (if enabled) ->
	check ->
Program (ir, optimized) ->
	diff ->
Pushdown outcome (Accepted | Rejected | Overshoot)

*/
package ir
