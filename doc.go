// Package treecalc implements the front end and evaluator of a small
// mathematical expression language over a caller-supplied numeric type.
//
// Text is tokenized, built into a tree of nested groups, attributed against a
// symbol table, reduced into structured nodes, and evaluated with a Context.
// "2 - 3 - 4" is "(2 - 3) - 4". A leading operator has an implicit zero, so
// "- 5" is "0 - 5". Functions and consumers take the node after them as their
// parameter: "sqrt 2", "sum (1, 2, 3)".
//
// Brackets introduce range descriptors. "[x = 3] (x * x)" binds x for its
// target, and "sum [0 <= i < 5 <> 1] (i)" feeds each step of a loop to a
// consumer. A calculus operator follows a function name: "f ' 2" is the
// derivative of f at 2, and "f ∫ (0, 1)" integrates f over [0, 1].
//
// Parenthesized groups and invocations are cached for the duration of one
// evaluation. Config.StepCaching decides which cached groups a range loop
// recomputes on each step.
package treecalc
