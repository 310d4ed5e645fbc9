/*
Package sbnf is a compiler from a compact grammar-description language (SGL)
to a declarative syntax-highlighting definition for a stack-based pattern
machine editor.

The pipeline, leaf packages first:

■ token: small span/token primitives shared by the frontend scanner.

■ grammar: the shared data model (Terminal, Nonterminal, Concatenation,
Alternation, Grammar) plus the typed error hierarchy.

■ sgl: the SGL frontend — a hand-written scanner and recursive-descent
parser that expands variables and parameterized rules into a flat
Nonterminal → Alternation grammar.

■ normalize: eliminates EBNF sugar (*, ?, inline alternation, passive marks)
by introducing fresh nonterminals, leaving pure BNF.

■ analyze: computes FIRST and FOLLOW sets and builds per-nonterminal
lookahead tables split into active/passive lanes.

■ emit: walks the analyzed grammar and synthesizes a named context table
implementing a generalised recursive-descent parser (GRDP, after Johnstone
& Scott) in the target editor's stack-machine vocabulary.

■ serialize: renders the emitted context table to the editor's YAML file
format.

The core — normalize, analyze, emit — is pure and single-threaded: every
compilation is a function of its input grammar, with no shared state between
invocations.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package sbnf
