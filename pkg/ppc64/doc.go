// Package ppc64 decodes big-endian 64-bit PowerPC instruction words.
//
// A single dispatch tree, Decode, walks the opcode tables once per word and
// reports what it finds to an Emitter. The asmtext package implements an
// Emitter producing display tokens, the lift package implements one that
// produces IR (see package il). Both renderings therefore agree on which
// words are valid.
//
// Decoding has two outcomes. Decode returns false for reserved encodings and
// for update-form loads and stores with an invalid base register; in that
// case nothing was emitted. Every other word decodes successfully, including
// architecturally valid instructions whose effect is not modelled: those emit
// an Unimplemented IR statement ("unimplemented passthrough") so that a
// linear sweep never loses synchronization.
//
// Info is a reduced pass that only reports control flow edges. It shares its
// target arithmetic (BranchTarget) with the IR emitted for branches.
package ppc64
