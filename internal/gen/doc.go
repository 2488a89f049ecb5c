// Package gen implements the generator algebra: primitive and derived
// generators, the clone/spawn machinery, the namespace that owns a custom
// generator's field generators, and the custom generators themselves.
//
// Every generator is a node in a DAG whose edges point from inputs to the
// nodes that consume them. Nodes obey one contract:
//
//   - Next produces one value from the current state
//   - Reset(seed) re-seeds the node from its own seed.Stream and resets
//     every registered clone with the same master seed
//   - Clone returns a tethered copy that follows the node's resets
//   - Spawn returns an independent copy, threading a SpawnMapping through
//     the sub-DAG so shared inputs stay shared in the copy
//
// Reset never travels to a node's inputs. Derived generators read their
// inputs through private clones (constituents), so they follow whatever
// resets the inputs' owner applies. A Namespace, or a Custom generator
// built from a Class, is the usual owner: it resets every independent
// generator it holds in insertion order. ResetAll does the same for the
// upstream DAG of a single generator.
//
// Generators are not safe for concurrent use.
package gen
