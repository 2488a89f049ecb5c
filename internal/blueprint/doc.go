// Package blueprint defines custom generators declaratively.
//
// A blueprint names a record class, lists its fields and optional hidden
// helper generators, and describes each generator by type and parameters.
// Definitions can refer to named fields and helpers, so one generator can
// feed several others:
//
//	name: OrderGenerator
//	helpers:
//	  - name: qty
//	    type: integer
//	    params: {lo: 1, hi: 5}
//	fields:
//	  - name: quantity
//	    ref: qty
//	  - name: total
//	    type: apply
//	    func: mul
//	    inputs: [{ref: qty}, {type: constant, params: {value: 10}}]
//	  - name: label
//	    type: fstr
//	    template: "{quantity} items"
//
// Blueprints are read from YAML (strict field checking) or CUE; both decode
// into the same Blueprint struct. Compile validates the whole blueprint,
// reporting every problem with an E2xx code, and produces a gen.Class.
//
// Reference cycles are found with Tarjan's strongly connected components
// algorithm before any generator is built.
package blueprint
