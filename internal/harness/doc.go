// Package harness runs end-to-end scenarios against a fake backend.
//
// A scenario programs the backend's replies, drives the intake, manual,
// search and report flows through their real implementations, and then
// checks the recorded backend calls and activity log.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: approved_intake
//	description: "Approved receipt is correlated once"
//	tokens: [aaaaaaaaaaaa]
//	backend:
//	  intake:
//	    - status: 200
//	      json: '{"validacion":"automatica"}'
//	steps:
//	  - submit:
//	      file: {name: recibo.png, type: image/png, size: 4}
//	      values: {producto: ESTA, numero_personas: "2", nombre: Ana}
//	    expect:
//	      outcome: approved
//	      correlation: done
//	assertions:
//	  - type: call_count
//	    route: correlate
//	    count: 1
//
// Backend keys are route names (intake, correlate, manual, product_options,
// search, calendar, report). Replies are consumed in order and the last one
// repeats. files maps download subpaths to their content.
//
// # Assertion Types
//
//   - call_count: the route was called exactly count times
//   - call_order: the routes appear in the trace in this relative order
//   - call_contains: some call on route matches token, query and meta
//   - activity_contains: some activity line contains message
//
// # Deterministic Testing
//
// Scenarios run with fixed correlation tokens, a step clock and a retry
// policy that records its waits instead of sleeping. The call trace is
// therefore identical across runs and can be compared to a golden file.
package harness
