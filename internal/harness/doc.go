// Package harness runs YAML scenarios against a real Router backed by a
// fresh in-memory SQLite store.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	principals:
//	  - name: alice
//	    rid: 1
//	  - name: mallory
//	    rid: 9
//	    unregistered: true
//	setup:
//	  - name: chan
//	    signer: alice
//	    type: CHANNEL_CREATE
//	    body: { uri: "ipfs://chan" }
//	flow:
//	  - name: sub
//	    signer: bob
//	    type: ITEM_SUBMIT
//	    body: { itemId: $item, channelId: $chan }
//	    expect:
//	      outcome: rejected
//	      code: PRECONDITION_FAILED
//	assertions:
//	  - type: final_state
//	    table: submissions
//	    id: $sub
//	    expect: { status: 0 }
//
// A string of the form $name anywhere in a body, an assertion id or an
// expected value is replaced with the content id of the earlier step with
// that name. Rejected steps have ids too, which lets assertions check that
// nothing was stored under them.
//
// Steps are signed with deterministic per-name keys and timestamps from a
// deterministic clock, so a scenario produces the same ids on every run.
// Traces refer to steps by name only, which keeps golden files readable.
//
// # Tampering
//
// A step may set tamper to produce a message that fails verification:
//
//   - body: the body is changed after signing (HASH_MISMATCH)
//   - signature: one signature byte is flipped (INVALID_SIGNATURE)
//   - key: signed by a key that was never registered (UNAUTHORIZED_KEY)
//   - hash_type: hashType is set to NONE (HASH_MISMATCH)
//
// # Assertions
//
//   - final_state: look up table/id and subset-match expect, or check
//     absent: true
//   - trace_count: number of flow steps with the given outcome
//   - trace_order: committed steps appear in this relative order
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
package harness
