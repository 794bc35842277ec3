// Package harness runs merge conformance scenarios.
//
// A scenario describes a base LIFT document, a sequence of update files and
// what the directory must look like afterwards. The harness materializes the
// scenario in a scratch directory, scans it, merges every (project, sha)
// group in inventory order, and summarizes the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	base:
//	  - { id: one, guid: "0ae8...", text: one }
//	updates:
//	  - name: LangProj_sha1_a.lift.update
//	    entries:
//	      - { id: oneDeleted, guid: "0ae8...", deleted: "2012-05-08T06:40:44Z" }
//	  - name: LangProj_sha1_b.lift.update
//	    raw: "<lift><entry"
//	expect:
//	  entries: [oneDeleted]
//	  tombstones: [oneDeleted]
//	  files: [base.lift, base.lift.bak]
//	  error: MALFORMED_UPDATE
//
// Update files are written in list order with strictly increasing
// modification times, so list order is merge order within a group.
//
// # Golden Files
//
// RunWithGolden compares the summary against testdata/golden/<name>.golden.
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
