// Package dataset reshapes the per-frame records of one replayed session
// into [Variables]: filename metadata plus one time-aligned series per
// telemetry variable and per button.
//
// Filenames follow the BIDS-like convention used for CNeuroMod recordings,
// for example "sub-01_ses-002_task-mario_level-w1l1_run-01.bk2". See
// [ParseEntities].
//
// Variables can be written as JSON, YAML or TSV with [Write], and checked
// against a JSON Schema pinned to the frame count with
// [Variables.Validate].
package dataset
