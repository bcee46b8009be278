// Package mapred models the aggregation jobs issued by the verification
// harness: job inputs, phase descriptions, result values, and a reference
// phase executor shared by the embedded stores.
//
// # Inputs
//
// Input is a sealed interface with four shapes:
//
//   - KeyInputs: an explicit list of bucket/key pairs (may repeat keys)
//   - BucketInput: every object in a bucket
//   - FilterInput: every key in a bucket matched by a key filter
//   - IndexInput: a secondary index equality or range query
//
// # Phases
//
// A Job is an ordered list of phases. Each phase is exactly one of:
//
//	map     fetch each input object and apply a map function
//	link    follow the links of each input object
//	reduce  fold all inputs into a new list
//
// Results of phases with keep set are returned; the last phase is always
// kept.
//
// # Missing Objects
//
// Before the first phase, key inputs that name missing objects are replaced
// by not-found markers. Map phases pass markers through, link phases drop
// them, and count_inputs does not count them. Link phases therefore never
// surface missing-key markers.
package mapred
