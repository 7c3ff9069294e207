// Package voices owns voice identity for synthesis: the standard catalog,
// the in-memory registry of cloned voice profiles, and the Selector that
// turns a (kind, id) pair into something that can speak.
//
// The registry is empty at process start and is never persisted. Reads
// during synthesis and writes from clone/delete are serialized per profile
// id, so deleting a voice that a running job uses yields ErrVoiceNotFound
// for that job instead of racing the backend call.
package voices
