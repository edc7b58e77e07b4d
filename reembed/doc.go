// Package reembed re-embeds an indexed collection with a new or updated
// embedding model.
//
// Fragments are paged in ID order, embedded in batches with retry,
// normalized and written back. Progress is checkpointed after each batch
// so an interrupted run picks up where it stopped.
package reembed
