// Package ingestion builds the fragment index from source documents.
//
// A Pipeline splits each document with a langchaingo text splitter,
// derives a stable id for every chunk from its source and text, embeds
// chunks in batches on a worker pool and stores the normalized vectors.
// Re-ingesting unchanged text updates fragments in place.
package ingestion
