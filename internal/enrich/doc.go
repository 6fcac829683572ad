// Package enrich post-processes a small list of search hits.
//
// Every item receives an extractive summary (the first few sentences of its
// body), a cluster index from k-means over the summary embeddings, and a
// category chosen by a zero-shot classifier from a fixed label set. The
// clusterer and classifier are interfaces so tests can substitute fakes and
// deployments can pick a provider.
//
// Cluster indices only group items within one call; they carry no meaning
// across calls.
package enrich
