// Package corpus holds the in-memory copy of the email corpus used for
// semantic ranking.
//
// A Cache reads every email once, embeds each body and keeps four parallel
// sequences (ids, subjects, bodies, vectors) until it is invalidated. The
// snapshot reflects the emails table as of the last load; ingestion tooling
// must call Invalidate or Refresh after writing new mail.
//
// Concurrent first loads collapse into a single load through singleflight,
// and readers always observe a complete snapshot.
package corpus
