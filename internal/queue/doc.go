// Package queue persists the processing ledger in SQLite.
//
// Each media file is one Item moving through the status lifecycle
// pending -> transcribing -> transcribed -> reconciling -> reconciled ->
// cleaning -> cleaned -> zipping -> completed, with failed as the terminal
// error state. In-flight statuses roll back to their stage boundary when
// work is interrupted, so the pipeline resumes cleanly after a crash.
package queue
