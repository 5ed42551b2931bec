package jobs

// addDocumentsWorkerCount mirrors the original's `usize::max(1, parallelism / 2)`:
// half the configured parallelism goes to the directory walk and half to
// writing documents, since both halves contend for the same single-writer
// mailboxes (the metadata DB and the search index) and oversubscribing them
// just adds context-switch overhead.
func addDocumentsWorkerCount(parallelism int) int {
	if n := parallelism / 2; n > 1 {
		return n
	}
	return 1
}
