package worker

// snapshotOperations handles writing the chain snapshot after commits.
func (w *Worker) snapshotOperations() {
	w.evHandler("worker: snapshotOperations: G started")
	defer w.evHandler("worker: snapshotOperations: G completed")

	for {
		select {
		case <-w.snapshots:
			if !w.isShutdown() {
				w.runSnapshotOperation()
			}
		case <-w.shut:
			w.evHandler("worker: snapshotOperations: received shut signal")
			return
		}
	}
}

// runSnapshotOperation writes the current chain to the snapshot file.
func (w *Worker) runSnapshotOperation() {
	if w.cfg.SnapshotPath == "" {
		return
	}

	if err := w.state.SaveSnapshotFile(w.cfg.SnapshotPath); err != nil {
		w.evHandler("worker: runSnapshotOperation: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runSnapshotOperation: saved: %s", w.cfg.SnapshotPath)
}
