package recorder

import "SignalDesk/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSignalChange(_ *SignalChangeEvent) error        { return nil }
func (n *NoopRecorder) RecordChainEvent(_ *ChainEvent) error                 { return nil }
func (n *NoopRecorder) RecordGoalFulfillment(_ *model.GoalFulfillment) error { return nil }
func (n *NoopRecorder) RecordBreakWarning(_ *model.BreakWarning) error       { return nil }
func (n *NoopRecorder) RecordCleanup(_ *CleanupEvent) error                  { return nil }
func (n *NoopRecorder) Close() error                                         { return nil }
