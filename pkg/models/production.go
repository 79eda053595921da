package models

import "time"

// ProductionStatus is the lifecycle of a Production Queue Entry.
type ProductionStatus string

const (
	ProductionQueued     ProductionStatus = "queued"
	ProductionInProgress ProductionStatus = "in_progress"
	ProductionCompleted  ProductionStatus = "completed"
)

// ProductionQueueEntry is one produce_shape call's outcome; at most one per
// participant may be in_progress at a time (invariant 2).
type ProductionQueueEntry struct {
	QueueID             string           `json:"queue_id"`
	SessionCode         SessionCode      `json:"session_code"`
	ParticipantCode     ParticipantCode  `json:"participant_code"`
	Shape               string           `json:"shape"`
	Quantity            int              `json:"quantity"`
	StartTime           time.Time        `json:"start_time"`
	EstimatedCompletion time.Time        `json:"estimated_completion"`
	Status              ProductionStatus `json:"status"`
	QueuePosition       int              `json:"queue_position"`
}

// Inventory maps a participant to their ordered, duplicate-preserving
// sequence of held shape tags. Exclusive to ShapeFactory.
type Inventory map[ParticipantCode][]string
