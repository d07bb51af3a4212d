package models

const (
	EventNodeCreated = "node.created"
	EventNodeDeleted = "node.deleted"
)

type Event struct {
	Type       string   `json:"event_type"`
	OwnerID    string   `json:"owner_id"`
	NodeID     string   `json:"node_id"`
	ParentID   *string  `json:"parent_id,omitempty"`
	Name       string   `json:"name"`
	Kind       NodeKind `json:"kind"`
	RemovedIDs []string `json:"removed_ids,omitempty"`
}
