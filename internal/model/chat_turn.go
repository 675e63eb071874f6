// internal/model/chat_turn.go
package model

import "time"

const (
	RoleOperator = "operator"
	RoleSystem   = "system"
)

// ChatTurn is one message in the refinement conversation. Turns are
// append-only; Seq is assigned at append time and is gap-free per campaign.
type ChatTurn struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
