// internal/chat/history.go
package chat

import (
	"strings"
	"sync"
	"time"

	appErrors "github.com/givance/outreach-backend/internal/errors"
	"github.com/givance/outreach-backend/internal/model"
)

// History is the append-only refinement conversation for one campaign.
// Sequence numbers are assigned under the lock, so concurrent appends
// serialize and read back strictly increasing with no gaps. There is no
// mutation or deletion API on purpose.
type History struct {
	mu    sync.Mutex
	turns []model.ChatTurn
}

func NewHistory() *History {
	return &History{}
}

// Append records a turn and assigns the next sequence number.
func (h *History) Append(role, text string) (model.ChatTurn, error) {
	if strings.TrimSpace(text) == "" {
		return model.ChatTurn{}, appErrors.NewInvariant("chat turn text must not be empty")
	}
	if role != model.RoleOperator && role != model.RoleSystem {
		return model.ChatTurn{}, appErrors.NewInvariant("unknown chat role %q", role)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	seq := len(h.turns) + 1
	if len(h.turns) > 0 && h.turns[len(h.turns)-1].Seq != seq-1 {
		return model.ChatTurn{}, appErrors.NewInvariant(
			"chat sequence corrupted: last seq %d, appending %d", h.turns[len(h.turns)-1].Seq, seq)
	}

	turn := model.ChatTurn{
		Seq:       seq,
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
	h.turns = append(h.turns, turn)
	return turn, nil
}

// Turns returns a copy of the full ordered conversation. The generation
// service always receives the whole history, never a summary.
func (h *History) Turns() []model.ChatTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.ChatTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// LastSeq returns the sequence number of the most recent turn, or 0.
func (h *History) LastSeq() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.turns) == 0 {
		return 0
	}
	return h.turns[len(h.turns)-1].Seq
}
