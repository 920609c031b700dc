package status

import (
	"encoding/json"
	"fmt"

	"reportd/internal/client"
	"reportd/internal/domain"
)

// Update is the single internal message shape both transports are normalized
// into before the reducer sees anything. The reducer never inspects raw
// payloads or branches on which wire field was present.
type Update struct {
	Heartbeat       bool
	Stage           domain.Stage
	Progress        int
	StageDisplay    string
	ErrorMessage    string
	ResultReference string
}

// pushMessage is the push channel's wire shape.
type pushMessage struct {
	Type            string `json:"type"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	StatusDisplay   string `json:"status_display"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ResultReference string `json:"result_reference,omitempty"`
}

// decodePush normalizes one push frame. Unparseable payloads and unknown
// message types degrade to a heartbeat with a non-nil error for logging;
// they must never abort the channel or mutate state.
func decodePush(data []byte) (Update, error) {
	var m pushMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return Update{Heartbeat: true}, fmt.Errorf("status: unparseable push payload: %w", err)
	}
	switch m.Type {
	case "heartbeat":
		return Update{Heartbeat: true}, nil
	case "status":
		return Update{
			Stage:           domain.Stage(m.Status),
			Progress:        m.Progress,
			StageDisplay:    m.StatusDisplay,
			ErrorMessage:    m.ErrorMessage,
			ResultReference: m.ResultReference,
		}, nil
	default:
		return Update{Heartbeat: true}, fmt.Errorf("status: unknown push message type %q", m.Type)
	}
}

// fromPoll normalizes the poll endpoint's wire shape, whose field names
// deliberately differ from the push channel's.
func fromPoll(r *client.StatusResponse) Update {
	return Update{
		Stage:           domain.Stage(r.State),
		Progress:        r.Pct,
		StageDisplay:    r.StateLabel,
		ErrorMessage:    r.Error,
		ResultReference: r.Artifact,
	}
}
