// ABOUTME: Turn is the append-only record unit of a session log.
// ABOUTME: Custom JSON round-trip preserves fields written by newer versions.

package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Version stamps every turn with the writer's release.
const Version = "0.3.0"

// TurnType discriminates who produced a turn.
type TurnType string

const (
	TurnUser      TurnType = "user"
	TurnAssistant TurnType = "assistant"
	TurnSystem    TurnType = "system"
	TurnTool      TurnType = "tool"
)

// TurnMessage is the conversational payload of a turn.
type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolRecord captures a tool invocation attached to a turn.
type ToolRecord struct {
	CallID    string `json:"callId,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Turn is one record in a session log. extra holds JSON fields this version
// does not know about, so rewriting a log never drops them.
type Turn struct {
	UUID        string      `json:"uuid"`
	ParentUUID  string      `json:"parentUuid,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	SessionID   string      `json:"sessionId"`
	Type        TurnType    `json:"type"`
	Message     TurnMessage `json:"message"`
	Tool        *ToolRecord `json:"toolCall,omitempty"`
	IsSidechain bool        `json:"isSidechain,omitempty"`
	UserType    string      `json:"userType,omitempty"`
	CWD         string      `json:"cwd,omitempty"`
	Version     string      `json:"version,omitempty"`

	extra map[string]json.RawMessage
}

var turnKnownKeys = map[string]bool{
	"uuid": true, "parentUuid": true, "timestamp": true, "sessionId": true,
	"type": true, "message": true, "toolCall": true, "isSidechain": true,
	"userType": true, "cwd": true, "version": true,
}

type turnAlias Turn

// UnmarshalJSON decodes known fields and stashes unknown ones.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var alias turnAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*t = Turn(alias)
	for k, v := range raw {
		if !turnKnownKeys[k] {
			if t.extra == nil {
				t.extra = make(map[string]json.RawMessage)
			}
			t.extra[k] = v
		}
	}
	return nil
}

// MarshalJSON encodes known fields plus any preserved unknown fields.
func (t Turn) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(turnAlias(t))
	if err != nil {
		return nil, err
	}
	if len(t.extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range t.extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// NewSessionID returns a 32-character hex session identifier.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewTurn creates a turn with a fresh uuid and the current timestamp.
func NewTurn(sessionID string, typ TurnType, role, content string) *Turn {
	return &Turn{
		UUID:      uuid.NewString(),
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Type:      typ,
		Message:   TurnMessage{Role: role, Content: content},
		UserType:  "external",
		Version:   Version,
	}
}

// IsInternal reports whether the turn is pipeline-internal bookkeeping
// (summaries, steering notes) rather than real conversation.
func (t *Turn) IsInternal() bool {
	return t.IsSidechain
}
