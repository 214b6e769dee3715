package daemon

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/quicknote/pkg/preferences"
	"github.com/Veraticus/quicknote/pkg/types"
)

// MessageType identifies the type of message
type MessageType string

// Host, trigger and status clients -> daemon
const (
	MsgHello             MessageType = "hello"
	MsgInput             MessageType = "input"
	MsgPointer           MessageType = "pointer"
	MsgFocus             MessageType = "focus"
	MsgBlur              MessageType = "blur"
	MsgVisibility        MessageType = "visibility"
	MsgBounds            MessageType = "bounds"
	MsgContent           MessageType = "content"
	MsgClose             MessageType = "close"
	MsgTrigger           MessageType = "trigger"
	MsgGetPreferences    MessageType = "get_preferences"
	MsgUpdatePreferences MessageType = "update_preferences"
	MsgStatus            MessageType = "status"
	MsgPing              MessageType = "ping"
)

// Daemon -> clients
const (
	MsgShow          MessageType = "show"
	MsgHide          MessageType = "hide"
	MsgSetOpacity    MessageType = "set_opacity"
	MsgSetTransition MessageType = "set_transition"
	MsgFocusEditor   MessageType = "focus_editor"
	MsgTextSize      MessageType = "text_size"
	MsgNote          MessageType = "note"
	MsgPreferences   MessageType = "preferences"
	MsgError         MessageType = "error"
	MsgPong          MessageType = "pong"
)

// Role is what a connected client does.
type Role string

const (
	// RoleHost is the overlay window process. At most one is attached.
	RoleHost Role = "host"
	// RoleTrigger sends one trigger and disconnects.
	RoleTrigger Role = "trigger"
	// RoleStatus queries daemon state.
	RoleStatus Role = "status"
)

// Message is the envelope for every line on the socket
type Message struct {
	Type     MessageType     `json:"type"`
	ClientID string          `json:"client_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into a message of type t. A nil payload leaves
// the payload field empty.
func NewMessage(t MessageType, payload any) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// HelloPayload introduces a client.
type HelloPayload struct {
	Role     Role            `json:"role"`
	Monitors []types.Monitor `json:"monitors,omitempty"`
}

// InputPayload carries one raw input event from the host
type InputPayload struct {
	Kind       string `json:"kind"`
	Key        string `json:"key,omitempty"`
	DragRegion bool   `json:"drag_region,omitempty"`
}

// PointerPayload reports the pointer entering or leaving the window
type PointerPayload struct {
	Inside bool `json:"inside"`
}

// VisibilityPayload reports the host window's actual visibility
type VisibilityPayload struct {
	Visible bool `json:"visible"`
}

// BoundsPayload carries window geometry
type BoundsPayload struct {
	Bounds types.Bounds `json:"bounds"`
}

// ContentPayload carries the editor document.
type ContentPayload struct {
	HTML string `json:"html"`
}

// Trigger actions accepted in a TriggerPayload.
const (
	ActionHotCorner = "hotcorner"
	ActionShortcut  = "shortcut"
	ActionShow      = "show"
	ActionHide      = "hide"
	ActionToggle    = "toggle"
	ActionSync      = "sync"
)

// TriggerPayload asks the daemon to act as if a trigger fired.
type TriggerPayload struct {
	Action string `json:"action"`
}

// PreferencesPayload carries a full preferences snapshot.
type PreferencesPayload struct {
	Preferences preferences.Preferences `json:"preferences"`
}

// StatusPayload describes daemon state.
type StatusPayload struct {
	State         string `json:"state"`
	Locked        bool   `json:"locked"`
	PointerOver   bool   `json:"pointer_over"`
	HostConnected bool   `json:"host_connected"`
	Save          string `json:"save"`

	// Idle is set once input has been quiet for the auto-hide delay.
	Idle      bool  `json:"idle"`
	IdleForMS int64 `json:"idle_for_ms"`
}

// ShowPayload positions and shows the window.
type ShowPayload struct {
	Bounds types.Bounds `json:"bounds"`
}

// OpacityPayload sets window opacity in [0, 1].
type OpacityPayload struct {
	Opacity float64 `json:"opacity"`
}

// TransitionPayload sets the opacity transition duration.
type TransitionPayload struct {
	DurationMS int64 `json:"duration_ms"`
}

// TextSizePayload sets the editor font size.
type TextSizePayload struct {
	Size int `json:"size"`
}

// NotePayload sends the stored note to the host.
type NotePayload struct {
	HTML string `json:"html"`
}

// ErrorPayload reports a failed request.
type ErrorPayload struct {
	Message string `json:"message"`
}
