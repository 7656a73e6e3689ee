package bus

import "time"

// Kind discriminates the payload variant of an inbound chat event.
//
// The transport adapter decides the kind exactly once; downstream code
// switches on it instead of probing optional fields.
type Kind string

const (
	KindText     Kind = "text"
	KindLocation Kind = "location"
	KindVoice    Kind = "voice"
	KindPhoto    Kind = "photo"
	KindDocument Kind = "document"
	KindVideo    Kind = "video"
	KindUnknown  Kind = "unknown"
)

// Location is a geographic point attached to a location event.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Venue carries optional named-place data sent alongside a location.
type Venue struct {
	Title   string `json:"title"`
	Address string `json:"address"`
}

// Attachment references a downloadable binary payload on the transport side.
//
// Ext is only set when the transport dictates the extension (voice, photo,
// video); document extensions are derived from FileName downstream.
type Attachment struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	Ext      string `json:"ext,omitempty"`
}

// Event is one inbound chat message, normalized into a tagged union.
type Event struct {
	EventID    string            `json:"event_id"`
	Channel    string            `json:"channel"`
	ChatID     string            `json:"chat_id"`
	SenderID   string            `json:"sender_id"`
	MessageID  int               `json:"message_id"`
	Kind       Kind              `json:"kind"`
	ReceivedAt time.Time         `json:"received_at"`
	Text       string            `json:"text,omitempty"`
	Caption    string            `json:"caption,omitempty"`
	Location   *Location         `json:"location,omitempty"`
	Venue      *Venue            `json:"venue,omitempty"`
	Attachment *Attachment       `json:"attachment,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Reply is the single outcome message echoed back to the sender.
type Reply struct {
	Text string `json:"text"`
}
