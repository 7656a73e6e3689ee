package logbook

// TimestampLayout is the local ISO-8601 form the record store expects.
const TimestampLayout = "2006-01-02T15:04:05"

// EntryType is one of the five canonical log-entry tags.
type EntryType string

const (
	TypeMessage  EntryType = "message"
	TypeLocation EntryType = "location"
	TypeVoice    EntryType = "voice"
	TypeDoc      EntryType = "doc"
	TypeImage    EntryType = "image"
)

// Entry is one normalized log record.
//
// An Entry is built entirely within one event-handling invocation and never
// mutated afterwards. AttachmentPath stays local; the store does not persist
// it (attachment upload is a reserved, disabled write path).
type Entry struct {
	Timestamp      string
	Type           EntryType
	Content        string
	Tag            string
	AttachmentPath string
}
