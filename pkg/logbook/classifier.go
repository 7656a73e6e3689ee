package logbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/asimzulfiqar/LifeLogger/pkg/bus"
	"github.com/asimzulfiqar/LifeLogger/pkg/enrich/geocode"
	"github.com/asimzulfiqar/LifeLogger/pkg/telemetry"
)

const unknownField = "Unknown"

const ocrTag = "OCR"

// Store persists one normalized entry to the remote record store.
type Store interface {
	CreateEntry(ctx context.Context, entry Entry) error
}

// Downloader fetches one transport attachment to a local path.
type Downloader interface {
	Download(ctx context.Context, fileID string, destPath string) error
}

// Transcriber converts a downloaded audio file into text. May be nil.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Recognizer extracts text from a downloaded image file. May be nil.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Geocoder resolves coordinates into structured address fields.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Address, error)
}

// Options configures a Classifier. Store and Downloader are required;
// enrichment services are optional and tolerated as nil.
type Options struct {
	Store          Store
	Downloader     Downloader
	Transcriber    Transcriber
	Recognizer     Recognizer
	Geocoder       Geocoder
	DownloadsDir   string
	GeocodeTimeout time.Duration
	Log            *slog.Logger
}

// Classifier turns one inbound event into at most one Entry plus one reply.
//
// All handles are set once at construction and read concurrently by
// in-flight handlers; the classifier itself holds no mutable state.
type Classifier struct {
	store          Store
	downloader     Downloader
	transcriber    Transcriber
	recognizer     Recognizer
	geocoder       Geocoder
	downloadsDir   string
	geocodeTimeout time.Duration
	log            *slog.Logger
	now            func() time.Time
}

// NewClassifier validates required dependencies and applies defaults.
func NewClassifier(opts Options) (*Classifier, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	if opts.Downloader == nil {
		return nil, errors.New("downloader is required")
	}

	downloadsDir := strings.TrimSpace(opts.DownloadsDir)
	if downloadsDir == "" {
		downloadsDir = "./downloads"
	}

	geocodeTimeout := opts.GeocodeTimeout
	if geocodeTimeout <= 0 {
		geocodeTimeout = 5 * time.Second
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return &Classifier{
		store:          opts.Store,
		downloader:     opts.Downloader,
		transcriber:    opts.Transcriber,
		recognizer:     opts.Recognizer,
		geocoder:       opts.Geocoder,
		downloadsDir:   downloadsDir,
		geocodeTimeout: geocodeTimeout,
		log:            log.With("component", "logbook.classifier"),
		now:            time.Now,
	}, nil
}

// Process classifies one event, performs its side effects, and returns the
// reply to echo back. Branch failures are downgraded to a logged error plus
// a user-facing reply; they never propagate past the handler boundary.
func (c *Classifier) Process(ctx context.Context, event bus.Event) (bus.Reply, error) {
	timestamp := c.now().Format(TimestampLayout)

	switch event.Kind {
	case bus.KindText:
		return c.processText(ctx, event, timestamp), nil
	case bus.KindLocation:
		return c.processLocation(ctx, event, timestamp), nil
	case bus.KindVoice, bus.KindPhoto, bus.KindDocument, bus.KindVideo:
		return c.processAttachment(ctx, event, timestamp), nil
	default:
		return bus.Reply{Text: "No downloadable content found in the message."}, nil
	}
}

func (c *Classifier) processText(ctx context.Context, event bus.Event, timestamp string) bus.Reply {
	tag, content := SplitTag(event.Text)

	entry := Entry{Timestamp: timestamp, Type: TypeMessage, Content: content, Tag: tag}
	if err := c.writeEntry(ctx, entry); err != nil {
		c.log.Error("Failed to store text entry", "event_id", event.EventID, "error", err)
		return bus.Reply{Text: fmt.Sprintf("Failed to process text message: %v", err)}
	}

	return bus.Reply{Text: fmt.Sprintf("Text message saved to Notion: %s: message : %s", timestamp, content)}
}

// SplitTag derives an optional label from a "prefix: body" text message.
//
// Without a colon the tag is absent and the content is the full trimmed
// text. An empty prefix yields no tag.
func SplitTag(text string) (tag string, content string) {
	before, after, found := strings.Cut(text, ":")
	if !found {
		return "", strings.TrimSpace(text)
	}

	return strings.TrimSpace(before), strings.TrimSpace(after)
}

func (c *Classifier) processLocation(ctx context.Context, event bus.Event, timestamp string) bus.Reply {
	if event.Location == nil {
		return bus.Reply{Text: "No downloadable content found in the message."}
	}

	lat := event.Location.Latitude
	lon := event.Location.Longitude

	placeName, city, country := unknownField, unknownField, unknownField

	if c.geocoder != nil {
		geocodeCtx, cancel := context.WithTimeout(ctx, c.geocodeTimeout)
		address, err := c.geocoder.Reverse(geocodeCtx, lat, lon)
		cancel()
		if err != nil {
			telemetry.CountEnrichmentFailure("geocode")
			c.log.Warn("Geocoding failed, falling back to coordinates and venue data", "event_id", event.EventID, "error", err)
		} else {
			placeName = firstNonEmpty(address.Amenity, address.Shop, address.Tourism, address.Highway, unknownField)
			city = firstNonEmpty(address.City, address.Town, address.Village, unknownField)
			country = firstNonEmpty(address.Country, unknownField)
		}
	}

	if event.Venue != nil {
		if title := strings.TrimSpace(event.Venue.Title); title != "" {
			placeName = title
		}
		city, country = fillFromVenueAddress(event.Venue.Address, city, country)
	}

	content := formatLocation(placeName, city, country, lat, lon)

	entry := Entry{Timestamp: timestamp, Type: TypeLocation, Content: content}
	if err := c.writeEntry(ctx, entry); err != nil {
		c.log.Error("Failed to store location entry", "event_id", event.EventID, "error", err)
		return bus.Reply{Text: fmt.Sprintf("Failed to process location message: %v", err)}
	}

	return bus.Reply{Text: fmt.Sprintf("Location saved to Notion: %s: location : %s", timestamp, content)}
}

// fillFromVenueAddress fills still-unknown city/country from a venue address
// by taking the second-to-last and last comma-separated segments.
func fillFromVenueAddress(address, city, country string) (string, string) {
	address = strings.TrimSpace(address)
	if address == "" || !strings.Contains(address, ",") {
		return city, country
	}

	parts := strings.Split(address, ",")
	if city == unknownField && len(parts) >= 2 {
		if segment := strings.TrimSpace(parts[len(parts)-2]); segment != "" {
			city = segment
		}
	}
	if country == unknownField {
		if segment := strings.TrimSpace(parts[len(parts)-1]); segment != "" {
			country = segment
		}
	}

	return city, country
}

// formatLocation renders the multi-line location content. The place-name
// line is omitted while the place is still unknown.
func formatLocation(placeName, city, country string, lat, lon float64) string {
	lines := make([]string, 0, 5)
	if placeName != unknownField {
		lines = append(lines, "Place Name: "+placeName)
	}
	lines = append(lines,
		"City: "+city,
		"Country: "+country,
		"Latitude: "+formatCoordinate(lat),
		"Longitude: "+formatCoordinate(lon),
	)

	return strings.Join(lines, "\n")
}

func formatCoordinate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func (c *Classifier) processAttachment(ctx context.Context, event bus.Event, timestamp string) bus.Reply {
	if event.Attachment == nil {
		return bus.Reply{Text: "No downloadable content found in the message."}
	}

	baseName, ext, entryType := attachmentNaming(event)

	safeName := SafeFileName(baseName, timestamp, ext)
	savePath := filepath.Join(c.downloadsDir, safeName)

	if err := os.MkdirAll(c.downloadsDir, 0o755); err != nil {
		c.log.Error("Failed to create downloads directory", "event_id", event.EventID, "error", err)
		return bus.Reply{Text: fmt.Sprintf("An error occurred while downloading the file: %v", err)}
	}

	if err := c.downloader.Download(ctx, event.Attachment.FileID, savePath); err != nil {
		c.log.Error("Failed to download attachment", "event_id", event.EventID, "file", safeName, "error", err)
		return bus.Reply{Text: fmt.Sprintf("An error occurred while downloading the file: %v", err)}
	}
	c.log.Info("Attachment downloaded", "event_id", event.EventID, "kind", string(event.Kind), "file", safeName)

	switch event.Kind {
	case bus.KindVoice:
		return c.finishVoice(ctx, event, timestamp, savePath)
	case bus.KindPhoto:
		return c.finishPhoto(ctx, event, timestamp, savePath)
	default:
		entry := Entry{Timestamp: timestamp, Type: entryType, Content: baseName, AttachmentPath: savePath}
		if err := c.writeEntry(ctx, entry); err != nil {
			c.log.Error("Failed to store attachment entry", "event_id", event.EventID, "error", err)
			return bus.Reply{Text: fmt.Sprintf("Failed to save entry to Notion: %v", err)}
		}
		return bus.Reply{Text: fmt.Sprintf("File '%s' downloaded. Saved to Notion: %s: %s : %s", safeName, timestamp, entryType, baseName)}
	}
}

// attachmentNaming maps one attachment-bearing event to its base file name,
// extension, and entry type. Videos ride the document branch.
func attachmentNaming(event bus.Event) (baseName string, ext string, entryType EntryType) {
	switch event.Kind {
	case bus.KindVoice:
		return "voice_" + event.Attachment.FileID, ".ogg", TypeVoice
	case bus.KindPhoto:
		return "image_" + strconv.Itoa(event.MessageID), ".jpg", TypeImage
	case bus.KindVideo:
		return "video_" + strconv.Itoa(event.MessageID), ".mp4", TypeDoc
	default:
		name := strings.TrimSpace(event.Attachment.FileName)
		if name == "" {
			name = "document_" + event.Attachment.FileID
		}
		ext = filepath.Ext(name)
		if ext == "" {
			ext = ".bin"
		}
		return strings.TrimSuffix(name, ext), ext, TypeDoc
	}
}

// finishVoice transcribes a downloaded voice note. Empty transcription is a
// hard failure for this branch: no entry is written.
func (c *Classifier) finishVoice(ctx context.Context, event bus.Event, timestamp, savePath string) bus.Reply {
	if c.transcriber == nil {
		return bus.Reply{Text: "Transcription unavailable: speech model not loaded."}
	}

	transcription, err := c.transcriber.Transcribe(ctx, savePath)
	if err != nil {
		telemetry.CountEnrichmentFailure("transcribe")
		c.log.Error("Failed to transcribe voice message", "event_id", event.EventID, "error", err)
		return bus.Reply{Text: fmt.Sprintf("Failed to transcribe the voice message: %v", err)}
	}

	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		return bus.Reply{Text: "Transcription failed: No text detected."}
	}

	entry := Entry{Timestamp: timestamp, Type: TypeVoice, Content: transcription, AttachmentPath: savePath}
	if err := c.writeEntry(ctx, entry); err != nil {
		c.log.Error("Failed to store voice entry", "event_id", event.EventID, "error", err)
		return bus.Reply{Text: fmt.Sprintf("Failed to save entry to Notion: %v", err)}
	}

	return bus.Reply{Text: fmt.Sprintf("Transcription: %s\nSaved to Notion: %s: voice : %s", transcription, timestamp, transcription)}
}

// finishPhoto runs OCR on a downloaded image. Unlike voice, empty or failed
// recognition falls back to the caption (or a fixed default) and the entry
// is still written, always tagged OCR.
func (c *Classifier) finishPhoto(ctx context.Context, event bus.Event, timestamp, savePath string) bus.Reply {
	fallback := strings.TrimSpace(event.Caption)
	if fallback == "" {
		fallback = "No text detected"
	}

	content := fallback
	var recognized bool
	var ocrFailure string

	switch {
	case c.recognizer == nil:
		ocrFailure = "OCR unavailable: recognition engine not installed."
	default:
		text, err := c.recognizer.Recognize(ctx, savePath)
		if err != nil {
			telemetry.CountEnrichmentFailure("recognize")
			c.log.Error("Failed to perform OCR on image", "event_id", event.EventID, "error", err)
			ocrFailure = fmt.Sprintf("Failed to perform OCR on image: %v", err)
		} else if text = strings.TrimSpace(text); text != "" {
			content = text
			recognized = true
		}
	}

	entry := Entry{Timestamp: timestamp, Type: TypeImage, Content: content, Tag: ocrTag, AttachmentPath: savePath}
	if err := c.writeEntry(ctx, entry); err != nil {
		c.log.Error("Failed to store image entry", "event_id", event.EventID, "error", err)
		return bus.Reply{Text: fmt.Sprintf("Failed to save entry to Notion: %v", err)}
	}

	saved := fmt.Sprintf("Saved to Notion: %s: image : %s", timestamp, content)
	switch {
	case recognized:
		return bus.Reply{Text: fmt.Sprintf("OCR Text: %s\n%s", content, saved)}
	case ocrFailure != "":
		return bus.Reply{Text: ocrFailure + "\n" + saved}
	default:
		return bus.Reply{Text: "No text detected in image. " + saved}
	}
}

func (c *Classifier) writeEntry(ctx context.Context, entry Entry) error {
	if err := c.store.CreateEntry(ctx, entry); err != nil {
		telemetry.CountStoreWriteFailure()
		return err
	}

	telemetry.CountEntryWritten()
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}

	return ""
}
