// Package notion persists log entries into a Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/asimzulfiqar/LifeLogger/pkg/config"
	"github.com/asimzulfiqar/LifeLogger/pkg/logbook"
)

// Property names of the target database schema. "Uploaded File" is reserved
// for attachment upload, which stays disabled: entries keep their attachment
// path locally and the store never populates the property.
const (
	propTimestamp = "Timestamp"
	propType      = "Type"
	propContent   = "Content"
	propTag       = "Tag"
)

// Store appends entries to one Notion database. Safe for concurrent use.
type Store struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
	log        *slog.Logger
}

// New validates Notion configuration and constructs a store instance.
func New(cfg config.NotionConfig, log *slog.Logger) (*Store, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("notion.token is required")
	}

	databaseID := strings.TrimSpace(cfg.DatabaseID)
	if databaseID == "" {
		return nil, errors.New("notion.database_id is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Store{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
		log:        log.With("component", "store.notion"),
	}, nil
}

// Check retrieves the target database so misconfiguration surfaces at
// startup instead of on the first event.
func (s *Store) Check(ctx context.Context) error {
	if _, err := s.client.Database.Get(ctx, s.databaseID); err != nil {
		return fmt.Errorf("retrieve notion database: %w", err)
	}

	return nil
}

// CreateEntry appends one entry as a new page in the database.
func (s *Store) CreateEntry(ctx context.Context, entry logbook.Entry) error {
	page, err := s.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: s.databaseID,
		},
		Properties: entryProperties(entry),
	})
	if err != nil {
		return fmt.Errorf("create notion page: %w", err)
	}

	s.log.Info("Appended entry to Notion",
		"page_id", string(page.ID),
		"timestamp", entry.Timestamp,
		"type", string(entry.Type),
	)

	return nil
}

// entryProperties maps one entry onto the database property set. Tag is only
// included when a non-empty tag was derived.
func entryProperties(entry logbook.Entry) notionapi.Properties {
	start := notionapi.Date(parseTimestamp(entry.Timestamp))

	properties := notionapi.Properties{
		propTimestamp: notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &start},
		},
		propType: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(entry.Type)},
		},
		propContent: notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: entry.Content},
				},
			},
		},
	}

	if tag := strings.TrimSpace(entry.Tag); tag != "" {
		properties[propTag] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: tag},
		}
	}

	return properties
}

// parseTimestamp reads the receipt-time timestamp back into local time.
// Entries always carry a valid timestamp; the now() fallback only guards
// hand-built values.
func parseTimestamp(value string) time.Time {
	parsed, err := time.ParseInLocation(logbook.TimestampLayout, value, time.Local)
	if err != nil {
		return time.Now()
	}

	return parsed
}
