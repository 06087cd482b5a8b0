package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/types"
)

// FirestoreProvider implements Database on Google Cloud Firestore. Day
// records live at logbooks/{subsystem}/days/{yyyy-MM-dd} as a JSON blob
// plus a date field; using the day string as the document ID makes range
// queries lexicographic document-ID scans, which Firestore indexes for
// free.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID verification could be here, but we allow empty if inferred.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) daysCollection(subsystem string) (*firestore.CollectionRef, error) {
	if subsystem == "" {
		return nil, fmt.Errorf("subsystem cannot be empty")
	}
	return f.client.Collection("logbooks").Doc(subsystem).Collection("days"), nil
}

// GetDay retrieves the stored record for one day. A missing document means
// the day has never been saved and is reported as found=false.
func (f *FirestoreProvider) GetDay(ctx context.Context, subsystem, day string) (types.DailyRecord, bool, error) {
	coll, err := f.daysCollection(subsystem)
	if err != nil {
		return types.DailyRecord{}, false, err
	}
	doc, err := coll.Doc(day).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.DailyRecord{}, false, nil
		}
		return types.DailyRecord{}, false, fmt.Errorf("failed to fetch day %s/%s: %w", subsystem, day, err)
	}
	rec, err := recordFromDoc(ctx, subsystem, doc)
	if err != nil {
		return types.DailyRecord{}, false, err
	}
	return rec, true, nil
}

// PutDay stores the record for one day under its canonical day-string ID.
func (f *FirestoreProvider) PutDay(ctx context.Context, subsystem, day string, rec types.DailyRecord) error {
	if _, err := types.ParseDay(day); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal day record: %w", err)
	}

	coll, err := f.daysCollection(subsystem)
	if err != nil {
		return err
	}
	_, err = coll.Doc(day).Set(ctx, map[string]interface{}{
		"json": string(jsonBytes),
		"date": day,
	})
	if err != nil {
		return fmt.Errorf("failed to put day %s/%s: %w", subsystem, day, err)
	}
	return nil
}

// GetDayRange retrieves every stored record in the inclusive day range,
// ascending. Uses document ID range queries for efficient filtering
// without reading all documents.
func (f *FirestoreProvider) GetDayRange(ctx context.Context, subsystem, startDay, endDay string) ([]types.DatedRecord, error) {
	coll, err := f.daysCollection(subsystem)
	if err != nil {
		return nil, err
	}
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDay)).
		Where(firestore.DocumentID, "<=", coll.Doc(endDay)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []types.DatedRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating days: %w", err)
		}

		rec, err := recordFromDoc(ctx, subsystem, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, types.DatedRecord{Date: doc.Ref.ID, Record: rec})
	}
	return out, nil
}

func recordFromDoc(ctx context.Context, subsystem string, doc *firestore.DocumentSnapshot) (types.DailyRecord, error) {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "day doc missing json", slog.String("day", doc.Ref.ID), slog.String("subsystem", subsystem), slog.Any("err", err))
		return types.DailyRecord{}, fmt.Errorf("day document %s missing 'json' field: %w", doc.Ref.ID, err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "day doc json not string", slog.String("day", doc.Ref.ID), slog.String("subsystem", subsystem))
		return types.DailyRecord{}, fmt.Errorf("day document %s 'json' field is not string", doc.Ref.ID)
	}

	var rec types.DailyRecord
	if err := json.Unmarshal([]byte(jsonStr), &rec); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal day record", slog.String("day", doc.Ref.ID), slog.String("subsystem", subsystem), slog.Any("err", err))
		return types.DailyRecord{}, fmt.Errorf("failed to unmarshal day record (id=%s): %w", doc.Ref.ID, err)
	}
	if rec.Date == "" {
		rec.Date = doc.Ref.ID
	}
	return rec, nil
}

// GetSettings retrieves the site constants from the "config/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	doc, err := f.client.Collection("config").Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Return default settings if not found
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "settings doc missing json")
		return types.Settings{}, 0, fmt.Errorf("settings document missing 'json' field: %w", err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "settings doc json not string")
		return types.Settings{}, 0, fmt.Errorf("settings 'json' field is not a string")
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the site constants to the "config/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = f.client.Collection("config").Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
