package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"OrderPulse/entity"
)

// FindSyncState returns the sync state for one (tenant, platform), or nil.
func (m *MongoDB) FindSyncState(ctx context.Context, tenant, platform string) (*entity.SyncState, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(syncStatesCollection)
	filter := bson.D{{"tenant", tenant}, {"platform", platform}}

	var state entity.SyncState
	err = collection.FindOne(ctx, filter).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb find sync state: %w", err)
	}

	return &state, nil
}

// UpsertSyncState writes the full state document (connection status changes,
// cursor resets). Not the path that flips in_progress; BeginSync owns that.
func (m *MongoDB) UpsertSyncState(ctx context.Context, state *entity.SyncState) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	state.UpdatedAt = time.Now()

	collection := connection.Database(m.database).Collection(syncStatesCollection)
	filter := bson.D{{"tenant", state.Tenant}, {"platform", state.Platform}}

	_, err = collection.ReplaceOne(ctx, filter, state, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb upsert sync state: %w", err)
	}

	return nil
}

// BeginSync atomically claims the sync slot for one (tenant, platform): a
// single FindOneAndUpdate flips in_progress false→true, so two racing
// orchestrator instances get exactly one winner. Returns false without error
// when someone else holds the slot.
func (m *MongoDB) BeginSync(ctx context.Context, tenant, platform string) (bool, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(syncStatesCollection)

	filter := bson.D{
		{"tenant", tenant},
		{"platform", platform},
		{"in_progress", false},
	}
	update := bson.D{{"$set", bson.D{
		{"in_progress", true},
		{"status", entity.SyncSyncing},
		{"updated_at", time.Now()},
	}}}

	err = collection.FindOneAndUpdate(ctx, filter, update).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("mongodb begin sync: %w", err)
	}

	return true, nil
}

// FinishSync releases the slot and records the outcome. Success updates the
// cursor and timestamp and resets the error counter; failure records the
// error and increments it.
func (m *MongoDB) FinishSync(ctx context.Context, tenant, platform, cursor string, syncErr error) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(syncStatesCollection)
	filter := bson.D{{"tenant", tenant}, {"platform", platform}}

	var update bson.D
	if syncErr == nil {
		update = bson.D{
			{"$set", bson.D{
				{"in_progress", false},
				{"status", entity.SyncIdle},
				{"last_sync_at", time.Now()},
				{"cursor", cursor},
				{"last_error", ""},
				{"consecutive_errors", 0},
				{"updated_at", time.Now()},
			}},
		}
	} else {
		update = bson.D{
			{"$set", bson.D{
				{"in_progress", false},
				{"status", entity.SyncErrored},
				{"last_error", syncErr.Error()},
				{"updated_at", time.Now()},
			}},
			{"$inc", bson.D{{"consecutive_errors", 1}}},
		}
	}

	_, err = collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb finish sync: %w", err)
	}

	return nil
}

// EnsureSyncStateIndexes creates the per-key uniqueness index.
func (m *MongoDB) EnsureSyncStateIndexes(ctx context.Context) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(syncStatesCollection)

	index := mongo.IndexModel{
		Keys: bson.D{
			{"tenant", 1},
			{"platform", 1},
		},
		Options: options.Index().SetUnique(true),
	}

	_, err = collection.Indexes().CreateOne(ctx, index)
	if err != nil {
		return fmt.Errorf("mongodb create sync state index: %w", err)
	}

	return nil
}
