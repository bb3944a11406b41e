package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tradesmart_backend/models"
)

// MongoDB collection names
const (
	Scan5mCollection        = "scan_5m"
	Scan1mCollection        = "scan_1m"
	WeeklySummaryCollection = "weekly_summary"
)

// ResultStore persists raw scan records (one collection per strategy) and
// weekly rollups in MongoDB. Records are append-only; status mutations are
// made by the external backtest jobs and are last-write-wins per record, so
// no application-level locking is needed.
type ResultStore struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewResultStore connects to MongoDB, verifies the connection with a ping,
// and ensures the timestamp indexes used by the history queries.
func NewResultStore(uri, dbName string) (*ResultStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := &ResultStore{
		client:   client,
		database: client.Database(dbName),
	}
	store.createIndexes()

	log.Println("Connected to MongoDB")
	return store, nil
}

// createIndexes creates the timestamp indexes backing the sorted history reads
func (s *ResultStore) createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, name := range []string{Scan5mCollection, Scan1mCollection} {
		s.database.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "timestamp", Value: -1}},
		})
	}
}

// Ping verifies the store is reachable.
func (s *ResultStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *ResultStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// collectionFor maps a strategy to its raw-record collection.
func collectionFor(strategy string) string {
	if strategy == models.Strategy1m {
		return Scan1mCollection
	}
	return Scan5mCollection
}

// RecentRecords returns the newest records for a strategy scanned on or
// after sinceDate (YYYY-MM-DD), sorted by timestamp descending and capped
// at limit.
func (s *ResultStore) RecentRecords(ctx context.Context, strategy, sinceDate string, limit int64) ([]models.ScanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{
		"strategy":  strategy,
		"scan_date": bson.M{"$gte": sinceDate},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.database.Collection(collectionFor(strategy)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", strategy, err)
	}
	defer cursor.Close(ctx)

	records := []models.ScanRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", strategy, err)
	}
	return records, nil
}

// RecordsInRange returns all records for a strategy with scan_date in the
// inclusive [from, to] range, sorted by timestamp descending.
func (s *ResultStore) RecordsInRange(ctx context.Context, strategy, from, to string) ([]models.ScanRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{
		"strategy":  strategy,
		"scan_date": bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.database.Collection(collectionFor(strategy)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", strategy, err)
	}
	defer cursor.Close(ctx)

	records := []models.ScanRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s records: %w", strategy, err)
	}
	return records, nil
}

// InsertWeeklySummary appends a rollup record. Rollups are immutable;
// readers resolve duplicate (week, strategy) keys by created_at.
func (s *ResultStore) InsertWeeklySummary(ctx context.Context, summary models.WeeklySummary) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.database.Collection(WeeklySummaryCollection).InsertOne(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to insert weekly summary for %s: %w", summary.Strategy, err)
	}
	return nil
}

// WeeklySummaries returns all rollup records, newest first.
func (s *ResultStore) WeeklySummaries(ctx context.Context) ([]models.WeeklySummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.database.Collection(WeeklySummaryCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly summaries: %w", err)
	}
	defer cursor.Close(ctx)

	summaries := []models.WeeklySummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode weekly summaries: %w", err)
	}
	return summaries, nil
}

// DeleteRecordsInRange removes a strategy's records with scan_date in the
// inclusive [from, to] range and returns the deleted count. Used by the
// weekly cleanup after a rollup is written.
func (s *ResultStore) DeleteRecordsInRange(ctx context.Context, strategy, from, to string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{
		"strategy":  strategy,
		"scan_date": bson.M{"$gte": from, "$lte": to},
	}
	res, err := s.database.Collection(collectionFor(strategy)).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s records: %w", strategy, err)
	}
	return res.DeletedCount, nil
}
