package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/shaiso/exosphere/internal/domain"
	"github.com/shaiso/exosphere/internal/registry"
)

// Collection name constants.
const (
	DefaultURI      = "mongodb://localhost:27017"
	DefaultDatabase = "exosphere"

	colSchedulers = "schedulers"
	colJobs       = "jobs"
)

var _ registry.Store = (*Store)(nil)

// Store — реализация registry.Store поверх MongoDB.
type Store struct {
	db *mongo.Database
}

// Connect открывает клиент и проверяет доступность сервера.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = DefaultURI
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// New создаёт Store поверх базы database (пустая строка — "exosphere").
func New(client *mongo.Client, database string) *Store {
	if database == "" {
		database = DefaultDatabase
	}
	return &Store{db: client.Database(database)}
}

// Migrate создаёт индексы.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(colSchedulers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "primary", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongostore: migrate %s indexes: %w", colSchedulers, err)
	}

	_, err = s.db.Collection(colJobs).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "jobName", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("mongostore: migrate %s indexes: %w", colJobs, err)
	}
	return nil
}

// CreateInstance создаёт запись планировщика.
func (s *Store) CreateInstance(ctx context.Context, inst *domain.SchedulerInstance) error {
	_, err := s.db.Collection(colSchedulers).InsertOne(ctx, toInstanceModel(inst))
	if mongo.IsDuplicateKeyError(err) {
		return registry.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("mongostore: create instance: %w", err)
	}
	return nil
}

// FindInstances возвращает записи по фильтру, отсортированные по ID.
func (s *Store) FindInstances(ctx context.Context, filter registry.InstanceFilter) ([]domain.SchedulerInstance, error) {
	query := bson.M{}
	if filter.ID != "" {
		query["_id"] = filter.ID
	}
	if filter.Primary != nil {
		query["primary"] = *filter.Primary
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(colSchedulers).Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: find instances: %w", err)
	}
	defer cursor.Close(ctx)

	var models []instanceModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("mongostore: find instances decode: %w", err)
	}

	instances := make([]domain.SchedulerInstance, 0, len(models))
	for i := range models {
		instances = append(instances, fromInstanceModel(&models[i]))
	}
	return instances, nil
}

// SetPrimary выставляет флаг primary.
func (s *Store) SetPrimary(ctx context.Context, id string, primary bool) error {
	return s.updateInstance(ctx, "set primary", id, bson.M{"primary": primary})
}

// ClearPrimaries снимает флаг primary со всех записей.
func (s *Store) ClearPrimaries(ctx context.Context) error {
	_, err := s.db.Collection(colSchedulers).UpdateMany(ctx,
		bson.M{"primary": true},
		bson.M{"$set": bson.M{"primary": false}},
	)
	if err != nil {
		return fmt.Errorf("mongostore: clear primaries: %w", err)
	}
	return nil
}

// UpdateHeartbeat обновляет lastCheckedIn.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	return s.updateInstance(ctx, "update heartbeat", id, bson.M{"lastCheckedIn": at})
}

func (s *Store) updateInstance(ctx context.Context, op, id string, set bson.M) error {
	res, err := s.db.Collection(colSchedulers).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongostore: %s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// FindJobByName возвращает job по jobName.
func (s *Store) FindJobByName(ctx context.Context, name string) (*domain.JobDefinition, error) {
	var m jobModel
	err := s.db.Collection(colJobs).FindOne(ctx, bson.M{"jobName": name}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: find job: %w", err)
	}
	job := fromJobModel(&m)
	return &job, nil
}

// ListJobs возвращает все jobs по имени.
func (s *Store) ListJobs(ctx context.Context) ([]domain.JobDefinition, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "jobName", Value: 1}})
	cursor, err := s.db.Collection(colJobs).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("mongostore: list jobs decode: %w", err)
	}

	jobs := make([]domain.JobDefinition, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}

// UpsertJob создаёт job или заменяет его определение по jobName.
// lastReportDate существующего job не меняется.
func (s *Store) UpsertJob(ctx context.Context, job *domain.JobDefinition) error {
	_, err := s.db.Collection(colJobs).UpdateOne(ctx,
		bson.M{"jobName": job.Name},
		jobUpsertUpdate(job),
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongostore: upsert job: %w", err)
	}
	return nil
}
