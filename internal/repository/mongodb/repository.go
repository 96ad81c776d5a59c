package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

const (
	billingCollection        = "billing"
	patientsCollection       = "patients"
	medicalRecordsCollection = "medical_records"
	appointmentsCollection   = "appointments"
	staffCollection          = "staff"
	roomsCollection          = "rooms"
	departmentsCollection    = "departments"
	schedulesCollection      = "report_schedules"
)

// DomainStore defines the read-only hospital queries used by the aggregator.
type DomainStore interface {
	ListBilling(ctx context.Context, dateRange models.DateRange) ([]models.BillingRecord, error)
	ListPatients(ctx context.Context) ([]models.Patient, error)
	ListMedicalRecords(ctx context.Context, dateRange models.DateRange) ([]models.MedicalRecord, error)
	ListAppointments(ctx context.Context, dateRange models.DateRange) ([]models.Appointment, error)
	ListStaff(ctx context.Context) ([]models.Staff, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
}

// ScheduleStore defines the schedule operations used by the dispatch loop.
type ScheduleStore interface {
	DueSchedules(ctx context.Context, now time.Time) ([]models.ScheduledReport, error)
	MarkRun(ctx context.Context, id string, lastRun, nextRun time.Time) error
}

// MongoDBRepository implements DomainStore and ScheduleStore for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// ListBilling returns invoices whose invoice_date falls in the range.
func (r *MongoDBRepository) ListBilling(ctx context.Context, dateRange models.DateRange) ([]models.BillingRecord, error) {
	return findAll[models.BillingRecord](ctx, r.db.Collection(billingCollection), dateRangeFilter("invoice_date", dateRange))
}

// ListPatients returns all patients.
func (r *MongoDBRepository) ListPatients(ctx context.Context) ([]models.Patient, error) {
	return findAll[models.Patient](ctx, r.db.Collection(patientsCollection), bson.M{})
}

// ListMedicalRecords returns records admitted after the range start and
// discharged before the range end.
func (r *MongoDBRepository) ListMedicalRecords(ctx context.Context, dateRange models.DateRange) ([]models.MedicalRecord, error) {
	return findAll[models.MedicalRecord](ctx, r.db.Collection(medicalRecordsCollection), medicalRecordsFilter(dateRange))
}

// ListAppointments returns appointments scheduled within the range.
func (r *MongoDBRepository) ListAppointments(ctx context.Context, dateRange models.DateRange) ([]models.Appointment, error) {
	return findAll[models.Appointment](ctx, r.db.Collection(appointmentsCollection), dateRangeFilter("appointment_date", dateRange))
}

// ListStaff returns all staff members.
func (r *MongoDBRepository) ListStaff(ctx context.Context) ([]models.Staff, error) {
	return findAll[models.Staff](ctx, r.db.Collection(staffCollection), bson.M{})
}

// ListRooms returns all rooms.
func (r *MongoDBRepository) ListRooms(ctx context.Context) ([]models.Room, error) {
	return findAll[models.Room](ctx, r.db.Collection(roomsCollection), bson.M{})
}

// ListDepartments returns all departments sorted by name.
func (r *MongoDBRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return findAll[models.Department](ctx, r.db.Collection(departmentsCollection), bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// DueSchedules returns every schedule whose next_run is not after now.
func (r *MongoDBRepository) DueSchedules(ctx context.Context, now time.Time) ([]models.ScheduledReport, error) {
	schedules, err := findAll[models.ScheduledReport](ctx, r.db.Collection(schedulesCollection),
		bson.M{"next_run": bson.M{"$lte": now}},
		options.Find().SetSort(bson.D{{Key: "next_run", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("get due schedules: %w", err)
	}
	return schedules, nil
}

// MarkRun records a successful run on the schedule row.
func (r *MongoDBRepository) MarkRun(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"last_run": lastRun,
			"next_run": nextRun,
		},
	}

	res, err := r.db.Collection(schedulesCollection).UpdateOne(ctx, scheduleIDFilter(id), update)
	if err != nil {
		return fmt.Errorf("update schedule %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update schedule %s: %w", id, mongo.ErrNoDocuments)
	}

	r.logger.Debug("schedule advanced", zap.String("schedule_id", id), zap.Time("next_run", nextRun))
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var rows []T
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return rows, nil
}

func dateRangeFilter(field string, dateRange models.DateRange) bson.M {
	bounds := bson.M{}
	if dateRange.From != nil {
		bounds["$gte"] = *dateRange.From
	}
	if dateRange.To != nil {
		bounds["$lte"] = *dateRange.To
	}
	if len(bounds) == 0 {
		return bson.M{}
	}
	return bson.M{field: bounds}
}

func medicalRecordsFilter(dateRange models.DateRange) bson.M {
	filter := bson.M{}
	if dateRange.From != nil {
		filter["admission_date"] = bson.M{"$gte": *dateRange.From}
	}
	if dateRange.To != nil {
		filter["discharge_date"] = bson.M{"$lte": *dateRange.To}
	}
	return filter
}

// Schedule ids may be stored either as ObjectIDs or as plain strings.
func scheduleIDFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}
