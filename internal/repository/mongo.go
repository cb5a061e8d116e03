package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmeshcher/foodrescue/internal/lifecycle"
	"github.com/mmeshcher/foodrescue/internal/model"
)

const donationsCollection = "donations"

type donationDoc struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	DonorID            string             `bson:"donor_id"`
	DonorKind          string             `bson:"donor_kind"`
	ItemName           string             `bson:"item_name"`
	Category           string             `bson:"category"`
	Quantity           string             `bson:"quantity,omitempty"`
	Description        string             `bson:"description,omitempty"`
	PickupInstructions string             `bson:"pickup_instructions,omitempty"`
	ExpiresAt          *time.Time         `bson:"expires_at,omitempty"`
	EstimatedValue     float64            `bson:"estimated_value"`
	MealsSaved         int64              `bson:"meals_saved"`
	CO2Avoided         float64            `bson:"co2_avoided"`
	Status             string             `bson:"status"`
	VolunteerID        *string            `bson:"volunteer_id"`
	DestinationID      *string            `bson:"destination_id,omitempty"`
	PickupAt           *time.Time         `bson:"pickup_at,omitempty"`
	DeliveredAt        *time.Time         `bson:"delivered_at,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
}

func (d donationDoc) toModel() model.Donation {
	return model.Donation{
		ID:                 d.ID.Hex(),
		DonorID:            d.DonorID,
		DonorKind:          model.DonorKind(d.DonorKind),
		ItemName:           d.ItemName,
		Category:           model.Category(d.Category),
		Quantity:           d.Quantity,
		Description:        d.Description,
		PickupInstructions: d.PickupInstructions,
		ExpiresAt:          utcPtr(d.ExpiresAt),
		EstimatedValue:     d.EstimatedValue,
		Impact:             model.ImpactEstimate{MealsSaved: d.MealsSaved, CO2Avoided: d.CO2Avoided},
		Status:             model.Status(d.Status),
		VolunteerID:        d.VolunteerID,
		DestinationID:      d.DestinationID,
		PickupAt:           utcPtr(d.PickupAt),
		DeliveredAt:        utcPtr(d.DeliveredAt),
		CreatedAt:          d.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// MongoRepository хранит пожертвования в коллекции MongoDB.
// Каждый переход выполняется одним FindOneAndUpdate или UpdateMany с фильтром по исходному состоянию.
type MongoRepository struct {
	client *mongo.Client
	c      *mongo.Collection
}

// NewMongoRepository подключается к MongoDB и создаёт индексы коллекции пожертвований.
func NewMongoRepository(uri, database string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	r := &MongoRepository{
		client: client,
		c:      client.Database(database).Collection(donationsCollection),
	}

	if err := r.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return r, nil
}

// EnsureIndexes создаёт индексы под выборки сервиса.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_donations_status_created"),
		},
		{
			Keys:    bson.D{{Key: "donor_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_donations_donor_status"),
		},
		{
			Keys:    bson.D{{Key: "volunteer_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_donations_volunteer_status"),
		},
	}
	_, err := r.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Close отключается от MongoDB.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// CreateDonation сохраняет новое пожертвование в начальном состоянии.
func (r *MongoRepository) CreateDonation(ctx context.Context, nd model.NewDonation) (*model.Donation, error) {
	doc := donationDoc{
		ID:                 primitive.NewObjectID(),
		DonorID:            nd.DonorID,
		DonorKind:          string(nd.DonorKind),
		ItemName:           nd.ItemName,
		Category:           string(nd.Category),
		Quantity:           nd.Quantity,
		Description:        nd.Description,
		PickupInstructions: nd.PickupInstructions,
		ExpiresAt:          nd.ExpiresAt,
		EstimatedValue:     nd.EstimatedValue,
		MealsSaved:         nd.Impact.MealsSaved,
		CO2Avoided:         nd.Impact.CO2Avoided,
		Status:             string(lifecycle.Initial),
		// MongoDB хранит время с точностью до миллисекунд.
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert donation: %w", err)
	}

	d := doc.toModel()
	return &d, nil
}

// GetDonation возвращает пожертвование по идентификатору.
func (r *MongoRepository) GetDonation(ctx context.Context, id string) (*model.Donation, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc donationDoc
	err = r.c.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDonationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get donation: %w", err)
	}

	d := doc.toModel()
	return &d, nil
}

func mongoFilter(f model.DonationFilter) bson.M {
	filter := bson.M{}
	if f.DonorID != "" {
		filter["donor_id"] = f.DonorID
	}
	if f.VolunteerID != "" {
		filter["volunteer_id"] = f.VolunteerID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": statusStrings(f.Statuses)}
	}
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		created := bson.M{}
		if f.CreatedFrom != nil {
			created["$gte"] = *f.CreatedFrom
		}
		if f.CreatedTo != nil {
			created["$lte"] = *f.CreatedTo
		}
		filter["created_at"] = created
	}
	return filter
}

func mongoSort(s model.SortOrder) bson.D {
	switch s {
	case model.OldestFirst:
		return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	case model.LatestDeliveryFirst:
		return bson.D{{Key: "delivered_at", Value: -1}, {Key: "created_at", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
}

// ListDonations возвращает пожертвования, удовлетворяющие фильтру.
func (r *MongoRepository) ListDonations(ctx context.Context, f model.DonationFilter) ([]model.Donation, error) {
	opts := options.Find().SetSort(mongoSort(f.Sort))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := r.c.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find donations: %w", err)
	}
	defer cur.Close(ctx)

	var docs []donationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode donations: %w", err)
	}

	res := make([]model.Donation, 0, len(docs))
	for _, doc := range docs {
		res = append(res, doc.toModel())
	}
	return res, nil
}

// CountDonations возвращает количество пожертвований, удовлетворяющих фильтру.
func (r *MongoRepository) CountDonations(ctx context.Context, f model.DonationFilter) (int64, error) {
	n, err := r.c.CountDocuments(ctx, mongoFilter(f))
	if err != nil {
		return 0, fmt.Errorf("count donations: %w", err)
	}
	return n, nil
}

// ScheduledVolunteers возвращает различных волонтёров, назначенных на запланированные пожертвования донора.
func (r *MongoRepository) ScheduledVolunteers(ctx context.Context, donorID string) ([]string, error) {
	values, err := r.c.Distinct(ctx, "volunteer_id", bson.M{
		"donor_id":     donorID,
		"status":       string(lifecycle.Pickup.From),
		"volunteer_id": bson.M{"$ne": nil},
	})
	if err != nil {
		return nil, fmt.Errorf("distinct volunteers: %w", err)
	}

	res := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			res = append(res, s)
		}
	}
	sort.Strings(res)
	return res, nil
}

func (r *MongoRepository) updateOne(ctx context.Context, op string, filter, update bson.M) (*model.Donation, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc donationDoc
	err := r.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d := doc.toModel()
	return &d, nil
}

// AssignVolunteer переводит доступное пожертвование в состояние scheduled и привязывает волонтёра.
func (r *MongoRepository) AssignVolunteer(ctx context.Context, id, volunteerID string) (*model.Donation, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "assign volunteer",
		bson.M{"_id": oid, "status": string(lifecycle.Assign.From)},
		bson.M{"$set": bson.M{"status": string(lifecycle.Assign.To), "volunteer_id": volunteerID}},
	)
}

// ReleaseVolunteer возвращает запланированное пожертвование в доступные, если оно привязано к volunteerID.
func (r *MongoRepository) ReleaseVolunteer(ctx context.Context, id, volunteerID string) (*model.Donation, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "release volunteer",
		bson.M{"_id": oid, "status": string(lifecycle.Cancel.From), "volunteer_id": volunteerID},
		bson.M{"$set": bson.M{"status": string(lifecycle.Cancel.To), "volunteer_id": nil}},
	)
}

// MarkPickedUp одним UpdateMany переводит запланированные пожертвования донора,
// привязанные к волонтёру, в состояние picked_up.
func (r *MongoRepository) MarkPickedUp(ctx context.Context, donorID, volunteerID string, at time.Time) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"donor_id": donorID, "volunteer_id": volunteerID, "status": string(lifecycle.Pickup.From)},
		bson.M{"$set": bson.M{"status": string(lifecycle.Pickup.To), "pickup_at": at.UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark picked up: %w", err)
	}
	return res.ModifiedCount, nil
}

// MarkCompleted фиксирует доставку пожертвования, забранного волонтёром volunteerID.
func (r *MongoRepository) MarkCompleted(ctx context.Context, id, volunteerID, destinationID string, at time.Time) (*model.Donation, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "mark completed",
		bson.M{"_id": oid, "status": string(lifecycle.Complete.From), "volunteer_id": volunteerID},
		bson.M{"$set": bson.M{
			"status":         string(lifecycle.Complete.To),
			"destination_id": destinationID,
			"delivered_at":   at.UTC(),
		}},
	)
}

// Withdraw снимает доступное пожертвование с публикации.
func (r *MongoRepository) Withdraw(ctx context.Context, id string) (*model.Donation, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	return r.updateOne(ctx, "withdraw donation",
		bson.M{"_id": oid, "status": string(lifecycle.Withdraw.From)},
		bson.M{"$set": bson.M{"status": string(lifecycle.Withdraw.To)}},
	)
}

// DeleteDonation удаляет пожертвование независимо от его состояния.
func (r *MongoRepository) DeleteDonation(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := r.c.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete donation: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrDonationNotFound
	}
	return nil
}
