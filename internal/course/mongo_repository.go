package course

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "courses"

// MongoRepository stores courses in a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over the given database.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the text search and listing indexes. Safe to
// call on every startup.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
			},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}, {Key: "level", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "instructorId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	return err
}

func (r *MongoRepository) Create(ctx context.Context, c *Course) error {
	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, c)
	return err
}

func (r *MongoRepository) Update(ctx context.Context, c *Course) error {
	c.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) FindByID(ctx context.Context, id bson.ObjectID) (*Course, error) {
	var c Course
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoRepository) List(ctx context.Context, filter Filter, page Page) (*ListResult, error) {
	page = page.Normalize()
	query := buildQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSkip(page.Offset()).
		SetLimit(int64(page.Size)).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	courses := []Course{}
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}

	totalPages := total / int64(page.Size)
	if total%int64(page.Size) != 0 {
		totalPages++
	}

	return &ListResult{
		Courses:    courses,
		Total:      total,
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: totalPages,
	}, nil
}

func buildQuery(f Filter) bson.M {
	query := bson.M{}
	if f.PublishedOnly {
		query["isPublished"] = true
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.Level != "" {
		query["level"] = f.Level
	}
	if !f.InstructorID.IsZero() {
		query["instructorId"] = f.InstructorID
	}
	if f.Search != "" {
		query["$text"] = bson.M{"$search": f.Search}
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		query["price"] = price
	}
	return query
}

// Stats aggregates catalog totals in a single pipeline pass using $facet.
func (r *MongoRepository) Stats(ctx context.Context) (*Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"totals": bson.A{
				bson.M{"$group": bson.M{
					"_id":              nil,
					"totalCourses":     bson.M{"$sum": 1},
					"publishedCourses": bson.M{"$sum": bson.M{"$cond": bson.A{"$isPublished", 1, 0}}},
					"totalEnrollments": bson.M{"$sum": "$enrollments"},
					"averagePrice":     bson.M{"$avg": "$price"},
				}},
			},
			"byCategory": bson.A{
				bson.M{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
			},
			"byLevel": bson.A{
				bson.M{"$group": bson.M{"_id": "$level", "count": bson.M{"$sum": 1}}},
			},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []struct {
		Totals []struct {
			TotalCourses     int64   `bson:"totalCourses"`
			PublishedCourses int64   `bson:"publishedCourses"`
			TotalEnrollments int64   `bson:"totalEnrollments"`
			AveragePrice     float64 `bson:"averagePrice"`
		} `bson:"totals"`
		ByCategory []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byCategory"`
		ByLevel []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byLevel"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	stats := &Stats{
		ByCategory: map[string]int64{},
		ByLevel:    map[string]int64{},
	}
	if len(raw) == 0 {
		return stats, nil
	}
	if len(raw[0].Totals) > 0 {
		t := raw[0].Totals[0]
		stats.TotalCourses = t.TotalCourses
		stats.PublishedCourses = t.PublishedCourses
		stats.TotalEnrollments = t.TotalEnrollments
		stats.AveragePrice = t.AveragePrice
	}
	for _, c := range raw[0].ByCategory {
		stats.ByCategory[c.ID] = c.Count
	}
	for _, l := range raw[0].ByLevel {
		stats.ByLevel[l.ID] = l.Count
	}
	return stats, nil
}
