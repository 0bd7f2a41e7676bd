package repository

import (
	"context"
	"fmt"
	"log/slog"

	"storefront/internal/logger"
	"storefront/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// productCollection is the part of *mongo.Collection the repository uses.
type productCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type productDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Price     int64              `bson:"price"`
	ImageURL  string             `bson:"image_url,omitempty"`
	Available bool               `bson:"available"`
}

func (d productDocument) toModel() model.Product {
	return model.Product{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		ImageURL:  d.ImageURL,
		Available: d.Available,
	}
}

type MongoProductRepository struct {
	collection productCollection
	ping       func(ctx context.Context) error
}

var ProductRepositoryTracer = otel.Tracer("ProductRepository")

func NewMongoProductRepository(db *mongo.Database, collection string) *MongoProductRepository {
	return &MongoProductRepository{
		collection: db.Collection(collection),
		ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, nil)
		},
	}
}

// ListAll sorts on _id descending; ObjectIDs grow with insertion time.
func (r *MongoProductRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "MongoProductRepository.ListAll")
	defer span.End()
	logger.Info(ctx, "Repository")

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]model.Product, 0)
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

func (r *MongoProductRepository) Insert(ctx context.Context, p model.NewProduct) (*model.Product, error) {
	ctx, span := ProductRepositoryTracer.Start(ctx, "MongoProductRepository.Insert")
	defer span.End()
	logger.Info(ctx, "Repository")

	doc := productDocument{
		ID:        primitive.NewObjectID(),
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Available: p.Available,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insert product: %w", err)
	}

	product := doc.toModel()
	return &product, nil
}

func (r *MongoProductRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, span := ProductRepositoryTracer.Start(ctx, "MongoProductRepository.DeleteByID")
	defer span.End()
	logger.Info(ctx, "Repository", slog.String("id", id))

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// No document can carry a malformed id.
		logger.Warn(ctx, "Delete skipped for malformed id", slog.String("id", id))
		return nil
	}

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) Ping(ctx context.Context) error {
	return r.ping(ctx)
}
