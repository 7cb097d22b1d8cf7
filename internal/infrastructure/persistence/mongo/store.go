// Package mongo stores each sale as one document with its offers embedded,
// plus a separate collection for the per-buyer ledger. Reservations run in a
// multi-document transaction, so the server must be a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
)

const (
	colSales       = "sales"
	colAllocations = "offer_buyer_allocations"
	colProducts    = "products"

	writeConflictCode = 112
)

type Store struct {
	client      *mongo.Client
	sales       *mongo.Collection
	allocations *mongo.Collection
	products    *mongo.Collection
}

func Connect(ctx context.Context, cfg config.MongoConfig) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return New(client, cfg.Database), nil
}

func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:      client,
		sales:       db.Collection(colSales),
		allocations: db.Collection(colAllocations),
		products:    db.Collection(colProducts),
	}
}

// Migrate creates the indexes the queries rely on.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.sales: {
			{Keys: bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "ends_at", Value: 1}}},
		},
		s.allocations: {
			{Keys: bson.D{{Key: "sale_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "sale_id", Value: 1}, {Key: "offer_id", Value: 1}, {Key: "buyer_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for col, models := range indexes {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col.Name(), err)
		}
	}
	return nil
}

func (s *Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return classify(err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx)
	})
	return classify(err)
}

func (s *Store) CreateSale(ctx context.Context, sl *sale.Sale) error {
	if sl.Version == 0 {
		sl.Version = 1
	}

	end := monitoring.TimeDBQuery("INSERT", colSales)
	defer end()

	if _, err := s.sales.InsertOne(ctx, toSaleDocument(sl)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainErrors.NewValidationError("id", "sale already exists")
		}
		return fmt.Errorf("mongo: create sale: %w", classify(err))
	}
	return nil
}

func liveSale(id string) bson.M {
	return bson.M{"_id": id, "deleted_at": nil}
}

func (s *Store) findSale(ctx context.Context, id string) (*sale.Sale, error) {
	end := monitoring.TimeDBQuery("SELECT", colSales)
	defer end()

	var doc saleDocument
	if err := s.sales.FindOne(ctx, liveSale(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainErrors.ErrSaleNotFound
		}
		return nil, classify(err)
	}
	return fromSaleDocument(&doc)
}

func (s *Store) GetSale(ctx context.Context, id string) (*sale.Sale, error) {
	sl, err := s.findSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fillTopBuyers(ctx, sl); err != nil {
		return nil, err
	}
	return sl, nil
}

// fillTopBuyers sets each offer's TopBuyerUnits from the ledger.
func (s *Store) fillTopBuyers(ctx context.Context, sl *sale.Sale) error {
	end := monitoring.TimeDBQuery("SELECT", colAllocations)
	defer end()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "sale_id", Value: sl.ID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$offer_id"},
			{Key: "top", Value: bson.D{{Key: "$max", Value: "$quantity"}}},
		}}},
	}
	cursor, err := s.allocations.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("mongo: top buyers: %w", classify(err))
	}

	var rows []struct {
		OfferID string `bson:"_id"`
		Top     int    `bson:"top"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return fmt.Errorf("mongo: top buyers: %w", classify(err))
	}

	top := make(map[string]int, len(rows))
	for _, row := range rows {
		top[row.OfferID] = row.Top
	}
	for i := range sl.Offers {
		sl.Offers[i].TopBuyerUnits = top[sl.Offers[i].ID]
	}
	return nil
}

func listFilter(filter sale.ListFilter) bson.M {
	query := bson.M{}
	if !filter.IncludeDeleted {
		query["deleted_at"] = nil
	}
	if filter.EndsAfter != nil {
		query["ends_at"] = bson.M{"$gt": filter.EndsAfter.UTC()}
	}
	return query
}

func (s *Store) ListSales(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	end := monitoring.TimeDBQuery("SELECT", colSales)
	defer end()

	opts := options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.sales.Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list sales: %w", classify(err))
	}

	var docs []saleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: list sales: %w", classify(err))
	}

	out := make([]*sale.Sale, 0, len(docs))
	for i := range docs {
		sl, err := fromSaleDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, nil
}

func (s *Store) UpdateSale(ctx context.Context, sl *sale.Sale, expectedVersion int64) error {
	var version int64
	err := s.withTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.GetSale(ctx, sl.ID)
		if err != nil {
			return err
		}
		next, err := sale.MergeAdminUpdate(stored, sl, expectedVersion)
		if err != nil {
			return err
		}

		end := monitoring.TimeDBQuery("UPDATE", colSales)
		res, err := s.sales.ReplaceOne(ctx,
			bson.M{"_id": sl.ID, "version": expectedVersion, "deleted_at": nil},
			toSaleDocument(next))
		end()
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return domainErrors.ErrVersionConflict
		}
		version = next.Version
		return nil
	})
	if err != nil {
		return err
	}

	sl.Version = version
	return nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	end := monitoring.TimeDBQuery("DELETE", colSales)
	res, err := s.sales.DeleteOne(ctx, bson.M{"_id": id, "deleted_at": nil, "total_units_sold": 0})
	end()
	if err != nil {
		return fmt.Errorf("mongo: delete sale: %w", classify(err))
	}
	if res.DeletedCount == 0 {
		if _, err := s.findSale(ctx, id); err != nil {
			return err
		}
		return domainErrors.ErrSaleHasReservations
	}

	if _, err := s.allocations.DeleteMany(ctx, bson.M{"sale_id": id}); err != nil {
		return fmt.Errorf("mongo: delete allocations: %w", classify(err))
	}
	return nil
}

func (s *Store) SoftDeleteSale(ctx context.Context, id string, at time.Time) error {
	end := monitoring.TimeDBQuery("UPDATE", colSales)
	defer end()

	res, err := s.sales.UpdateOne(ctx, liveSale(id), bson.M{
		"$set": bson.M{"deleted_at": at.UTC(), "manually_disabled": true, "updated_at": at.UTC()},
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return fmt.Errorf("mongo: soft delete sale: %w", classify(err))
	}
	if res.MatchedCount == 0 {
		return domainErrors.ErrSaleNotFound
	}
	return nil
}

func (s *Store) RecordView(ctx context.Context, id string) error {
	end := monitoring.TimeDBQuery("UPDATE", colSales)
	defer end()

	res, err := s.sales.UpdateOne(ctx, liveSale(id), bson.M{"$inc": bson.M{"total_views": 1}})
	if err != nil {
		return fmt.Errorf("mongo: record view: %w", classify(err))
	}
	if res.MatchedCount == 0 {
		return domainErrors.ErrSaleNotFound
	}
	return nil
}

func (s *Store) ReserveUnits(ctx context.Context, req sale.ReserveRequest) (*sale.ReservationReceipt, error) {
	var receipt *sale.ReservationReceipt

	err := s.withTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.findSale(ctx, req.SaleID)
		if err != nil {
			return err
		}
		offer, ok := stored.FindOffer(req.OfferID)
		if !ok {
			return domainErrors.ErrOfferNotFound
		}
		if sale.EvaluatePhase(stored, req.Now) != sale.PhaseActive {
			return domainErrors.ErrSaleNotActive
		}

		buyerTotal, err := s.BuyerTotal(ctx, req.SaleID, req.OfferID, req.BuyerID)
		if err != nil {
			return err
		}
		if _, err := sale.CheckReservation(req, offer, buyerTotal); err != nil {
			return err
		}

		// Concurrent writers to the same document abort with a write conflict
		// and the transaction is retried, so the guard sees fresh counters.
		end := monitoring.TimeDBQuery("UPDATE", colSales)
		res, err := s.sales.UpdateOne(ctx,
			bson.M{
				"_id":        req.SaleID,
				"deleted_at": nil,
				"offers": bson.M{"$elemMatch": bson.M{
					"id":         req.OfferID,
					"units_sold": bson.M{"$lte": offer.TotalStock - req.Quantity},
				}},
			},
			bson.M{"$inc": bson.M{
				"offers.$.units_sold": req.Quantity,
				"total_units_sold":    req.Quantity,
			}})
		end()
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return &domainErrors.InsufficientStockError{Remaining: offer.RemainingStock()}
		}

		end = monitoring.TimeDBQuery("UPSERT", colAllocations)
		_, err = s.allocations.UpdateOne(ctx,
			bson.M{
				"_id":      allocationID(req.SaleID, req.OfferID, req.BuyerID),
				"quantity": bson.M{"$lte": offer.MaxUnitsPerBuyer - req.Quantity},
			},
			bson.M{
				"$inc":         bson.M{"quantity": req.Quantity},
				"$set":         bson.M{"updated_at": req.Now.UTC()},
				"$setOnInsert": bson.M{"sale_id": req.SaleID, "offer_id": req.OfferID, "buyer_id": req.BuyerID},
			},
			options.UpdateOne().SetUpsert(true))
		end()
		if mongo.IsDuplicateKeyError(err) {
			// The guard filter missed an existing row: the buyer is at quota.
			remaining := offer.MaxUnitsPerBuyer - buyerTotal
			if remaining < 0 {
				remaining = 0
			}
			return &domainErrors.QuotaExceededError{Remaining: remaining}
		}
		if err != nil {
			return err
		}

		offer.UnitsSold += req.Quantity
		receipt = sale.NewReceipt(req, offer, buyerTotal+req.Quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Store) BuyerTotal(ctx context.Context, saleID, offerID, buyerID string) (int, error) {
	end := monitoring.TimeDBQuery("SELECT", colAllocations)
	defer end()

	var doc allocationDocument
	err := s.allocations.FindOne(ctx, bson.M{"_id": allocationID(saleID, offerID, buyerID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, classify(err)
	}
	return doc.Quantity, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// classify maps transient transaction failures to ErrContention so the
// allocator retries them.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) &&
		(serverErr.HasErrorLabel("TransientTransactionError") || serverErr.HasErrorCode(writeConflictCode)) {
		return fmt.Errorf("%w: %v", domainErrors.ErrContention, err)
	}
	return err
}
