package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/riskpipe/supplychain/internal/config"
	"github.com/riskpipe/supplychain/internal/errkind"
	"github.com/riskpipe/supplychain/pkg/model"
)

// Collection names, fixed by spec.md §6.
const (
	collCompanies  = "companies"
	collSuppliers  = "suppliers"
	collArticles   = "articles"
	collRiskEvents = "risk_events"
	collAlerts     = "alerts"
	collReports    = "reports"
)

// MongoStore is the MongoDB-backed Store implementation, connected via
// the mongo_uri/mongo_db_name configuration keys.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies connectivity, matching
// the teacher's redisclient.New shape: parse config, build a client,
// fail fast with a ConfigError-wrapped error on connection failure.
func NewMongoStore(cfg *config.Config) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("connect to mongo: %w", err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errkind.Wrap(errkind.ConfigError, fmt.Errorf("ping mongo: %w", err))
	}

	return &MongoStore{client: client, db: client.Database(cfg.MongoDBName)}, nil
}

// Close releases the underlying connection pool.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) GetCompany(ctx context.Context, id string) (model.CompanyProfile, error) {
	var company model.CompanyProfile
	err := m.db.Collection(collCompanies).FindOne(ctx, bson.M{"_id": id}).Decode(&company)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.CompanyProfile{}, errkind.Wrap(errkind.NotFound, fmt.Errorf("company %s not found", id))
		}
		return model.CompanyProfile{}, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("get company: %w", err))
	}
	return company, nil
}

func (m *MongoStore) UpsertCompany(ctx context.Context, company model.CompanyProfile) error {
	_, err := m.db.Collection(collCompanies).ReplaceOne(
		ctx, bson.M{"_id": company.ID}, company, options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert company: %w", err))
	}
	return nil
}

func (m *MongoStore) ListSuppliers(ctx context.Context, companyID string) ([]model.Supplier, error) {
	cursor, err := m.db.Collection(collSuppliers).Find(ctx, bson.M{"company_id": companyID})
	if err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("list suppliers: %w", err))
	}
	defer cursor.Close(ctx)

	var suppliers []model.Supplier
	if err := cursor.All(ctx, &suppliers); err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("decode suppliers: %w", err))
	}
	return suppliers, nil
}

func (m *MongoStore) GetSupplierByName(ctx context.Context, companyID, name string) (model.Supplier, bool, error) {
	var supplier model.Supplier
	err := m.db.Collection(collSuppliers).FindOne(ctx, bson.M{"company_id": companyID, "name": name}).Decode(&supplier)
	if err == mongo.ErrNoDocuments {
		return model.Supplier{}, false, nil
	}
	if err != nil {
		return model.Supplier{}, false, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("get supplier by name: %w", err))
	}
	return supplier, true, nil
}

func (m *MongoStore) UpsertSupplier(ctx context.Context, supplier model.Supplier) error {
	_, err := m.db.Collection(collSuppliers).ReplaceOne(
		ctx, bson.M{"_id": supplier.ID}, supplier, options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert supplier: %w", err))
	}
	return nil
}

func (m *MongoStore) UpsertArticle(ctx context.Context, article model.Article) error {
	_, err := m.db.Collection(collArticles).ReplaceOne(
		ctx, bson.M{"_id": article.EventID}, article, options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert article: %w", err))
	}
	return nil
}

func (m *MongoStore) GetArticle(ctx context.Context, eventID string) (model.Article, error) {
	var article model.Article
	err := m.db.Collection(collArticles).FindOne(ctx, bson.M{"_id": eventID}).Decode(&article)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Article{}, errkind.Wrap(errkind.NotFound, fmt.Errorf("article %s not found", eventID))
		}
		return model.Article{}, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("get article: %w", err))
	}
	return article, nil
}

func (m *MongoStore) MarkProcessed(ctx context.Context, eventID string, riskEventID string) error {
	// An empty riskEventID means the LLM found no risk (or the article was
	// filtered out before extraction): spec.md invariant 1 requires the
	// article be marked processed WITHOUT a linked RiskEvent in that case.
	update := bson.M{"processed": true}
	if riskEventID == "" {
		update["risk_extracted"] = false
		update["risk_event_id"] = nil
	} else {
		update["risk_extracted"] = true
		update["risk_event_id"] = riskEventID
	}

	_, err := m.db.Collection(collArticles).UpdateOne(
		ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": update},
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("mark article processed: %w", err))
	}
	return nil
}

func (m *MongoStore) UpsertRiskEvent(ctx context.Context, event model.RiskEvent) error {
	_, err := m.db.Collection(collRiskEvents).ReplaceOne(
		ctx, bson.M{"_id": event.ID}, event, options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert risk event: %w", err))
	}
	return nil
}

func (m *MongoStore) GetRiskEvent(ctx context.Context, id string) (model.RiskEvent, error) {
	var event model.RiskEvent
	err := m.db.Collection(collRiskEvents).FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.RiskEvent{}, errkind.Wrap(errkind.NotFound, fmt.Errorf("risk event %s not found", id))
		}
		return model.RiskEvent{}, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("get risk event: %w", err))
	}
	return event, nil
}

func (m *MongoStore) UpsertAlert(ctx context.Context, alert model.Alert) error {
	_, err := m.db.Collection(collAlerts).ReplaceOne(
		ctx, bson.M{"_id": alert.ID}, alert, options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("upsert alert: %w", err))
	}
	return nil
}

func (m *MongoStore) GetAlert(ctx context.Context, id string) (model.Alert, error) {
	var alert model.Alert
	err := m.db.Collection(collAlerts).FindOne(ctx, bson.M{"_id": id}).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return model.Alert{}, errkind.Wrap(errkind.NotFound, fmt.Errorf("alert %s not found", id))
		}
		return model.Alert{}, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("get alert: %w", err))
	}
	return alert, nil
}

func (m *MongoStore) ListUnacknowledged(ctx context.Context, companyID string, severity model.Severity, limit int) ([]model.Alert, error) {
	// Alert documents carry no company_id field, so companyID does not
	// narrow the result (MemoryStore ignores it the same way).
	filter := bson.M{"is_acknowledged": false}
	if severity != "" {
		filter["severity_band"] = severity
	}

	opts := options.Find().SetSort(bson.D{{Key: "risk_score", Value: -1}}).SetLimit(int64(limit))
	cursor, err := m.db.Collection(collAlerts).Find(ctx, filter, opts)
	if err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("list unacknowledged alerts: %w", err))
	}
	defer cursor.Close(ctx)

	var alerts []model.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("decode alerts: %w", err))
	}
	return alerts, nil
}

func (m *MongoStore) Acknowledge(ctx context.Context, id, acknowledgedBy string) error {
	now := time.Now().UTC()
	_, err := m.db.Collection(collAlerts).UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_acknowledged": true, "acknowledged_by": acknowledgedBy, "acknowledged_at": now}},
	)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("acknowledge alert: %w", err))
	}
	return nil
}

func (m *MongoStore) InsertReport(ctx context.Context, report model.Report) error {
	_, err := m.db.Collection(collReports).InsertOne(ctx, report)
	if err != nil {
		return errkind.Wrap(errkind.TransientExternal, fmt.Errorf("insert report: %w", err))
	}
	return nil
}

func (m *MongoStore) ListReports(ctx context.Context, companyID string, period model.ReportPeriod, limit int) ([]model.Report, error) {
	filter := bson.M{"company_id": companyID}
	if period != "" {
		filter["period"] = period
	}
	opts := options.Find().SetSort(bson.D{{Key: "generated_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := m.db.Collection(collReports).Find(ctx, filter, opts)
	if err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("list reports: %w", err))
	}
	defer cursor.Close(ctx)

	var reports []model.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("decode reports: %w", err))
	}
	return reports, nil
}

var _ Store = (*MongoStore)(nil)
