package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qiniu/qmgo"
	"github.com/sifan077/FlexQR/internal/app/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	qrCodesCollection = "qr_codes"
	scansCollection   = "qr_scans"
)

// EnsureMongoIndexes creates the unique short code index and the scan foreign key index.
func EnsureMongoIndexes(ctx context.Context, db *qmgo.Database) error {
	codes, err := db.Collection(qrCodesCollection).CloneCollection()
	if err != nil {
		return fmt.Errorf("mongo: clone %s: %w", qrCodesCollection, err)
	}
	if _, err := codes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "short_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo: index short_code: %w", err)
	}
	if _, err := codes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("mongo: index owner_id: %w", err)
	}

	scans, err := db.Collection(scansCollection).CloneCollection()
	if err != nil {
		return fmt.Errorf("mongo: clone %s: %w", scansCollection, err)
	}
	if _, err := scans.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "qr_code_id", Value: 1}, {Key: "scanned_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("mongo: index qr_code_id: %w", err)
	}
	return nil
}

type mongoQrCodeRepository struct {
	coll *qmgo.Collection
}

// NewMongoQrCodeRepository returns a QrCodeRepository backed by a MongoDB collection.
func NewMongoQrCodeRepository(db *qmgo.Database) QrCodeRepository {
	return &mongoQrCodeRepository{coll: db.Collection(qrCodesCollection)}
}

func (r *mongoQrCodeRepository) Create(ctx context.Context, qr *model.QrCode) error {
	if qr.ID == "" {
		qr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	qr.CreatedAt = now
	qr.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, qr); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateShortCode
		}
		return err
	}
	return nil
}

func (r *mongoQrCodeRepository) GetByID(ctx context.Context, id string) (*model.QrCode, error) {
	return r.one(ctx, bson.M{"_id": id})
}

func (r *mongoQrCodeRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.QrCode, error) {
	return r.one(ctx, bson.M{"short_code": shortCode})
}

func (r *mongoQrCodeRepository) one(ctx context.Context, filter bson.M) (*model.QrCode, error) {
	var qr model.QrCode
	if err := r.coll.Find(ctx, filter).One(&qr); err != nil {
		if errors.Is(err, qmgo.ErrNoSuchDocuments) {
			return nil, ErrQrCodeNotFound
		}
		return nil, err
	}
	return &qr, nil
}

func (r *mongoQrCodeRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]model.QrCode, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	filter := bson.M{}
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}

	result := []model.QrCode{}
	if err := r.coll.Find(ctx, filter).
		Sort("-created_at").
		Skip(int64(offset)).
		Limit(int64(limit)).
		All(&result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *mongoQrCodeRepository) Update(ctx context.Context, qr *model.QrCode) error {
	err := r.coll.UpdateOne(ctx, bson.M{"_id": qr.ID}, bson.M{"$set": bson.M{
		"name":            qr.Name,
		"destination_url": qr.DestinationURL,
		"scan_limit":      qr.ScanLimit,
		"campaign":        qr.Campaign,
		"style":           qr.Style,
		"updated_at":      time.Now().UTC(),
	}})
	if err != nil {
		if errors.Is(err, qmgo.ErrNoSuchDocuments) {
			return ErrQrCodeNotFound
		}
		return err
	}

	updated, err := r.GetByID(ctx, qr.ID)
	if err != nil {
		return err
	}
	*qr = *updated
	return nil
}

func (r *mongoQrCodeRepository) ListShortCodes(ctx context.Context) ([]string, error) {
	var docs []struct {
		ShortCode string `bson:"short_code"`
	}
	if err := r.coll.Find(ctx, bson.M{}).Select(bson.M{"short_code": 1}).All(&docs); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(docs))
	for _, d := range docs {
		codes = append(codes, d.ShortCode)
	}
	return codes, nil
}

type mongoScanEventRepository struct {
	coll *qmgo.Collection
}

// NewMongoScanEventRepository returns a ScanEventRepository backed by a MongoDB collection.
func NewMongoScanEventRepository(db *qmgo.Database) ScanEventRepository {
	return &mongoScanEventRepository{coll: db.Collection(scansCollection)}
}

func (r *mongoScanEventRepository) Create(ctx context.Context, event *model.ScanEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateScanEvent
		}
		return err
	}
	return nil
}

func (r *mongoScanEventRepository) CountByQrCode(ctx context.Context, qrCodeID string) (int64, error) {
	return r.coll.Find(ctx, bson.M{"qr_code_id": qrCodeID}).Count()
}

func (r *mongoScanEventRepository) ListByQrCode(ctx context.Context, qrCodeID string, limit, offset int) ([]model.ScanEvent, error) {
	query := r.coll.Find(ctx, bson.M{"qr_code_id": qrCodeID}).Sort("scanned_at")
	if offset > 0 {
		query = query.Skip(int64(offset))
	}
	if limit > 0 {
		query = query.Limit(int64(limit))
	}

	result := []model.ScanEvent{}
	if err := query.All(&result); err != nil {
		return nil, err
	}
	return result, nil
}
