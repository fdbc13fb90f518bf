package mongo

import (
	"fmt"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain/entity"
	"github.com/Shiyikai2002/student-trading-platform/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("amount %s cannot be stored: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// objectID converts a hex id coming from the domain. Malformed ids can never
// match a document, so they are reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, repository.ErrNotFound)
	}
	return oid, nil
}

func insertedHex(id interface{}) (string, error) {
	oid, ok := id.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted ID to ObjectID")
	}
	return oid.Hex(), nil
}

type userDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Username        string               `bson:"username"`
	Email           string               `bson:"email"`
	PasswordHash    string               `bson:"password_hash"`
	Role            entity.Role          `bson:"role"`
	Balance         primitive.Decimal128 `bson:"balance"`
	Address         string               `bson:"address,omitempty"`
	Bio             string               `bson:"bio,omitempty"`
	ProfileImageURL string               `bson:"profile_image_url,omitempty"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

func fromUserEntity(u *entity.User) (*userDocument, error) {
	balance, err := toDecimal128(u.Balance)
	if err != nil {
		return nil, err
	}
	return &userDocument{
		Username:        u.Username,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		Role:            u.Role,
		Balance:         balance,
		Address:         u.Address,
		Bio:             u.Bio,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}, nil
}

func (d *userDocument) toEntity() *entity.User {
	return &entity.User{
		ID:              d.ID.Hex(),
		Username:        d.Username,
		Email:           d.Email,
		PasswordHash:    d.PasswordHash,
		Role:            d.Role,
		Balance:         fromDecimal128(d.Balance),
		Address:         d.Address,
		Bio:             d.Bio,
		ProfileImageURL: d.ProfileImageURL,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type itemDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Category    entity.Category      `bson:"category"`
	Price       primitive.Decimal128 `bson:"price"`
	Status      entity.ItemStatus    `bson:"status"`
	SellerID    string               `bson:"seller_id"`
	ImageURLs   []string             `bson:"image_urls"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
	Version     int                  `bson:"version"`
}

func fromItemEntity(i *entity.Item) (*itemDocument, error) {
	price, err := toDecimal128(i.Price)
	if err != nil {
		return nil, err
	}
	images := i.ImageURLs
	if images == nil {
		images = []string{}
	}
	return &itemDocument{
		Name:        i.Name,
		Description: i.Description,
		Category:    i.Category,
		Price:       price,
		Status:      i.Status,
		SellerID:    i.SellerID,
		ImageURLs:   images,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
		Version:     i.Version,
	}, nil
}

func (d *itemDocument) toEntity() entity.Item {
	images := d.ImageURLs
	if images == nil {
		images = []string{}
	}
	return entity.Item{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Price:       fromDecimal128(d.Price),
		Status:      d.Status,
		SellerID:    d.SellerID,
		ImageURLs:   images,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Version:     d.Version,
	}
}

type transactionDocument struct {
	ID                 primitive.ObjectID       `bson:"_id,omitempty"`
	BuyerID            string                   `bson:"buyer_id"`
	SellerID           string                   `bson:"seller_id"`
	ItemID             string                   `bson:"item_id"`
	TotalPrice         primitive.Decimal128     `bson:"total_price"`
	Status             entity.TransactionStatus `bson:"status"`
	BuyerConfirmation  bool                     `bson:"buyer_confirmation"`
	SellerConfirmation bool                     `bson:"seller_confirmation"`
	ShippingAddress    string                   `bson:"shipping_address,omitempty"`
	Source             entity.TransactionSource `bson:"source"`
	DateInitiated      time.Time                `bson:"date_initiated"`
	DateCompleted      *time.Time               `bson:"date_completed"`
}

func fromTransactionEntity(t *entity.Transaction) (*transactionDocument, error) {
	total, err := toDecimal128(t.TotalPrice)
	if err != nil {
		return nil, err
	}
	return &transactionDocument{
		BuyerID:            t.BuyerID,
		SellerID:           t.SellerID,
		ItemID:             t.ItemID,
		TotalPrice:         total,
		Status:             t.Status,
		BuyerConfirmation:  t.BuyerConfirmation,
		SellerConfirmation: t.SellerConfirmation,
		ShippingAddress:    t.ShippingAddress,
		Source:             t.Source,
		DateInitiated:      t.DateInitiated,
		DateCompleted:      t.DateCompleted,
	}, nil
}

func (d *transactionDocument) toEntity() entity.Transaction {
	return entity.Transaction{
		ID:                 d.ID.Hex(),
		BuyerID:            d.BuyerID,
		SellerID:           d.SellerID,
		ItemID:             d.ItemID,
		TotalPrice:         fromDecimal128(d.TotalPrice),
		Status:             d.Status,
		BuyerConfirmation:  d.BuyerConfirmation,
		SellerConfirmation: d.SellerConfirmation,
		ShippingAddress:    d.ShippingAddress,
		Source:             d.Source,
		DateInitiated:      d.DateInitiated,
		DateCompleted:      d.DateCompleted,
	}
}

type offerDocument struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	BuyerID    string               `bson:"buyer_id"`
	ItemID     string               `bson:"item_id"`
	Price      primitive.Decimal128 `bson:"price"`
	Status     entity.OfferStatus   `bson:"status"`
	CreatedAt  time.Time            `bson:"created_at"`
	ResolvedAt *time.Time           `bson:"resolved_at,omitempty"`
}

func fromOfferEntity(o *entity.Offer) (*offerDocument, error) {
	price, err := toDecimal128(o.Price)
	if err != nil {
		return nil, err
	}
	return &offerDocument{
		BuyerID:    o.BuyerID,
		ItemID:     o.ItemID,
		Price:      price,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		ResolvedAt: o.ResolvedAt,
	}, nil
}

func (d *offerDocument) toEntity() entity.Offer {
	return entity.Offer{
		ID:         d.ID.Hex(),
		BuyerID:    d.BuyerID,
		ItemID:     d.ItemID,
		Price:      fromDecimal128(d.Price),
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
		ResolvedAt: d.ResolvedAt,
	}
}

type messageDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	SenderID   string             `bson:"sender_id"`
	ReceiverID string             `bson:"receiver_id"`
	Content    string             `bson:"content"`
	Timestamp  time.Time          `bson:"timestamp"`
	IsRead     bool               `bson:"is_read"`
}

func fromMessageEntity(m *entity.Message) *messageDocument {
	return &messageDocument{
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp,
		IsRead:     m.IsRead,
	}
}

func (d *messageDocument) toEntity() entity.Message {
	return entity.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Content:    d.Content,
		Timestamp:  d.Timestamp,
		IsRead:     d.IsRead,
	}
}

type reportDocument struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	ItemID      string              `bson:"item_id"`
	ReporterID  string              `bson:"reporter_id"`
	Reason      string              `bson:"reason"`
	Description string              `bson:"description,omitempty"`
	Status      entity.ReportStatus `bson:"status"`
	CreatedAt   time.Time           `bson:"created_at"`
}

func fromReportEntity(r *entity.Report) *reportDocument {
	return &reportDocument{
		ItemID:      r.ItemID,
		ReporterID:  r.ReporterID,
		Reason:      r.Reason,
		Description: r.Description,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
	}
}

func (d *reportDocument) toEntity() entity.Report {
	return entity.Report{
		ID:          d.ID.Hex(),
		ItemID:      d.ItemID,
		ReporterID:  d.ReporterID,
		Reason:      d.Reason,
		Description: d.Description,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}
}

type reviewDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	ReviewerID string             `bson:"reviewer_id"`
	ItemID     string             `bson:"item_id"`
	Rating     int                `bson:"rating"`
	Comment    string             `bson:"comment"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d *reviewDocument) toEntity() entity.Review {
	return entity.Review{
		ID:         d.ID.Hex(),
		ReviewerID: d.ReviewerID,
		ItemID:     d.ItemID,
		Rating:     d.Rating,
		Comment:    d.Comment,
		CreatedAt:  d.CreatedAt,
	}
}

type userRatingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RatedUserID string             `bson:"rated_user_id"`
	ReviewerID  string             `bson:"reviewer_id"`
	Rating      int                `bson:"rating"`
	Comment     string             `bson:"comment"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (d *userRatingDocument) toEntity() entity.UserRating {
	return entity.UserRating{
		ID:          d.ID.Hex(),
		RatedUserID: d.RatedUserID,
		ReviewerID:  d.ReviewerID,
		Rating:      d.Rating,
		Comment:     d.Comment,
		CreatedAt:   d.CreatedAt,
	}
}

type wishlistDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	UserID  string             `bson:"user_id"`
	ItemID  string             `bson:"item_id"`
	AddedAt time.Time          `bson:"added_at"`
}

func (d *wishlistDocument) toEntity() entity.WishlistEntry {
	return entity.WishlistEntry{
		UserID:  d.UserID,
		ItemID:  d.ItemID,
		AddedAt: d.AddedAt,
	}
}

// ratingSummaryDocument is the shape produced by the $group stage used for
// item and user rating summaries.
type ratingSummaryDocument struct {
	Average float64 `bson:"average"`
	Count   int64   `bson:"count"`
}
