package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	billingDomain "github.com/davicafu/tiendalab/internal/billing/domain"
	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	outboxMongo "github.com/davicafu/tiendalab/internal/shared/infra/platform/db/mongodb"
)

// InvoiceRepoMongoDB implementa InvoiceRepository sobre MongoDB. Los
// importes se guardan como texto decimal para no perder precisión en
// float64 de BSON. El contador de numeración vive en su propia colección
// y avanza con findOneAndUpdate atómico.
type InvoiceRepoMongoDB struct {
	client       *mongo.Client
	invoicesColl *mongo.Collection
	countersColl *mongo.Collection
	outboxColl   *mongo.Collection
}

func NewInvoiceRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*InvoiceRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	repo := &InvoiceRepoMongoDB{
		client:       client,
		invoicesColl: db.Collection("invoices"),
		countersColl: db.Collection("invoice_counters"),
		outboxColl:   db.Collection("outbox"),
	}

	// Una factura por pedido: el índice único es la guarda de idempotencia.
	_, err := repo.invoicesColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "invoiceNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create invoice indexes: %w", err)
	}

	return repo, nil
}

var _ billingDomain.InvoiceRepository = (*InvoiceRepoMongoDB)(nil)

// Structs de BSON locales para no contaminar el dominio con tags.

type mongoInvoice struct {
	ID             uuid.UUID  `bson:"_id"`
	InvoiceNumber  string     `bson:"invoiceNumber"`
	OrderID        uuid.UUID  `bson:"orderId"`
	OrderNumber    string     `bson:"orderNumber"`
	CustomerID     string     `bson:"customerId"`
	CustomerName   string     `bson:"customerName"`
	CustomerEmail  string     `bson:"customerEmail"`
	CustomerAddr   string     `bson:"customerAddress"`
	IssueDate      time.Time  `bson:"issueDate"`
	DueDate        time.Time  `bson:"dueDate"`
	Subtotal       string     `bson:"subtotal"`
	TaxRate        string     `bson:"taxRate"`
	TaxAmount      string     `bson:"taxAmount"`
	DiscountAmount string     `bson:"discountAmount"`
	TotalAmount    string     `bson:"totalAmount"`
	Status         string     `bson:"status"`
	Notes          string     `bson:"notes"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
	PaidAt         *time.Time `bson:"paidAt,omitempty"`
}

func (r *InvoiceRepoMongoDB) NextSequence(ctx context.Context, year int) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := r.countersColl.FindOneAndUpdate(ctx,
		bson.M{"_id": year},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice counter: %w", err)
	}
	return doc.Seq, nil
}

func (r *InvoiceRepoMongoDB) Create(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.invoicesColl.InsertOne(sessCtx, toMongoInvoice(inv)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, billingDomain.ErrInvoiceAlreadyExists
			}
			return nil, err
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, outboxMongo.ToMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *InvoiceRepoMongoDB) Update(ctx context.Context, inv *billingDomain.Invoice, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := r.replaceInvoice(sessCtx, inv); err != nil {
			return nil, err
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, outboxMongo.ToMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *InvoiceRepoMongoDB) Save(ctx context.Context, inv *billingDomain.Invoice) error {
	return r.replaceInvoice(ctx, inv)
}

func (r *InvoiceRepoMongoDB) replaceInvoice(ctx context.Context, inv *billingDomain.Invoice) error {
	res, err := r.invoicesColl.ReplaceOne(ctx, bson.M{"_id": inv.ID}, toMongoInvoice(inv))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return billingDomain.ErrInvoiceNotFound
	}
	return nil
}

// --- Lectura ---

func (r *InvoiceRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*billingDomain.Invoice, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *InvoiceRepoMongoDB) GetByNumber(ctx context.Context, invoiceNumber string) (*billingDomain.Invoice, error) {
	return r.findOne(ctx, bson.M{"invoiceNumber": invoiceNumber})
}

func (r *InvoiceRepoMongoDB) GetByOrderNumber(ctx context.Context, orderNumber string) (*billingDomain.Invoice, error) {
	return r.findOne(ctx, bson.M{"orderNumber": orderNumber})
}

func (r *InvoiceRepoMongoDB) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*billingDomain.Invoice, error) {
	return r.find(ctx, bson.M{"customerId": customerID}, limit, offset)
}

func (r *InvoiceRepoMongoDB) ListByStatus(ctx context.Context, status billingDomain.InvoiceStatus, limit, offset int) ([]*billingDomain.Invoice, error) {
	return r.find(ctx, bson.M{"status": string(status)}, limit, offset)
}

func (r *InvoiceRepoMongoDB) ListOverdue(ctx context.Context, now time.Time) ([]*billingDomain.Invoice, error) {
	filter := bson.M{
		"status": bson.M{"$in": []string{
			string(billingDomain.InvoiceDraft),
			string(billingDomain.InvoiceIssued),
			string(billingDomain.InvoiceSent),
		}},
		"dueDate": bson.M{"$lt": now},
	}

	cursor, err := r.invoicesColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return collectInvoices(ctx, cursor)
}

// Revenue suma en Go: los importes viven como texto decimal en BSON.
func (r *InvoiceRepoMongoDB) Revenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	filter := bson.M{
		"status":    string(billingDomain.InvoicePaid),
		"issueDate": bson.M{"$gte": start, "$lte": end},
	}

	cursor, err := r.invoicesColl.Find(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}
	defer cursor.Close(ctx)

	total := decimal.Zero
	for cursor.Next(ctx) {
		var mi mongoInvoice
		if err := cursor.Decode(&mi); err != nil {
			return decimal.Zero, err
		}
		amount, err := decimal.NewFromString(mi.TotalAmount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid totalAmount in document %s: %w", mi.ID, err)
		}
		total = total.Add(amount)
	}
	return total, cursor.Err()
}

// --- Helpers de mapeo ---

func (r *InvoiceRepoMongoDB) findOne(ctx context.Context, filter bson.M) (*billingDomain.Invoice, error) {
	var mi mongoInvoice
	if err := r.invoicesColl.FindOne(ctx, filter).Decode(&mi); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, billingDomain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromMongoInvoice(&mi)
}

func (r *InvoiceRepoMongoDB) find(ctx context.Context, filter bson.M, limit, offset int) ([]*billingDomain.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := r.invoicesColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return collectInvoices(ctx, cursor)
}

func collectInvoices(ctx context.Context, cursor *mongo.Cursor) ([]*billingDomain.Invoice, error) {
	var invoices []*billingDomain.Invoice
	for cursor.Next(ctx) {
		var mi mongoInvoice
		if err := cursor.Decode(&mi); err != nil {
			return nil, err
		}
		inv, err := fromMongoInvoice(&mi)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, cursor.Err()
}

func toMongoInvoice(inv *billingDomain.Invoice) *mongoInvoice {
	return &mongoInvoice{
		ID: inv.ID, InvoiceNumber: inv.InvoiceNumber,
		OrderID: inv.OrderID, OrderNumber: inv.OrderNumber,
		CustomerID: inv.CustomerID, CustomerName: inv.CustomerName,
		CustomerEmail: inv.CustomerEmail, CustomerAddr: inv.CustomerAddr,
		IssueDate: inv.IssueDate, DueDate: inv.DueDate,
		Subtotal: inv.Subtotal.String(), TaxRate: inv.TaxRate.String(),
		TaxAmount: inv.TaxAmount.String(), DiscountAmount: inv.DiscountAmount.String(),
		TotalAmount: inv.TotalAmount.String(), Status: string(inv.Status),
		Notes: inv.Notes, CreatedAt: inv.CreatedAt, UpdatedAt: inv.UpdatedAt, PaidAt: inv.PaidAt,
	}
}

func fromMongoInvoice(mi *mongoInvoice) (*billingDomain.Invoice, error) {
	inv := &billingDomain.Invoice{
		ID: mi.ID, InvoiceNumber: mi.InvoiceNumber,
		OrderID: mi.OrderID, OrderNumber: mi.OrderNumber,
		CustomerID: mi.CustomerID, CustomerName: mi.CustomerName,
		CustomerEmail: mi.CustomerEmail, CustomerAddr: mi.CustomerAddr,
		IssueDate: mi.IssueDate, DueDate: mi.DueDate,
		Status: billingDomain.InvoiceStatus(mi.Status),
		Notes:  mi.Notes, CreatedAt: mi.CreatedAt, UpdatedAt: mi.UpdatedAt, PaidAt: mi.PaidAt,
	}

	var err error
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&inv.Subtotal, mi.Subtotal},
		{&inv.TaxRate, mi.TaxRate},
		{&inv.TaxAmount, mi.TaxAmount},
		{&inv.DiscountAmount, mi.DiscountAmount},
		{&inv.TotalAmount, mi.TotalAmount},
	} {
		if *field.dst, err = decimal.NewFromString(field.src); err != nil {
			return nil, fmt.Errorf("invalid decimal in document %s: %w", mi.ID, err)
		}
	}

	return inv, nil
}
