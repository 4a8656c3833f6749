package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/insuredocs/docgen/internal/apperr"
	"github.com/insuredocs/docgen/internal/policy"
)

// Mongo reads clients (with embedded addresses) and policies from two
// collections. Coverage and premium blocks may be stored either as embedded
// documents or as JSON strings.
type Mongo struct {
	clients  *mongo.Collection
	policies *mongo.Collection
}

func NewMongo(clients, policies *mongo.Collection) *Mongo {
	return &Mongo{clients: clients, policies: policies}
}

type policyDoc struct {
	ID              string        `bson:"id"`
	ClientID        string        `bson:"clientId"`
	PolicyNumber    string        `bson:"policyNumber"`
	Type            string        `bson:"type"`
	IssueDate       time.Time     `bson:"issueDate"`
	EffectiveDate   time.Time     `bson:"effectiveDate"`
	ExpirationDate  time.Time     `bson:"expirationDate"`
	Status          string        `bson:"status"`
	CoverageDetails bson.RawValue `bson:"coverageDetails"`
	PremiumDetails  bson.RawValue `bson:"premiumDetails"`
}

func (d policyDoc) stored() (policy.Stored, error) {
	s := policy.Stored{
		ID:             d.ID,
		ClientID:       d.ClientID,
		PolicyNumber:   d.PolicyNumber,
		Type:           policy.Type(strings.ToLower(d.Type)),
		IssueDate:      policy.NewDate(d.IssueDate),
		EffectiveDate:  policy.NewDate(d.EffectiveDate),
		ExpirationDate: policy.NewDate(d.ExpirationDate),
		Status:         strings.ToLower(d.Status),
	}
	var err error
	if s.CoverageDetails, err = rawJSON(d.CoverageDetails); err != nil {
		return s, &apperr.DataIntegrityError{PolicyID: d.ID, Field: "coverageDetails", Err: err}
	}
	if s.PremiumDetails, err = rawJSON(d.PremiumDetails); err != nil {
		return s, &apperr.DataIntegrityError{PolicyID: d.ID, Field: "premiumDetails", Err: err}
	}
	return s, nil
}

// rawJSON converts a stored block to JSON. Missing and null values yield
// nil so the decoder can report them.
func rawJSON(v bson.RawValue) (json.RawMessage, error) {
	switch v.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return nil, nil
	case bson.TypeString:
		return json.RawMessage(v.StringValue()), nil
	}
	var decoded interface{}
	if err := v.Unmarshal(&decoded); err != nil {
		return nil, err
	}
	return json.Marshal(plain(decoded))
}

// plain rewrites driver-specific containers into maps, slices and times
// that encoding/json renders naturally.
func plain(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = plain(e)
		}
		return m
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	}
	return v
}

func (m *Mongo) Get(ctx context.Context, id string) (*Client, error) {
	var c Client
	if err := m.clients.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &apperr.ClientNotFoundError{ID: id}
		}
		return nil, &apperr.StorageError{Op: "find client", Key: id, Err: err}
	}
	return &c, nil
}

func (m *Mongo) Search(ctx context.Context, query string, limit int) ([]Summary, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLength {
		return []Summary{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}

	ids, err := m.policies.Distinct(ctx, "clientId", bson.M{"policyNumber": pattern})
	if err != nil {
		return nil, &apperr.StorageError{Op: "search policies", Err: err}
	}
	or := bson.A{bson.M{"fullName": pattern}, bson.M{"email": pattern}}
	if len(ids) > 0 {
		or = append(or, bson.M{"id": bson.M{"$in": ids}})
	}
	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.clients.Find(ctx, bson.M{"$or": or}, opts)
	if err != nil {
		return nil, &apperr.StorageError{Op: "search clients", Err: err}
	}
	defer cur.Close(ctx)

	out := []Summary{}
	for cur.Next(ctx) {
		var c Client
		if err := cur.Decode(&c); err != nil {
			return nil, &apperr.StorageError{Op: "search clients", Err: err}
		}
		pols, err := m.activeDocs(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		s := Summary{ID: c.ID, FullName: c.FullName, Email: c.Email, PhoneNumber: c.PhoneNumber, DateOfBirth: c.DateOfBirth, ActivePolicies: []PolicyRef{}}
		for _, p := range pols {
			s.ActivePolicies = append(s.ActivePolicies, PolicyRef{ID: p.ID, PolicyNumber: p.PolicyNumber, Type: policy.Type(strings.ToLower(p.Type))})
		}
		out = append(out, s)
	}
	if err := cur.Err(); err != nil {
		return nil, &apperr.StorageError{Op: "search clients", Err: err}
	}
	return out, nil
}

func (m *Mongo) DefaultAddress(ctx context.Context, clientID string) (*Address, error) {
	c, err := m.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return defaultAddress(c.Addresses), nil
}

func (m *Mongo) activeDocs(ctx context.Context, clientID string) ([]policyDoc, error) {
	filter := bson.M{
		"clientId": clientID,
		"status":   primitive.Regex{Pattern: "^active$", Options: "i"},
	}
	opts := options.Find().SetSort(bson.D{{Key: "effectiveDate", Value: -1}})
	cur, err := m.policies.Find(ctx, filter, opts)
	if err != nil {
		return nil, &apperr.StorageError{Op: "find policies", Key: clientID, Err: err}
	}
	defer cur.Close(ctx)
	var docs []policyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, &apperr.StorageError{Op: "find policies", Key: clientID, Err: err}
	}
	return docs, nil
}

func (m *Mongo) Policies(ctx context.Context, clientID string) ([]policy.Stored, error) {
	if _, err := m.Get(ctx, clientID); err != nil {
		return nil, err
	}
	docs, err := m.activeDocs(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]policy.Stored, 0, len(docs))
	for _, d := range docs {
		s, err := d.stored()
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", d.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Mongo) ActivePolicy(ctx context.Context, clientID string, policyType policy.Type) (*policy.Stored, error) {
	pols, err := m.Policies(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for _, p := range pols {
		if policyType == "" || strings.EqualFold(string(p.Type), string(policyType)) {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}
