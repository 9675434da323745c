package reference

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fixture/customers.yaml
var defaultFixture []byte

type Loan struct {
	Type string  `json:"type" yaml:"type"`
	EMI  float64 `json:"emi" yaml:"emi"`
}

type record struct {
	Customer      `yaml:",inline"`
	ExistingLoans []Loan `yaml:"existing_loans"`
	CreditScore   *int   `yaml:"credit_score"`
	Offer         *Offer `yaml:"offer"`
}

type fixtureFile struct {
	Customers []record `yaml:"customers"`
}

// CustomerDetail is the CRM view of a customer, including existing loans.
type CustomerDetail struct {
	Customer
	ExistingLoans []Loan `json:"existing_loans"`
}

// Catalog is an in-memory Provider backed by a YAML document. It is
// immutable after construction and safe for concurrent use.
type Catalog struct {
	customers []CustomerDetail
	byID      map[string]int
	scores    map[string]int
	idScores  map[string]int
	offers    map[string]Offer
}

var _ Provider = (*Catalog)(nil)

// Default returns the catalog built from the embedded fixture.
func Default() *Catalog {
	c, err := Parse(defaultFixture)
	if err != nil {
		panic(fmt.Sprintf("embedded reference fixture: %v", err))
	}
	return c
}

// Load reads a catalog from path, or the embedded fixture when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Parse(defaultFixture)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var doc fixtureFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode reference data: %w", err)
	}

	c := &Catalog{
		byID:     make(map[string]int, len(doc.Customers)),
		scores:   make(map[string]int, len(doc.Customers)),
		idScores: make(map[string]int, len(doc.Customers)),
		offers:   make(map[string]Offer, len(doc.Customers)),
	}
	for _, rec := range doc.Customers {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			return nil, errors.New("reference customer without id")
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate reference customer %s", id)
		}

		cust := rec.Customer
		cust.ID = id
		cust.PAN = strings.ToUpper(strings.TrimSpace(cust.PAN))
		if cust.KYCStatus == "" {
			cust.KYCStatus = KYCPending
		}
		if rec.Offer != nil {
			cust.PreApprovedLimit = rec.Offer.PreApprovedLimit
			c.offers[id] = *rec.Offer
		}
		if rec.CreditScore != nil {
			c.idScores[id] = *rec.CreditScore
			if cust.PAN != "" {
				c.scores[cust.PAN] = *rec.CreditScore
			}
		}

		c.byID[id] = len(c.customers)
		c.customers = append(c.customers, CustomerDetail{Customer: cust, ExistingLoans: rec.ExistingLoans})
	}
	return c, nil
}

func (c *Catalog) CustomerByPhone(_ context.Context, phone string) (Customer, bool, error) {
	if NormalizePhone(phone) == "" {
		return Customer{}, false, nil
	}
	for _, cd := range c.customers {
		if PhonesMatch(cd.Phone, phone) {
			return cd.Customer, true, nil
		}
	}
	return Customer{}, false, nil
}

func (c *Catalog) CreditScore(_ context.Context, pan string) (int, bool, error) {
	score, ok := c.scores[strings.ToUpper(strings.TrimSpace(pan))]
	return score, ok, nil
}

func (c *Catalog) Offer(_ context.Context, customerID string) (Offer, bool, error) {
	offer, ok := c.offers[customerID]
	return offer, ok, nil
}

// Customers lists every customer ordered by id.
func (c *Catalog) Customers() []CustomerDetail {
	out := make([]CustomerDetail, len(c.customers))
	copy(out, c.customers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Customer(id string) (CustomerDetail, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return CustomerDetail{}, false
	}
	return c.customers[idx], true
}

// ScoreByCustomerID is the bureau lookup keyed by customer id.
func (c *Catalog) ScoreByCustomerID(id string) (int, bool) {
	score, ok := c.idScores[id]
	return score, ok
}
