package generator

import (
	"fmt"
	"strings"
	"sync"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixSale  = "sale"
	PrefixOffer = "offer"
)

// IDGenerator issues K-sortable TypeIDs such as "sale_01h2xcejqtf2nbrexx3vqjhp41".
type IDGenerator interface {
	SaleID() string
	OfferID() string
}

// TypeIDGenerator is the production IDGenerator.
type TypeIDGenerator struct{}

func NewTypeIDGenerator() *TypeIDGenerator {
	return &TypeIDGenerator{}
}

func (g *TypeIDGenerator) SaleID() string {
	return mustGenerate(PrefixSale)
}

func (g *TypeIDGenerator) OfferID() string {
	return mustGenerate(PrefixOffer)
}

// HasPrefix reports whether id parses as a TypeID with the given prefix.
func HasPrefix(id, prefix string) bool {
	if !strings.HasPrefix(id, prefix+"_") {
		return false
	}
	tid, err := typeid.Parse(id)
	if err != nil {
		return false
	}
	return tid.Prefix() == prefix
}

func mustGenerate(prefix string) string {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("generator: invalid prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// SequenceGenerator returns predictable ids for tests and fixtures.
type SequenceGenerator struct {
	mu   sync.Mutex
	next int
}

func NewSequenceGenerator() *SequenceGenerator {
	return &SequenceGenerator{}
}

func (g *SequenceGenerator) SaleID() string {
	return g.issue(PrefixSale)
}

func (g *SequenceGenerator) OfferID() string {
	return g.issue(PrefixOffer)
}

func (g *SequenceGenerator) issue(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s_%d", prefix, g.next)
}
