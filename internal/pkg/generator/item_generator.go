package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFixture is a demo catalog entry used by the seeder.
type ProductFixture struct {
	ProductID        string
	MerchantID       string
	Name             string
	Image            string
	MerchantLabel    string
	MerchantVerified bool
	Price            decimal.Decimal
}

type ItemGenerator struct {
	random *rand.Rand
}

func NewItemGenerator() *ItemGenerator {
	return NewSeededItemGenerator(time.Now().UTC().UnixNano())
}

func NewSeededItemGenerator(seed int64) *ItemGenerator {
	return &ItemGenerator{
		random: rand.New(rand.NewSource(seed)),
	}
}

func (g *ItemGenerator) GenerateName() string {
	adjectives := []string{
		"Handwoven", "Beaded", "Organic", "Solar", "Rustic",
		"Classic", "Premium", "Artisanal", "Eco-friendly", "Limited Edition",
	}

	nouns := []string{
		"Kiondo Basket", "Maasai Shuka", "Coffee Beans", "Lantern", "Sandals",
		"Kikoi Throw", "Soapstone Carving", "Honey Jar", "Tea Set", "Phone Charger",
	}

	adjective := adjectives[g.random.Intn(len(adjectives))]
	noun := nouns[g.random.Intn(len(nouns))]

	return fmt.Sprintf("%s %s", adjective, noun)
}

func (g *ItemGenerator) GenerateImageURL() string {
	width := 300 + g.random.Intn(200)
	height := 300 + g.random.Intn(200)
	return fmt.Sprintf("https://picsum.photos/%d/%d", width, height)
}

func (g *ItemGenerator) GenerateMerchantLabel() string {
	shops := []string{"Gikomba Traders", "Westlands Crafts", "Kilimani Goods", "Karen Market", "Moi Avenue Electronics"}
	return shops[g.random.Intn(len(shops))]
}

// GeneratePrice returns a whole-shilling price between 200 and 20000.
func (g *ItemGenerator) GeneratePrice() decimal.Decimal {
	return decimal.NewFromInt(int64(200 + g.random.Intn(19801)))
}

// GenerateSalePrice discounts price by 10 to 60 percent, rounded to two places.
func (g *ItemGenerator) GenerateSalePrice(price decimal.Decimal) decimal.Decimal {
	discount := 10 + g.random.Intn(51)
	factor := decimal.NewFromInt(int64(100 - discount)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2)
}

func (g *ItemGenerator) GenerateProduct(verified bool) ProductFixture {
	return ProductFixture{
		ProductID:        uuid.NewString(),
		MerchantID:       uuid.NewString(),
		Name:             g.GenerateName(),
		Image:            g.GenerateImageURL(),
		MerchantLabel:    g.GenerateMerchantLabel(),
		MerchantVerified: verified,
		Price:            g.GeneratePrice(),
	}
}

func (g *ItemGenerator) Intn(n int) int {
	return g.random.Intn(n)
}
