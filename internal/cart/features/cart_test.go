package features

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"horeca/storefront/internal/cart"
	"horeca/storefront/internal/catalog"
)

type cartTestContext struct {
	products map[string]catalog.Product
	store    *cart.Store
}

func (c *cartTestContext) reset() {
	c.products = make(map[string]catalog.Product)
	c.store = nil
}

func (c *cartTestContext) theCatalogContains(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		price, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return err
		}
		id := row.Cells[0].Value
		c.products[id] = catalog.Product{ID: id, Name: id, Price: price}
	}
	return nil
}

func (c *cartTestContext) anEmptyCart() error {
	c.store = cart.NewStore()
	return nil
}

func (c *cartTestContext) anEmptyCartWithPolicy(policy string) error {
	c.store = cart.NewStore(cart.WithMergePolicy(cart.ParseMergePolicy(policy)))
	return nil
}

func (c *cartTestContext) product(id string) (catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("unknown product %q", id)
	}
	return p, nil
}

func (c *cartTestContext) iAdd(quantity int, id string) error {
	p, err := c.product(id)
	if err != nil {
		return err
	}
	c.store.Add(p, quantity, cart.Options{})
	return nil
}

func (c *cartTestContext) iAddWithUpholstery(quantity int, id, upholstery string) error {
	p, err := c.product(id)
	if err != nil {
		return err
	}
	c.store.Add(p, quantity, cart.Options{Upholstery: upholstery})
	return nil
}

func (c *cartTestContext) iSetTheQuantity(id string, quantity int) error {
	c.store.UpdateQuantity(id, quantity)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.store.Clear()
	return nil
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if got := len(c.store.Items()); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theLineHasQuantity(id string, quantity int) error {
	it, ok := c.store.Item(id)
	if !ok {
		return fmt.Errorf("no line for %q", id)
	}
	if it.Quantity != quantity {
		return fmt.Errorf("expected quantity %d, got %d", quantity, it.Quantity)
	}
	return nil
}

func (c *cartTestContext) theLineHasUpholstery(id, upholstery string) error {
	it, ok := c.store.Item(id)
	if !ok {
		return fmt.Errorf("no line for %q", id)
	}
	if it.Options.Upholstery != upholstery {
		return fmt.Errorf("expected upholstery %q, got %q", upholstery, it.Options.Upholstery)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(raw string) error {
	want, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	if got := c.store.Total(); !got.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^the catalog contains:$`, tc.theCatalogContains)
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^an empty cart with the "([^"]*)" merge policy$`, tc.anEmptyCartWithPolicy)

	// When steps
	ctx.Step(`^I add (-?\d+) of "([^"]*)"$`, tc.iAdd)
	ctx.Step(`^I add (-?\d+) of "([^"]*)" with upholstery "([^"]*)"$`, tc.iAddWithUpholstery)
	ctx.Step(`^I set the quantity of "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantity)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)

	// Then steps
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^the line for "([^"]*)" has quantity (\d+)$`, tc.theLineHasQuantity)
	ctx.Step(`^the line for "([^"]*)" has upholstery "([^"]*)"$`, tc.theLineHasUpholstery)
	ctx.Step(`^the cart total is (\d+)$`, tc.theCartTotalIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"cart.feature"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
