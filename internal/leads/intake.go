package leads

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"horeca/storefront/internal/cart"
)

// Intake turns storefront forms into stored leads and notifies the sales
// desk.
type Intake struct {
	store    *Store
	notifier Notifier
	node     *snowflake.Node
	logger   *zap.Logger
	now      func() time.Time
}

func NewIntake(store *Store, notifier Notifier, nodeID int64, logger *zap.Logger) (*Intake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrap(err, "create lead id node")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Intake{
		store:    store,
		notifier: notifier,
		node:     node,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Checkout records the cart contents as an order request. The cart is not
// cleared here.
func (in *Intake) Checkout(ctx context.Context, c Contact, items []cart.Item) (Lead, error) {
	if err := c.Validate(); err != nil {
		return Lead{}, err
	}
	if len(items) == 0 {
		return Lead{}, ErrEmptyCart
	}
	l := in.newLead(KindCheckout, c)
	l.Items, l.Total = LineItemsFromCart(items)
	return in.save(ctx, l)
}

// Quiz records the selection-quiz answers with the contact.
func (in *Intake) Quiz(ctx context.Context, c Contact, answers map[string]string) (Lead, error) {
	if err := c.Validate(); err != nil {
		return Lead{}, err
	}
	l := in.newLead(KindQuiz, c)
	l.Answers = make(map[string]string, len(answers))
	for k, v := range answers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			l.Answers[k] = v
		}
	}
	return in.save(ctx, l)
}

func (in *Intake) Consultation(ctx context.Context, c Contact) (Lead, error) {
	if err := c.Validate(); err != nil {
		return Lead{}, err
	}
	return in.save(ctx, in.newLead(KindConsultation, c))
}

func (in *Intake) newLead(kind string, c Contact) Lead {
	c = c.trimmed()
	now := in.now()
	return Lead{
		ID:        in.node.Generate().String(),
		Kind:      kind,
		Status:    StatusNew,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Company:   c.Company,
		Comment:   c.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (in *Intake) save(ctx context.Context, l Lead) (Lead, error) {
	if err := in.store.Create(ctx, l); err != nil {
		return Lead{}, err
	}
	in.logger.Info("lead received",
		zap.String("lead_id", l.ID),
		zap.String("kind", l.Kind),
		zap.Int("items", len(l.Items)),
		zap.String("total", l.Total.StringFixed(2)),
	)
	in.notifier.Notify(l)
	return l, nil
}
