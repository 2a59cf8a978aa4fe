package leads

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"horeca/storefront/internal/cart"
)

const (
	KindCheckout     = "checkout"
	KindQuiz         = "quiz"
	KindConsultation = "consultation"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusConverted = "converted"
	StatusRejected  = "rejected"
)

var (
	ErrNotFound      = errors.New("lead not found")
	ErrEmptyUpdate   = errors.New("empty update payload")
	ErrInvalidStatus = errors.New("invalid status")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidCursor = errors.New("invalid cursor")
)

// LineItem is a cart line frozen at checkout time.
type LineItem struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Size       string          `json:"size,omitempty"`
	Upholstery string          `json:"upholstery,omitempty"`
}

type Lead struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Status    string            `json:"status"`
	Name      string            `json:"name"`
	Phone     string            `json:"phone"`
	Email     string            `json:"email,omitempty"`
	Company   string            `json:"company,omitempty"`
	Comment   string            `json:"comment,omitempty"`
	Items     []LineItem        `json:"items,omitempty"`
	Total     decimal.Decimal   `json:"total"`
	Answers   map[string]string `json:"answers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Contact is the form data shared by checkout, quiz and consultation.
type Contact struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Comment string `json:"comment"`
	Consent bool   `json:"consent"`
}

// ValidationError lists the form fields that failed presence checks.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate only checks presence; phone and e-mail formats are not enforced.
func (c Contact) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if !c.Consent {
		missing = append(missing, "consent")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func (c Contact) trimmed() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Email:   strings.TrimSpace(c.Email),
		Company: strings.TrimSpace(c.Company),
		Comment: strings.TrimSpace(c.Comment),
		Consent: c.Consent,
	}
}

// LineItemsFromCart converts cart lines and returns them with their total.
func LineItemsFromCart(items []cart.Item) ([]LineItem, decimal.Decimal) {
	out := make([]LineItem, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		out = append(out, LineItem{
			ProductID:  it.Product.ID,
			Name:       it.Product.Name,
			Quantity:   it.Quantity,
			Price:      it.Product.Price,
			Size:       it.Options.Size,
			Upholstery: it.Options.Upholstery,
		})
		total = total.Add(it.Subtotal())
	}
	return out, total
}

func NormalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case StatusNew, StatusContacted, StatusConverted, StatusRejected:
		return s
	default:
		return ""
	}
}

func NormalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	switch k {
	case KindCheckout, KindQuiz, KindConsultation:
		return k
	default:
		return ""
	}
}
