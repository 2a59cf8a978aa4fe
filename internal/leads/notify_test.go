package leads

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"horeca/storefront/internal/catalog"
	"horeca/storefront/internal/config"
)

func TestMailNotifierSendsFromPool(t *testing.T) {
	var mu sync.Mutex
	var sent []*gomail.Message
	send := func(m *gomail.Message) error {
		mu.Lock()
		sent = append(sent, m)
		mu.Unlock()
		if subject := m.GetHeader("Subject"); len(subject) > 0 && strings.Contains(subject[0], "fail") {
			return errors.New("smtp down")
		}
		return nil
	}
	cfg := config.LeadsConfig{Workers: 2, NotifyTo: "sales@example.com", SMTP: config.SMTPConfig{Username: "bot@example.com"}}
	n, err := newMailNotifier(cfg, send, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		n.Notify(lead("1", KindConsultation, time.Now()))
	}
	n.Notify(lead("fail", KindQuiz, time.Now()))
	n.Close()

	require.Len(t, sent, 6)
	assert.Equal(t, []string{"bot@example.com"}, sent[0].GetHeader("From"))
	assert.Equal(t, []string{"sales@example.com"}, sent[0].GetHeader("To"))
}

func TestMailNotifierDoesNotBlockOnBusyWorkers(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	sent := 0
	send := func(m *gomail.Message) error {
		<-release
		mu.Lock()
		sent++
		mu.Unlock()
		return nil
	}
	cfg := config.LeadsConfig{Workers: 1, NotifyTo: "sales@example.com"}
	n, err := newMailNotifier(cfg, send, zap.NewNop())
	require.NoError(t, err)

	returned := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			n.Notify(lead("1", KindCheckout, time.Now()))
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Notify waited for the only worker to finish sending")
	}

	close(release)
	n.Close()
	assert.Equal(t, 3, sent)

	n.Notify(lead("late", KindQuiz, time.Now()))
}

func TestNewMailNotifier(t *testing.T) {
	cfg := config.LeadsConfig{
		Workers:  2,
		NotifyTo: "sales@example.com",
		SMTP:     config.SMTPConfig{Host: "smtp.invalid", Port: 587, Username: "bot@example.com", From: "shop@example.com"},
	}
	n, err := NewMailNotifier(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "shop@example.com", n.from)
	assert.Equal(t, "sales@example.com", n.to)
	assert.NotNil(t, n.send)
	n.Close()
}

func TestSummary(t *testing.T) {
	l := lead("42", KindCheckout, time.Now())
	l.Comment = "доставка в Казань"
	l.Items = []LineItem{{ProductID: "table-oslo", Name: "Стол Осло", Quantity: 2, Price: decimal.NewFromInt(99900), Size: "180×80"}}
	l.Total = decimal.NewFromInt(199800)
	l.Answers = map[string]string{"venue": "кафе", "budget": "500000"}

	out := Summary(l)
	assert.Contains(t, out, "Заявка: 42")
	assert.Contains(t, out, "Комментарий: доставка в Казань")
	assert.Contains(t, out, "- Стол Осло × 2, "+catalog.FormatPrice(decimal.NewFromInt(99900))+", размер: 180×80")
	assert.Contains(t, out, "Итого: "+catalog.FormatPrice(l.Total))
	assert.Less(t, strings.Index(out, "budget"), strings.Index(out, "venue"), "answers are sorted")
}

func TestKindTitle(t *testing.T) {
	assert.Equal(t, "заказ", kindTitle(KindCheckout))
	assert.Equal(t, "other", kindTitle("other"))
}
