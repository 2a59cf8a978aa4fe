package leads

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"horeca/storefront/internal/catalog"
	"horeca/storefront/internal/config"
)

// Notifier tells the sales desk about a new lead. Notify must not block
// the request that produced the lead.
type Notifier interface {
	Notify(l Lead)
	Close()
}

type NopNotifier struct{}

func (NopNotifier) Notify(Lead) {}
func (NopNotifier) Close()      {}

// SendFunc delivers one message. The default dials SMTP per message.
type SendFunc func(m *gomail.Message) error

// queuePerWorker sizes the backlog that Notify can hand off without waiting.
const queuePerWorker = 64

// MailNotifier e-mails leads from a bounded worker pool. Notify only
// enqueues; a full backlog drops the notification with an error log.
type MailNotifier struct {
	pool   *ants.Pool
	send   SendFunc
	from   string
	to     string
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Lead
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewMailNotifier(cfg config.LeadsConfig, logger *zap.Logger) (*MailNotifier, error) {
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	return newMailNotifier(cfg, func(m *gomail.Message) error { return dialer.DialAndSend(m) }, logger)
}

func newMailNotifier(cfg config.LeadsConfig, send SendFunc, logger *zap.Logger) (*MailNotifier, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "create notification pool")
	}
	from := cfg.SMTP.From
	if from == "" {
		from = cfg.SMTP.Username
	}
	backlog := cfg.Workers * queuePerWorker
	if backlog < queuePerWorker {
		backlog = queuePerWorker
	}
	n := &MailNotifier{
		pool:   pool,
		send:   send,
		from:   from,
		to:     cfg.NotifyTo,
		logger: logger,
		queue:  make(chan Lead, backlog),
		done:   make(chan struct{}),
	}
	go n.dispatch()
	return n, nil
}

func (n *MailNotifier) Notify(l Lead) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Warn("lead notification after close", zap.String("lead_id", l.ID))
		return
	}
	select {
	case n.queue <- l:
	default:
		n.logger.Error("lead notification dropped", zap.String("lead_id", l.ID), zap.String("reason", "backlog full"))
	}
}

// dispatch feeds queued leads to the pool. Submit may wait for a free
// worker here, never in Notify.
func (n *MailNotifier) dispatch() {
	defer close(n.done)
	for l := range n.queue {
		l := l
		n.wg.Add(1)
		err := n.pool.Submit(func() {
			defer n.wg.Done()
			n.deliver(l)
		})
		if err != nil {
			n.wg.Done()
			n.logger.Error("lead notification dropped", zap.String("lead_id", l.ID), zap.Error(err))
		}
	}
}

func (n *MailNotifier) deliver(l Lead) {
	if err := n.send(n.compose(l)); err != nil {
		n.logger.Error("lead notification failed", zap.String("lead_id", l.ID), zap.Error(err))
		return
	}
	n.logger.Info("lead notification sent", zap.String("lead_id", l.ID), zap.String("kind", l.Kind))
}

// Close sends what is already queued, then releases the pool.
func (n *MailNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
	n.wg.Wait()
	n.pool.Release()
}

func (n *MailNotifier) compose(l Lead) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", fmt.Sprintf("Новая заявка %s (%s)", l.ID, kindTitle(l.Kind)))
	m.SetBody("text/plain", Summary(l))
	return m
}

func kindTitle(kind string) string {
	switch kind {
	case KindCheckout:
		return "заказ"
	case KindQuiz:
		return "квиз"
	case KindConsultation:
		return "консультация"
	default:
		return kind
	}
}

// Summary renders a lead as plain text for the sales desk.
func Summary(l Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Заявка: %s\n", l.ID)
	fmt.Fprintf(&b, "Имя: %s\n", l.Name)
	fmt.Fprintf(&b, "Телефон: %s\n", l.Phone)
	if l.Email != "" {
		fmt.Fprintf(&b, "E-mail: %s\n", l.Email)
	}
	if l.Company != "" {
		fmt.Fprintf(&b, "Компания: %s\n", l.Company)
	}
	if l.Comment != "" {
		fmt.Fprintf(&b, "Комментарий: %s\n", l.Comment)
	}
	if len(l.Items) > 0 {
		b.WriteString("\nТовары:\n")
		for _, it := range l.Items {
			fmt.Fprintf(&b, "- %s × %d, %s", it.Name, it.Quantity, catalog.FormatPrice(it.Price))
			if it.Size != "" {
				fmt.Fprintf(&b, ", размер: %s", it.Size)
			}
			if it.Upholstery != "" {
				fmt.Fprintf(&b, ", обивка: %s", it.Upholstery)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Итого: %s\n", catalog.FormatPrice(l.Total))
	}
	if len(l.Answers) > 0 {
		b.WriteString("\nОтветы:\n")
		keys := make([]string, 0, len(l.Answers))
		for k := range l.Answers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, l.Answers[k])
		}
	}
	return b.String()
}
