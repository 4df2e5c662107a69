package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fitpass_backend/internal/config"
	"fitpass_backend/internal/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/setupintent"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway implements Gateway with stripe-go.
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway sets the global API key and returns a gateway.
func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	stripe.Key = cfg.SecretKey
	return &StripeGateway{webhookSecret: cfg.WebhookSecret}
}

// wrap classifies stripe errors; card errors keep their own sentinel.
func wrap(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.Type == stripe.ErrorTypeCard {
			return fmt.Errorf("%w: %s: %s", ErrCardDeclined, op, se.Msg)
		}
		return fmt.Errorf("%w: %s: %s (%s)", ErrProcessor, op, se.Msg, se.Code)
	}
	return fmt.Errorf("%w: %s: %v", ErrProcessor, op, err)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, userID int64, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
		Metadata: map[string]string{
			"user_id": strconv.FormatInt(userID, 10),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("customer-" + strconv.FormatInt(userID, 10))
	c, err := customer.New(params)
	if err != nil {
		return "", wrap("create customer", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Usage:              stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	params.Context = ctx
	si, err := setupintent.New(params)
	if err != nil {
		return "", wrap("create setup intent", err)
	}
	return si.ClientSecret, nil
}

func (g *StripeGateway) ListPaymentMethods(ctx context.Context, customerID string) ([]models.PaymentMethod, error) {
	def, err := g.DefaultPaymentMethod(ctx, customerID)
	if err != nil {
		return nil, err
	}
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	methods := []models.PaymentMethod{}
	it := paymentmethod.List(params)
	for it.Next() {
		pm := it.PaymentMethod()
		m := models.PaymentMethod{ID: pm.ID, IsDefault: pm.ID == def}
		if pm.Card != nil {
			m.Brand = string(pm.Card.Brand)
			m.Last4 = pm.Card.Last4
			m.ExpMonth = pm.Card.ExpMonth
			m.ExpYear = pm.Card.ExpYear
		}
		methods = append(methods, m)
	}
	if err := it.Err(); err != nil {
		return nil, wrap("list payment methods", err)
	}
	return methods, nil
}

func (g *StripeGateway) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	if _, err := paymentmethod.Attach(paymentMethodID, params); err != nil {
		return wrap("attach payment method", err)
	}
	return nil
}

func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if _, err := paymentmethod.Detach(paymentMethodID, params); err != nil {
		return wrap("detach payment method", err)
	}
	return nil
}

func (g *StripeGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	if _, err := customer.Update(customerID, params); err != nil {
		return wrap("set default payment method", err)
	}
	return nil
}

func (g *StripeGateway) DefaultPaymentMethod(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := customer.Get(customerID, params)
	if err != nil {
		return "", wrap("get customer", err)
	}
	if c.InvoiceSettings != nil && c.InvoiceSettings.DefaultPaymentMethod != nil {
		return c.InvoiceSettings.DefaultPaymentMethod.ID, nil
	}
	return "", nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID, idempotencyKey string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("error_if_incomplete"),
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}
	sub, err := subscription.New(params)
	if err != nil {
		return nil, wrap("create subscription", err)
	}
	return toSubscription(sub), nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, wrap("get subscription", err)
	}
	return toSubscription(sub), nil
}

func (g *StripeGateway) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string) (*Subscription, error) {
	current, err := subscription.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, wrap("get subscription", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, fmt.Errorf("%w: subscription %s has no items", ErrProcessor, subscriptionID)
	}
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(priceID)},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, wrap("change subscription price", err)
	}
	return toSubscription(sub), nil
}

func (g *StripeGateway) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error) {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(cancel)}
	params.Context = ctx
	sub, err := subscription.Update(subscriptionID, params)
	if err != nil {
		return nil, wrap("update cancel_at_period_end", err)
	}
	return toSubscription(sub), nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return wrap("cancel subscription", err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the handled event types.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if g.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(ev)
}

func decodeEvent(ev stripe.Event) (*Event, error) {
	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}
	switch out.Type {
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("parsing subscription: %w", err)
		}
		out.Subscription = toSubscription(&sub)
	case EventInvoiceSucceeded, EventInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("parsing invoice: %w", err)
		}
		out.Invoice = toInvoice(&inv, out.Type)
	}
	return out, nil
}

func toSubscription(sub *stripe.Subscription) *Subscription {
	s := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		s.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Customer != nil {
		s.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		s.PriceID = sub.Items.Data[0].Price.ID
	}
	return s
}

func toInvoice(inv *stripe.Invoice, eventType string) *Invoice {
	out := &Invoice{
		ID:            inv.ID,
		Currency:      string(inv.Currency),
		BillingReason: string(inv.BillingReason),
		URL:           inv.HostedInvoiceURL,
		Amount:        inv.AmountPaid,
	}
	if eventType == EventInvoiceFailed {
		out.Amount = inv.AmountDue
	}
	if inv.PeriodEnd > 0 {
		out.PeriodEnd = time.Unix(inv.PeriodEnd, 0).UTC()
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out
}
