package subscription

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime"
	"net/http"

	"github.com/healthparse/landing/auth"
	resp "github.com/healthparse/landing/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/webhook"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// maxWebhookBody is the most Stripe will ever send in one event
const maxWebhookBody = int64(65536)

// ServiceOptions contains the configuration for the subscription router
type ServiceOptions struct {
	Auth       *auth.Auth
	Payments   Payments
	Profiles   Profiles
	Manager    *Manager
	Reconciler *Reconciler
	Logger     *zap.Logger

	WebhookSecret string
	// Origin is the public URL of the landing site
	Origin string
	// Redirect answers checkout and portal requests with a 303 instead of {url}
	Redirect bool
	// RequireAuth rejects anonymous checkout
	RequireAuth bool
}

// Service is the subscription router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the subscription router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.Payments == nil {
		return nil, fmt.Errorf("nil Payments is invalid")
	}
	if option.Profiles == nil {
		return nil, fmt.Errorf("nil Profiles is invalid")
	}
	if option.Manager == nil {
		return nil, fmt.Errorf("nil Manager is invalid")
	}
	if option.Reconciler == nil {
		return nil, fmt.Errorf("nil Reconciler is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if len(option.WebhookSecret) == 0 {
		return nil, fmt.Errorf("empty WebhookSecret is invalid")
	}
	if len(option.Origin) == 0 {
		return nil, fmt.Errorf("empty Origin is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CheckoutRequest is the body of POST /create-checkout-session
type CheckoutRequest struct {
	LookupKey string `json:"lookup_key" validate:"required"`
}

// PortalRequest is the body of POST /create-portal-session
type PortalRequest struct {
	SessionID string `json:"session_id"`
}

// URLResponse carries the Stripe hosted page to send the browser to
type URLResponse struct {
	URL string `json:"url"`
}

// WebhookResponse acknowledges a verified event
type WebhookResponse struct {
	Received bool   `json:"received"`
	Type     string `json:"type"`
	Action   Action `json:"action"`
	Reason   string `json:"reason,omitempty"`
}

// AccountResponse is the signed in user's billing state
type AccountResponse struct {
	UserID           string         `json:"userId"`
	Email            string         `json:"email"`
	StripeCustomerID *string        `json:"stripeCustomerId"`
	Subscriptions    []Subscription `json:"subscriptions"`
}

const maxFormMemory = 1 << 20

// decodeBody fills dst from a JSON body, or from form values for the embedded form integration
func decodeBody(r *http.Request, dst interface{}, formKeys map[string]*string) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	switch mediaType {
	case "multipart/form-data":
		err = r.ParseMultipartForm(maxFormMemory)
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
	default:
		if err = json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
			return err
		}
		return nil
	}
	if err != nil {
		return err
	}
	for key, field := range formKeys {
		*field = r.PostForm.Get(key)
	}
	return nil
}

func (s *Service) respondURL(w http.ResponseWriter, r *http.Request, url string) {
	if s.Redirect {
		http.Redirect(w, r, url, http.StatusSeeOther)
		return
	}
	resp.WriteResponse(w, r, URLResponse{URL: url})
}

func (s *Service) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.Logger

	var req CheckoutRequest
	if err := decodeBody(r, &req, map[string]*string{"lookup_key": &req.LookupKey}); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidPrice().AddMessages("lookup_key is required"))
		return
	}
	logger = logger.With(zap.String("LookupKey", req.LookupKey))

	claims := auth.ClaimsFromContext(ctx)
	if claims == nil && s.RequireAuth {
		resp.WriteError(w, r, resp.ErrNoBearer())
		return
	}

	price, err := s.Payments.PriceByLookupKey(ctx, req.LookupKey)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to create checkout session"))
		return
	}
	if price == nil {
		resp.WriteError(w, r, resp.ErrInvalidPrice())
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		BillingAddressCollection: stripe.String("auto"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(price.ID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.Origin + "/success.html?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.Origin + "/cancel.html"),
	}

	if claims != nil {
		userID := claims.UserID()
		logger = logger.With(zap.String("UserID", userID))
		params.ClientReferenceID = stripe.String(userID)

		p, err := s.Profiles.GetByUserID(ctx, userID)
		if err != nil {
			resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to create checkout session"))
			return
		}
		if p != nil && p.StripeCustomerID != nil && *p.StripeCustomerID != "" {
			params.Customer = p.StripeCustomerID
		} else {
			if claims.Email != "" {
				params.CustomerEmail = stripe.String(claims.Email)
			}
			if err := s.Profiles.Ensure(ctx, userID, claims.Email); err != nil {
				// the webhook creates the profile anyway
				logger.Warn("Unable to ensure profile before checkout", zap.Error(err))
			}
		}
	}

	session, err := s.Payments.NewCheckoutSession(ctx, params)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to create checkout session"))
		return
	}
	logger.Info("Checkout session created", zap.String("SessionID", session.ID))

	s.respondURL(w, r, session.URL)
}

func (s *Service) createPortalSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.Logger

	var req PortalRequest
	if err := decodeBody(r, &req, map[string]*string{"session_id": &req.SessionID}); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}

	var customer string
	switch {
	case req.SessionID != "":
		logger = logger.With(zap.String("SessionID", req.SessionID))
		session, err := s.Payments.GetCheckoutSession(ctx, req.SessionID)
		if err != nil {
			resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to create portal session"))
			return
		}
		customer = customerID(session.Customer)
		if customer == "" {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Checkout session has no customer"))
			return
		}

	case auth.ClaimsFromContext(ctx) != nil:
		userID := auth.ClaimsFromContext(ctx).UserID()
		logger = logger.With(zap.String("UserID", userID))
		p, err := s.Profiles.GetByUserID(ctx, userID)
		if err != nil {
			resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to create portal session"))
			return
		}
		if p == nil || p.StripeCustomerID == nil || *p.StripeCustomerID == "" {
			resp.WriteError(w, r, resp.ErrNotFound().WithMessage("No billing account found"))
			return
		}
		customer = *p.StripeCustomerID

	default:
		resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("session_id is required"))
		return
	}

	portal, err := s.Payments.NewPortalSession(ctx, customer, s.Origin)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().WithMessage("Failed to create portal session"))
		return
	}
	logger.Info("Portal session created", zap.String("CustomerID", customer))

	s.respondURL(w, r, portal.URL)
}

func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := ioutil.ReadAll(r.Body)
	if err != nil {
		s.Logger.Warn("Cannot read webhook body", zap.Error(err))
		resp.WriteError(w, r, resp.ErrWebhookSignature("cannot read request body"))
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.WebhookSecret)
	if err != nil {
		s.Logger.Warn("Webhook signature verification failed", zap.Error(err))
		resp.WriteError(w, r, resp.ErrWebhookSignature(err.Error()))
		return
	}

	result, err := s.Reconciler.Reconcile(r.Context(), event)
	if err != nil {
		s.Logger.Error("Unable to reconcile webhook event",
			zap.String("EventID", event.ID),
			zap.String("EventType", event.Type),
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponse(w, r, WebhookResponse{
		Received: true,
		Type:     event.Type,
		Action:   result.Action,
		Reason:   result.Reason,
	})
}

func (s *Service) getAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := auth.ClaimsFromContext(ctx)
	userID := claims.UserID()

	p, err := s.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}
	subs, err := s.Manager.ListByUser(ctx, userID)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	account := AccountResponse{
		UserID:        userID,
		Email:         claims.Email,
		Subscriptions: subs,
	}
	if p != nil {
		account.StripeCustomerID = p.StripeCustomerID
		if account.Email == "" {
			account.Email = p.Email
		}
	}
	resp.WriteResponse(w, r, account)
}

// Routes registers the billing endpoints on r
func (s *Service) Routes(r chi.Router) {
	r.Post("/webhook", s.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware())

		r.Post("/create-checkout-session", s.createCheckoutSession)
		r.Post("/create-portal-session", s.createPortalSession)
		r.With(s.Auth.ClaimCheck()).Get("/account", s.getAccount)
	})
}
