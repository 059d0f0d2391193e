package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"subtrack/internal/core"
	"subtrack/internal/service"
)

// formBool accepts checkbox and JSON spellings of true.
func formBool(v string) bool {
	switch v {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// subscriptionFromForm builds a subscription from the add/edit form.
// Field-level parse failures return a 422 builder; full validation
// happens in the service.
func subscriptionFromForm(r *http.Request) (core.Subscription, *HTMXResponseBuilder) {
	cycle, err := core.ParseCycle(r.Form.Get("cycle"))
	if err != nil {
		return core.Subscription{}, UnprocessableEntityError("invalid billing cycle")
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		return core.Subscription{}, UnprocessableEntityError("invalid amount")
	}

	next, err := core.ParseDate(r.Form.Get("next_payment"))
	if err != nil {
		return core.Subscription{}, UnprocessableEntityError("invalid next payment date, use YYYY-MM-DD")
	}

	return core.Subscription{
		Name:        sanitizeInput(r.Form.Get("name")),
		Vendor:      sanitizeInput(r.Form.Get("vendor")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Cycle:       cycle,
		Amount:      amount,
		Currency:    service.NormalizeCurrency(r.Form.Get("currency")),
		NextPayment: next,
		AutoRenew:   formBool(r.Form.Get("auto_renew")),
	}, nil
}

// validationMessage turns core sentinel errors into a form-friendly
// message. Unknown errors fall through to a generic one.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return "name is required"
	case errors.Is(err, core.ErrNameTooLong):
		return "name is too long (100 characters max)"
	case errors.Is(err, core.ErrEmptyCategory):
		return "category is required"
	case errors.Is(err, core.ErrUnknownCategory):
		return "unknown category"
	case errors.Is(err, core.ErrInvalidCycle):
		return "invalid billing cycle"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount must be a positive number"
	case errors.Is(err, core.ErrAmountTooLarge):
		return "amount is too large"
	case errors.Is(err, core.ErrInvalidDate):
		return "next payment date is required"
	default:
		return "invalid subscription data"
	}
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	sub, errResp := subscriptionFromForm(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	id, err := s.subs.Create(r.Context(), sub)
	if err != nil {
		if errors.Is(err, core.ErrEmptyName) || errors.Is(err, core.ErrNameTooLong) ||
			errors.Is(err, core.ErrEmptyCategory) || errors.Is(err, core.ErrUnknownCategory) ||
			errors.Is(err, core.ErrInvalidCycle) || errors.Is(err, core.ErrInvalidAmount) ||
			errors.Is(err, core.ErrAmountTooLarge) || errors.Is(err, core.ErrInvalidDate) {
			UnprocessableEntityError(validationMessage(err)).Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to save subscription",
			"error", err, "subscription_name", sub.Name)
		InternalServerError("error saving subscription").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalCreated, 1)
	s.invalidate()

	s.logger.InfoContext(r.Context(), "subscription created",
		"subscription_id", id,
		"subscription_name", sub.Name,
		"cycle", sub.Cycle.String(),
		"amount", sub.Amount.String(),
		"currency", sub.Currency)

	msg := fmt.Sprintf("%s added: %s %s / %s", sub.Name, sub.Amount.String(), sub.Currency, sub.Cycle)
	NewHTMXResponse().
		TriggerSubscriptionCreated(id).
		TriggerOverviewRefresh().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id, ok := formID(r)
	if !ok {
		BadRequestError("missing subscription id").Write(w)
		return
	}

	sub, errResp := subscriptionFromForm(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	sub.ID = id

	if err := s.subs.Update(r.Context(), sub); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			NotFoundError("subscription not found").Write(w)
		case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrNameTooLong),
			errors.Is(err, core.ErrEmptyCategory), errors.Is(err, core.ErrUnknownCategory),
			errors.Is(err, core.ErrInvalidCycle), errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrAmountTooLarge), errors.Is(err, core.ErrInvalidDate):
			UnprocessableEntityError(validationMessage(err)).Write(w)
		default:
			s.logger.ErrorContext(r.Context(), "failed to update subscription",
				"error", err, "subscription_id", id)
			InternalServerError("error updating subscription").Write(w)
		}
		return
	}

	s.invalidate()
	s.logger.InfoContext(r.Context(), "subscription updated",
		"subscription_id", id, "subscription_name", sub.Name)

	NewHTMXResponse().
		TriggerSubscriptionUpdated(id).
		TriggerOverviewRefresh().
		TriggerSuccessNotification(sub.Name + " updated").
		Write(w)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.ErrorContext(r.Context(), "parse delete request error", "error", err)
		BadRequestError("invalid request format").Write(w)
		return
	}
	id, ok := parser.GetID()
	if !ok {
		BadRequestError("missing subscription id").Write(w)
		return
	}

	if err := s.subs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("subscription not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to delete subscription",
			"error", err, "subscription_id", id)
		InternalServerError("error deleting subscription").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalDeleted, 1)
	s.invalidate()

	s.logger.InfoContext(r.Context(), "subscription deleted", "subscription_id", id)

	NewHTMXResponse().
		TriggerSubscriptionDeleted(id).
		TriggerOverviewRefresh().
		TriggerSuccessNotification("subscription removed").
		Write(w)
}

// handleRenewSubscription marks a manual payment as made, advancing
// the next payment date one cycle past today.
func (s *Server) handleRenewSubscription(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request format").Write(w)
		return
	}
	id, ok := parser.GetID()
	if !ok {
		BadRequestError("missing subscription id").Write(w)
		return
	}

	sub, err := s.subs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("subscription not found").Write(w)
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to load subscription",
			"error", err, "subscription_id", id)
		InternalServerError("error loading subscription").Write(w)
		return
	}

	if sub.Cycle == core.CycleLifetime {
		UnprocessableEntityError("lifetime purchases do not renew").Write(w)
		return
	}

	today := core.Today()
	next := sub.Cycle.Advance(sub.NextPayment)
	for next.Time.Before(today.Time) {
		next = sub.Cycle.Advance(next)
	}
	from := sub.NextPayment
	sub.NextPayment = next

	if err := s.subs.Update(r.Context(), sub); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to renew subscription",
			"error", err, "subscription_id", id)
		InternalServerError("error renewing subscription").Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.totalRenewed, 1)
	s.invalidate()

	s.logger.InfoContext(r.Context(), "subscription renewed",
		"subscription_id", id,
		"subscription_name", sub.Name,
		"from", from.String(),
		"to", next.String())

	NewHTMXResponse().
		TriggerSubscriptionUpdated(id).
		TriggerOverviewRefresh().
		TriggerSuccessNotification(fmt.Sprintf("%s renewed, next payment %s", sub.Name, next.String())).
		Write(w)
}

// formID reads the id form field as int64.
func formID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
