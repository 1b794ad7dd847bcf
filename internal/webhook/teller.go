// Package webhook receives Teller webhook deliveries and turns new-transaction
// events into forecast jobs.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rutwin/cashflow/internal/api/middleware"
	"github.com/rutwin/cashflow/internal/jobs"
	"github.com/rutwin/cashflow/internal/logger"
	"github.com/rutwin/cashflow/internal/metrics"
)

var (
	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("missing signature")
	// ErrInvalidSignature is returned when no signature matches the body.
	ErrInvalidSignature = errors.New("invalid signature")
)

const (
	// SignatureHeader carries the delivery signature.
	SignatureHeader = "Teller-Signature"

	// EventTransactionsProcessed is sent when new transactions are available.
	EventTransactionsProcessed = "transactions.processed"

	// DefaultTolerance is how old a timestamped signature may be.
	DefaultTolerance = 3 * time.Minute

	maxPayloadBytes = 1 << 20
)

// VerifySignature checks a "t=<unix>,v1=<hex>[,v1=<hex>...]" header against
// body. Each v1 signs "<t>.<body>" and t must be within tolerance of now, so a
// captured delivery stops verifying once it is older than tolerance.
func VerifySignature(secret string, body []byte, header string, now time.Time, tolerance time.Duration) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if isBare(header) {
		return fmt.Errorf("%w: signature carries no timestamp", ErrInvalidSignature)
	}

	var (
		timestamp  string
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			timestamp = v
		case "v1":
			signatures = append(signatures, strings.ToLower(v))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	if age := now.Sub(time.Unix(ts, 0)); age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	signed := make([]byte, 0, len(timestamp)+1+len(body))
	signed = append(signed, timestamp...)
	signed = append(signed, '.')
	signed = append(signed, body...)
	expected := []byte(sign(secret, signed))

	for _, s := range signatures {
		if hmac.Equal([]byte(s), expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// VerifyBareSignature checks a bare hex HMAC-SHA256 of body. The form has no
// timestamp, so a captured delivery verifies forever and can be replayed.
// Receive only accepts it when AllowBareSignatures is set.
func VerifyBareSignature(secret string, body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if hmac.Equal([]byte(strings.ToLower(header)), []byte(sign(secret, body))) {
		return nil
	}
	return ErrInvalidSignature
}

func isBare(header string) bool {
	return !strings.Contains(header, "=")
}

func sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// Event is a Teller webhook delivery.
type Event struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Timestamp string       `json:"timestamp"`
	Payload   EventPayload `json:"payload"`
}

// EventPayload holds the fields this service reads from any event type.
type EventPayload struct {
	EnrollmentID string `json:"enrollment_id"`
	AccountID    string `json:"account_id"`
	Reason       string `json:"reason"`
	Transactions []struct {
		AccountID string `json:"account_id"`
	} `json:"transactions"`
}

// AccountIDs lists the distinct accounts the event refers to, in first-seen order.
func (e Event) AccountIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(e.Payload.AccountID)
	for _, t := range e.Payload.Transactions {
		add(t.AccountID)
	}
	return ids
}

// TellerHandler serves /webhook/teller.
type TellerHandler struct {
	secret    string
	publisher jobs.Publisher
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
	tolerance time.Duration
	allowBare bool
}

// NewTellerHandler creates a handler. publisher may be nil, in which case
// events are verified and acknowledged but nothing is enqueued.
func NewTellerHandler(secret string, publisher jobs.Publisher, m *metrics.Metrics, log zerolog.Logger) *TellerHandler {
	return &TellerHandler{
		secret:    secret,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
		tolerance: DefaultTolerance,
	}
}

// AllowBareSignatures makes Receive accept untimestamped hex signatures as
// well. It returns h.
func (h *TellerHandler) AllowBareSignatures(allow bool) *TellerHandler {
	h.allowBare = allow
	return h
}

// Status answers liveness probes from the Teller dashboard.
func (h *TellerHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "Teller webhook endpoint is active"})
}

// Receive verifies and dispatches one delivery.
func (h *TellerHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		h.observe("unconfigured")
		middleware.WriteError(w, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.observe("bad_request")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	err = h.verify(body, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, ErrMissingSignature):
		h.observe("missing_signature")
		middleware.WriteError(w, http.StatusBadRequest, "Missing Teller signature")
		return
	case err != nil:
		h.observe("invalid_signature")
		h.log.Warn().Err(err).Msg("Rejected Teller webhook")
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.observe("bad_request")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	log := logger.FromContext(r.Context()).With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Logger()

	if event.Type != EventTransactionsProcessed {
		h.observe("ignored")
		log.Info().Msg("Teller event type not handled")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Event type not handled"})
		return
	}

	jobIDs, err := h.enqueue(r.Context(), event)
	if err != nil {
		h.observe("error")
		log.Error().Err(err).Msg("Failed to enqueue forecast for Teller event")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue analysis")
		return
	}

	h.observe("accepted")
	log.Info().Strs("job_ids", jobIDs).Msg("Teller event accepted")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "success",
		"job_ids": jobIDs,
	})
}

func (h *TellerHandler) verify(body []byte, header string) error {
	if h.allowBare && isBare(strings.TrimSpace(header)) {
		return VerifyBareSignature(h.secret, body, header)
	}
	return VerifySignature(h.secret, body, header, h.now(), h.tolerance)
}

func (h *TellerHandler) enqueue(ctx context.Context, event Event) ([]string, error) {
	jobIDs := []string{}
	if h.publisher == nil {
		return jobIDs, nil
	}
	for _, accountID := range event.AccountIDs() {
		job := &jobs.AnalysisJob{
			Type:      jobs.JobTypeForecastCashFlow,
			AccountID: accountID,
		}
		if err := h.publisher.Publish(ctx, job); err != nil {
			return jobIDs, fmt.Errorf("enqueue: account %s: %w", accountID, err)
		}
		jobIDs = append(jobIDs, job.JobID)
	}
	return jobIDs, nil
}

func (h *TellerHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues("teller", result).Inc()
	}
}
