package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lukechats/retail-backend/internal/catalog"
	"github.com/lukechats/retail-backend/internal/events"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
	"github.com/lukechats/retail-backend/pkg/logger"
	"github.com/lukechats/retail-backend/pkg/metrics"
	"github.com/lukechats/retail-backend/pkg/openai"
)

// Reply is a finished assistant answer with the user id it was produced for,
// so callers can echo the id back to first-time users.
type Reply struct {
	UserID string
	Text   string
}

type catalogReader interface {
	ListActiveProducts(ctx context.Context) ([]catalog.ProductDTO, error)
}

type turnRecorder interface {
	Record(turn events.Turn)
}

// Service orchestrates assistant conversations over the catalog, the
// completion provider and the telemetry recorder.
type Service struct {
	catalog  catalogReader
	provider openai.Completer
	recorder turnRecorder
	logg     *logger.Logger
	met      *metrics.AssistantMetrics
	now      func() time.Time
}

// NewService wires the orchestrator. recorder may be nil when telemetry is
// not configured.
func NewService(catalogSvc catalogReader, provider openai.Completer, recorder turnRecorder, logg *logger.Logger, met *metrics.AssistantMetrics) (*Service, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if provider == nil {
		return nil, fmt.Errorf("completion provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		catalog:  catalogSvc,
		provider: provider,
		recorder: recorder,
		logg:     logg,
		met:      met,
		now:      time.Now,
	}, nil
}

// Respond answers a customer message grounded in the current product catalog.
// Provider failures degrade to a fixed apology instead of an error; the turn
// is forwarded to telemetry on both paths.
func (s *Service) Respond(ctx context.Context, message, userID string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		s.met.IncOutcome(metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message cannot be empty")
	}
	if strings.TrimSpace(userID) == "" {
		userID = uuid.NewString()
	}
	ctx = s.logg.WithUserID(ctx, userID)

	products, err := s.catalog.ListActiveProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load catalog for grounding")
	}

	text := s.complete(ctx, []openai.Message{
		{Role: openai.RoleSystem, Content: recommendationInstruction(products)},
		{Role: openai.RoleUser, Content: message},
	})

	if s.recorder != nil {
		s.recorder.Record(events.Turn{
			UserID:    userID,
			Message:   message,
			Reply:     text,
			Timestamp: s.now(),
		})
	}
	return &Reply{UserID: userID, Text: text}, nil
}

// RespondPolicy answers a customer message against the fixed store policy
// document. No catalog grounding, no telemetry.
func (s *Service) RespondPolicy(ctx context.Context, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		s.met.IncOutcome(metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message cannot be empty")
	}

	text := s.complete(ctx, []openai.Message{
		{Role: openai.RoleSystem, Content: policyInstruction},
		{Role: openai.RoleUser, Content: message},
	})
	return &Reply{Text: text}, nil
}

// complete runs the single provider attempt and maps any failure to the
// apology reply. Outages and malformed responses stay distinct in logs and
// metrics.
func (s *Service) complete(ctx context.Context, messages []openai.Message) string {
	text, err := s.provider.Complete(ctx, messages)
	if err == nil {
		s.met.IncOutcome(metrics.OutcomeReplied)
		return text
	}

	if pkgerrors.HasCode(err, pkgerrors.CodeBadUpstream) {
		s.met.IncOutcome(metrics.OutcomeFallbackMalformed)
		s.logg.Error(ctx, "completion provider returned a malformed response", err)
	} else {
		s.met.IncOutcome(metrics.OutcomeFallbackUnavailable)
		s.logg.Error(ctx, "completion provider unavailable", err)
	}
	return apologyReply
}
