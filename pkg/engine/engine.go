// Package engine implements Engine::handle, the single exposed entry point
// a caller uses to submit an action request (spec §2 control flow, §6
// external interfaces). It resolves an eligible route, hands a derived
// CommitmentDeclaration to the Gate, and folds the AdjudicationResult back
// into the caller-facing HandleResponse shape, honoring per-worldline
// backpressure and trace-id idempotency (spec §5, §8 property on
// Engine::handle).
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/accordant-systems/accord/pkg/config"
	"github.com/accordant-systems/accord/pkg/gate"
	"github.com/accordant-systems/accord/pkg/models"
	"github.com/accordant-systems/accord/pkg/router"
)

// Status is the closed set of outcomes Engine::handle reports to a caller
// (spec §7 "User-visible behavior").
type Status string

const (
	ExecutedAutonomous   Status = "ExecutedAutonomous"
	ExecutedHybrid       Status = "ExecutedHybrid"
	PendingHumanApproval Status = "PendingHumanApproval"
	Denied               Status = "Denied"
	Failed               Status = "Failed"
)

// Mode records which adjudication path produced the status: a plain
// Gate decision, one awaiting threshold co-signature, or a rejection by
// backpressure before the Gate ran. HandleResponse.Mode is informational only —
// Status is what callers branch on.
type Mode string

const (
	ModeStandard          Mode = "standard"
	ModeThresholdCosigned Mode = "threshold_cosigned"
	ModeBackpressure      Mode = "backpressure"
)

// Request is Engine::handle's input (spec §6): principal, counterparty,
// action, scope, amount, metadata.
type Request struct {
	TraceID          string                     `json:"trace_id"`
	Principal        models.WorldlineId         `json:"principal"`
	Counterparty     models.WorldlineId         `json:"counterparty"`
	Scope            models.CommitmentScope     `json:"scope"`
	IntentReference  models.ContentHash         `json:"intent_reference"`
	IntentConfidence float64                    `json:"intent_confidence"`
	CapabilityRefs   []models.CapabilityId      `json:"capability_refs,omitempty"`
	ThresholdPolicy  *models.ThresholdPolicy    `json:"threshold_policy,omitempty"`
	Amount           *int64                     `json:"amount,omitempty"`
	Jurisdiction     string                     `json:"jurisdiction,omitempty"`
	Deadline         *time.Time                 `json:"deadline,omitempty"`
	Metadata         map[string]string          `json:"metadata,omitempty"`
}

// HandleResponse is Engine::handle's output (spec §6).
type HandleResponse struct {
	TraceID        string              `json:"trace_id"`
	Status         Status              `json:"status"`
	Mode           Mode                `json:"mode"`
	DecisionReason string              `json:"decision_reason"`
	Reasons        []string            `json:"reasons,omitempty"`
	Risk           *models.RiskReport  `json:"risk,omitempty"`
	Route          *models.RouteResult `json:"route,omitempty"`
	Conditions     []models.Condition  `json:"conditions,omitempty"`
	CommitmentID   models.ContentHash  `json:"commitment_id,omitempty"`
	RetryAfter     time.Duration       `json:"retry_after,omitempty"` // set only when Status is PendingHumanApproval via backpressure
}

// Engine wires the Gate pipeline behind the single operation external
// callers use, adding the two concerns that sit above the Gate itself:
// idempotent replay by trace_id and per-worldline backpressure against
// Defaults.MaxConcurrentCommitments (spec §5 "Backpressure").
type Engine struct {
	cfg    *config.Config
	gate   *gate.Gate
	router *router.Router

	mu       sync.Mutex
	inFlight map[models.WorldlineId]int
	replies  map[string]HandleResponse // trace_id -> prior response
}

func New(cfg *config.Config, g *gate.Gate, r *router.Router) *Engine {
	return &Engine{
		cfg:      cfg,
		gate:     g,
		router:   r,
		inFlight: make(map[models.WorldlineId]int),
		replies:  make(map[string]HandleResponse),
	}
}

// Handle runs Engine::handle end to end. Two calls with the same TraceID
// return byte-identical responses and never append a second commitment or
// journal entry (spec §8 idempotence property), because the second call
// never re-enters the pipeline — it returns the cached response directly.
func (e *Engine) Handle(req Request) HandleResponse {
	if req.TraceID == "" {
		return HandleResponse{Status: Failed, DecisionReason: "trace_id is required"}
	}

	e.mu.Lock()
	if prior, ok := e.replies[req.TraceID]; ok {
		e.mu.Unlock()
		return prior
	}

	limit := 0
	if e.cfg != nil && e.cfg.Defaults != nil {
		limit = e.cfg.Defaults.MaxConcurrentCommitments
	}
	if limit > 0 && e.inFlight[req.Principal] >= limit {
		e.mu.Unlock()
		return HandleResponse{
			TraceID:        req.TraceID,
			Status:         PendingHumanApproval,
			Mode:           ModeBackpressure,
			DecisionReason: fmt.Sprintf("worldline %s has %d commitments in flight, at the configured limit", req.Principal, limit),
			Reasons:        []string{string(models.ReviewBackpressureHold)},
			RetryAfter:     backpressureRetryAfter,
		}
	}
	e.inFlight[req.Principal]++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight[req.Principal]--
		e.mu.Unlock()
	}()

	resp := e.handle(req)

	e.mu.Lock()
	e.replies[req.TraceID] = resp
	e.mu.Unlock()
	return resp
}

const backpressureRetryAfter = 2 * time.Second

func (e *Engine) handle(req Request) HandleResponse {
	var route *models.RouteResult
	if e.router != nil && len(req.CapabilityRefs) > 0 {
		for _, capRef := range req.CapabilityRefs {
			capCfg, err := e.cfg.CapabilityRegistry.Get(string(capRef))
			if err != nil {
				continue
			}
			r, rerr := e.router.Route(models.ActionRequest{
				ActionType: string(capCfg.ActionType),
				Domain:     req.Scope.Domain,
			}, nil)
			if rerr == nil {
				route = &r
				break
			}
		}
	}

	decl := models.CommitmentDeclaration{
		Declarer:         req.Principal,
		Counterparty:     req.Counterparty,
		Scope:            req.Scope,
		IntentReference:  req.IntentReference,
		IntentConfidence: req.IntentConfidence,
		CapabilityRefs:   req.CapabilityRefs,
		ThresholdPolicy:  req.ThresholdPolicy,
		Amount:           req.Amount,
		Jurisdiction:     req.Jurisdiction,
		Deadline:         req.Deadline,
		TraceID:          req.TraceID,
	}

	result := e.gate.Submit(decl)
	return toHandleResponse(req.TraceID, result, route)
}

func toHandleResponse(traceID string, result models.AdjudicationResult, route *models.RouteResult) HandleResponse {
	resp := HandleResponse{
		TraceID:        traceID,
		DecisionReason: result.Card.Reason,
		Risk:           result.Risk,
		Route:          route,
		Conditions:     result.Card.Conditions,
		CommitmentID:   result.CommitmentID,
		Mode:           ModeStandard,
	}

	switch result.Card.Decision {
	case models.DecisionDenied:
		resp.Status = Denied
		if result.Card.DeniedReason == models.ReasonInternal {
			resp.Status = Failed
		}
		resp.Reasons = []string{string(result.Card.DeniedReason)}

	case models.DecisionPendingReview:
		resp.Status = PendingHumanApproval
		for _, rr := range result.Card.ReviewRequirements {
			resp.Reasons = append(resp.Reasons, string(rr))
			if rr == models.ReviewThresholdSignatures {
				resp.Mode = ModeThresholdCosigned
			}
		}

	case models.DecisionApproved:
		if len(result.Card.Conditions) > 0 {
			resp.Status = ExecutedHybrid
		} else {
			resp.Status = ExecutedAutonomous
		}

	default:
		resp.Status = Failed
		resp.DecisionReason = "gate returned an unrecognized decision"
	}

	return resp
}
