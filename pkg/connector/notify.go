package connector

import (
	"context"
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/accordant-systems/accord/pkg/models"
)

// GovernanceNotifier posts a human-readable notice when a Commitment's
// Approved decision carries a NotifyGovernance condition (spec §4.5 stage
// 7). It is a thin wrapper around the slack-go SDK, the same shape as the
// teacher's pkg/slack Client — one API handle, one target channel, a
// bounded per-call timeout.
type GovernanceNotifier struct {
	api       *goslack.Client
	channelID string
	timeout   time.Duration
}

func NewGovernanceNotifier(token, channelID string) *GovernanceNotifier {
	return &GovernanceNotifier{
		api:       goslack.New(token),
		channelID: channelID,
		timeout:   5 * time.Second,
	}
}

// Notify posts a single message describing the approved commitment and
// the condition that triggered the notice. A delivery failure is not
// fatal to the commitment itself — Approved has already been decided — so
// the caller logs and moves on rather than treating it as a Connector
// execution failure.
func (n *GovernanceNotifier) Notify(ctx context.Context, commitmentID models.ContentHash, decl models.CommitmentDeclaration, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text := fmt.Sprintf("Commitment %s by %s approved with oversight condition: %s (scope: %s)",
		commitmentID, decl.Declarer, reason, decl.Scope.Domain)

	_, _, err := n.api.PostMessageContext(ctx, n.channelID, goslack.MsgOptionText(text, false))
	if err != nil {
		return models.WrapRuntimeError(models.KindInternalFailure, "governance notification failed", err)
	}
	return nil
}
