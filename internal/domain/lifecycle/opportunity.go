package lifecycle

import (
	"context"
	"time"

	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/workflow"
)

var opportunityTable = buildOpportunityTable()

func buildOpportunityTable() *workflow.Table[*entity.SalesOpportunity] {
	b := workflow.NewBuilder[*entity.SalesOpportunity](string(entity.KindOpportunity), states(
		entity.OpportunityStatusLead,
		entity.OpportunityStatusQualified,
		entity.OpportunityStatusProposal,
		entity.OpportunityStatusNegotiation,
		entity.OpportunityStatusClosedWon,
		entity.OpportunityStatusClosedLost,
	)...)

	b.Configure(st(entity.OpportunityStatusLead)).
		Permit(TriggerQualify, st(entity.OpportunityStatusQualified))

	// Closing is allowed from every open stage after qualification
	for _, open := range []string{
		entity.OpportunityStatusQualified,
		entity.OpportunityStatusProposal,
		entity.OpportunityStatusNegotiation,
	} {
		b.Configure(st(open)).
			Permit(TriggerWin, st(entity.OpportunityStatusClosedWon)).
			Permit(TriggerLose, st(entity.OpportunityStatusClosedLost))
	}

	b.Configure(st(entity.OpportunityStatusQualified)).
		Permit(TriggerPropose, st(entity.OpportunityStatusProposal))
	b.Configure(st(entity.OpportunityStatusProposal)).
		Permit(TriggerNegotiate, st(entity.OpportunityStatusNegotiation))

	return b.MustBuild()
}

// NewOpportunity prepares an opportunity for its first save
func NewOpportunity(o *entity.SalesOpportunity, now time.Time) {
	o.Status = entity.OpportunityStatusLead
	o.CreatedAt = now
	o.UpdatedAt = now
}

// Qualify moves a lead to QUALIFIED
func Qualify(ctx context.Context, o *entity.SalesOpportunity, now time.Time) error {
	return advanceOpportunity(ctx, o, TriggerQualify, now)
}

// Propose moves a qualified opportunity to PROPOSAL
func Propose(ctx context.Context, o *entity.SalesOpportunity, now time.Time) error {
	return advanceOpportunity(ctx, o, TriggerPropose, now)
}

// Negotiate moves a proposal to NEGOTIATION
func Negotiate(ctx context.Context, o *entity.SalesOpportunity, now time.Time) error {
	return advanceOpportunity(ctx, o, TriggerNegotiate, now)
}

// Close ends an open opportunity as won or lost
func Close(ctx context.Context, o *entity.SalesOpportunity, won bool, now time.Time) error {
	trigger := TriggerLose
	if won {
		trigger = TriggerWin
	}
	return advanceOpportunity(ctx, o, trigger, now)
}

func advanceOpportunity(ctx context.Context, o *entity.SalesOpportunity, trigger workflow.Trigger, now time.Time) error {
	next, err := fire(ctx, opportunityTable, o, o.Status, trigger)
	if err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}
