package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

const (
	stateDraft     State = "DRAFT"
	stateReview    State = "REVIEW"
	stateApproved  State = "APPROVED"
	stateEscalated State = "ESCALATED"
	stateRejected  State = "REJECTED"

	triggerSubmit   Trigger = "SUBMIT"
	triggerApprove  Trigger = "APPROVE"
	triggerEscalate Trigger = "ESCALATE"
	triggerReject   Trigger = "REJECT"
)

type claim struct {
	amount int
}

func large(_ context.Context, c *claim) bool { return c.amount > 1000 }
func small(_ context.Context, c *claim) bool { return c.amount <= 1000 }

func newClaimTable(t *testing.T) *Table[*claim] {
	t.Helper()
	b := NewBuilder[*claim]("CLAIM", stateDraft, stateReview, stateApproved, stateEscalated, stateRejected)
	b.Configure(stateDraft).Permit(triggerSubmit, stateReview)
	b.Configure(stateReview).
		PermitIf(triggerApprove, stateApproved, small).
		PermitIf(triggerApprove, stateEscalated, large).
		Permit(triggerReject, stateRejected)
	b.Configure(stateEscalated).
		Permit(triggerEscalate, stateApproved).
		Permit(triggerReject, stateRejected)

	table, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return table
}

func TestTable_Fire(t *testing.T) {
	table := newClaimTable(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		amount    int
		from      State
		trigger   Trigger
		want      State
		wantErr   error
		wantCause error
	}{
		{"unguarded", 10, stateDraft, triggerSubmit, stateReview, nil, nil},
		{"first guard passes", 500, stateReview, triggerApprove, stateApproved, nil, nil},
		{"second guard passes", 5000, stateReview, triggerApprove, stateEscalated, nil, nil},
		{"boundary stays small", 1000, stateReview, triggerApprove, stateApproved, nil, nil},
		{"not configured", 10, stateDraft, triggerApprove, "", ErrInvalidTransition, nil},
		{"terminal state", 10, stateRejected, triggerSubmit, "", ErrInvalidTransition, nil},
		{"unknown state", 10, State("ARCHIVED"), triggerSubmit, "", ErrInvalidTransition, ErrUnknownState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Fire(ctx, &claim{amount: tt.amount}, tt.from, tt.trigger)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Fire() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("Fire() = %s, want %s", got, tt.want)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Fire() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("Fire() error = %v, want cause %v", err, tt.wantCause)
			}
			if got != "" {
				t.Errorf("Fire() = %s on error", got)
			}
		})
	}
}

func TestTable_GuardFailure(t *testing.T) {
	b := NewBuilder[*claim]("CLAIM", stateReview, stateEscalated)
	b.Configure(stateReview).PermitIf(triggerEscalate, stateEscalated, large)
	table := b.MustBuild()

	_, err := table.Fire(context.Background(), &claim{amount: 1}, stateReview, triggerEscalate)
	if !errors.Is(err, ErrGuardFailed) || !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want guard failure", err)
	}

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("Fire() error type = %T", err)
	}
	if te.Table != "CLAIM" || te.From != stateReview || te.Trigger != triggerEscalate {
		t.Errorf("TransitionError = %+v", te)
	}
}

func TestTransitionError_ListsAllowedTriggers(t *testing.T) {
	table := newClaimTable(t)

	_, err := table.Fire(context.Background(), &claim{}, stateReview, triggerSubmit)
	if err == nil {
		t.Fatal("Fire() expected error")
	}
	want := "invalid state transition: CLAIM: cannot fire SUBMIT from REVIEW (allowed: [APPROVE REJECT])"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTable_Inspection(t *testing.T) {
	table := newClaimTable(t)

	if table.Name() != "CLAIM" {
		t.Errorf("Name() = %s", table.Name())
	}
	wantStates := []State{stateDraft, stateReview, stateApproved, stateEscalated, stateRejected}
	if !reflect.DeepEqual(table.States(), wantStates) {
		t.Errorf("States() = %v, want %v", table.States(), wantStates)
	}

	tests := []struct {
		from         State
		wantTriggers []Trigger
		wantTerminal bool
	}{
		{stateDraft, []Trigger{triggerSubmit}, false},
		{stateReview, []Trigger{triggerApprove, triggerReject}, false},
		{stateEscalated, []Trigger{triggerEscalate, triggerReject}, false},
		{stateApproved, []Trigger{}, true},
		{State("ARCHIVED"), []Trigger{}, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			if got := table.Triggers(tt.from); !reflect.DeepEqual(got, tt.wantTriggers) {
				t.Errorf("Triggers() = %v, want %v", got, tt.wantTriggers)
			}
			if got := table.IsTerminal(tt.from); got != tt.wantTerminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.wantTerminal)
			}
		})
	}

	// CanFire ignores guards
	if !table.CanFire(stateReview, triggerApprove) {
		t.Error("CanFire(REVIEW, APPROVE) = false")
	}
	if table.CanFire(stateDraft, triggerReject) {
		t.Error("CanFire(DRAFT, REJECT) = true")
	}
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name      string
		configure func(b *Builder[*claim])
		wantErr   string
	}{
		{
			name:      "unknown source",
			configure: func(b *Builder[*claim]) { b.Configure("ARCHIVED").Permit(triggerSubmit, stateReview) },
			wantErr:   `source state "ARCHIVED"`,
		},
		{
			name:      "unknown target",
			configure: func(b *Builder[*claim]) { b.Configure(stateDraft).Permit(triggerSubmit, "ARCHIVED") },
			wantErr:   `target state "ARCHIVED"`,
		},
		{
			name:      "empty trigger",
			configure: func(b *Builder[*claim]) { b.Configure(stateDraft).Permit("", stateReview) },
			wantErr:   "empty trigger",
		},
		{
			name: "shadowed transition",
			configure: func(b *Builder[*claim]) {
				b.Configure(stateDraft).
					Permit(triggerSubmit, stateReview).
					PermitIf(triggerSubmit, stateRejected, large)
			},
			wantErr: "follows an unguarded transition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder[*claim]("CLAIM", stateDraft, stateReview, stateRejected)
			tt.configure(b)
			_, err := b.Build()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Build() error = %v, want %q", err, tt.wantErr)
			}
		})
	}

	t.Run("duplicate state", func(t *testing.T) {
		_, err := NewBuilder[*claim]("CLAIM", stateDraft, stateDraft).Build()
		if err == nil || !strings.Contains(err.Error(), "duplicate state DRAFT") {
			t.Fatalf("Build() error = %v", err)
		}
	})

	t.Run("MustBuild panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("MustBuild() did not panic")
			}
		}()
		b := NewBuilder[*claim]("CLAIM", stateDraft)
		b.Configure(stateReview)
		b.MustBuild()
	})
}

func TestBuilder_BuildIsIsolated(t *testing.T) {
	b := NewBuilder[*claim]("CLAIM", stateDraft, stateReview, stateRejected)
	b.Configure(stateDraft).Permit(triggerSubmit, stateReview)
	table := b.MustBuild()

	b.Configure(stateDraft).Permit(triggerReject, stateRejected)

	if table.CanFire(stateDraft, triggerReject) {
		t.Error("configuration after Build leaked into the table")
	}
}

func TestTable_ConcurrentFire(t *testing.T) {
	table := newClaimTable(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(amount int) {
			defer wg.Done()
			want := stateApproved
			if amount > 1000 {
				want = stateEscalated
			}
			got, err := table.Fire(ctx, &claim{amount: amount}, stateReview, triggerApprove)
			if err != nil || got != want {
				errs <- errors.New("unexpected transition " + got.String())
			}
		}(i * 50)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestState_String(t *testing.T) {
	if got := stateDraft.String(); got != "DRAFT" {
		t.Errorf("State.String() = %v, want %v", got, "DRAFT")
	}
	if got := triggerSubmit.String(); got != "SUBMIT" {
		t.Errorf("Trigger.String() = %v, want %v", got, "SUBMIT")
	}
}
