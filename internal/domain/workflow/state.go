// Package workflow provides transition tables for entity lifecycles. A
// table is built once per entity kind and answers which status a trigger
// leads to; the entity itself carries its current status.
package workflow

// State is a status value in an entity lifecycle
type State string

func (s State) String() string { return string(s) }

// Trigger names a lifecycle action such as "approve" or "pay"
type Trigger string

func (t Trigger) String() string { return string(t) }
