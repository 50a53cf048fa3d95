// Package proposalvoting implements binary referendum voting inside the
// governance context.
//
// The module owns proposal registration, voting-window configuration,
// one-ballot-per-address casting with evidence issuance, clock-gated
// tallying, and vote-related event production through outbox-backed
// workers. It keeps business rules in application/domain layers and
// isolates infrastructure concerns behind ports and adapters.
package proposalvoting
