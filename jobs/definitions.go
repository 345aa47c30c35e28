/* Package jobs defines the queued stage jobs that advance one instance one
 * stage at a time, and the worker pool that consumes them.
 *
 * Every stage job re-reads its instance fresh, validates the entry status
 * (raising a status flow violation on mismatch), and delegates the work to
 * a freshly built engine. Failures surface to the retry policy; exhausting
 * the retry budget force-transitions the instance to failed so it stays
 * visible rather than vanishing mid-pipeline.
 */
package jobs

import (
	"github.com/polydock/engine/instance"
	"github.com/polydock/engine/queue"
)

// DefaultPollInterval is how long a polling stage waits before its next pass
const DefaultPollInterval = 15 // seconds

// Definition describes one stage job kind: the status it may act on and how
// the engine call behaves.
type Definition struct {
	Kind  queue.Kind
	Entry instance.Status

	// Poll marks the deploy poll pass (engine.PollDeploy instead of the
	// status-bound action).
	Poll bool

	// OnStay is the kind enqueued after the poll interval when the provider
	// reports the external resource is not ready yet.
	OnStay queue.Kind

	// NoOp marks placeholder stages that only occupy a status slot today.
	NoOp bool
}

/* definitions is the complete stage job table. Deploy and poll-deploy share
 * the pending_deploy entry status: deploy kicks the rollout off and hands
 * polling over, poll-deploy re-enqueues itself until the provider reports
 * ready. Health-poll is a placeholder occupying the running slot.
 */
var definitions = map[queue.Kind]Definition{
	queue.KindProcessNew: {Kind: queue.KindProcessNew, Entry: instance.StatusNew},
	queue.KindClaim:      {Kind: queue.KindClaim, Entry: instance.StatusPendingPolydockClaim},
	queue.KindPreCreate:  {Kind: queue.KindPreCreate, Entry: instance.StatusPendingPreCreate},
	queue.KindCreate:     {Kind: queue.KindCreate, Entry: instance.StatusPendingCreate},
	queue.KindPostCreate: {Kind: queue.KindPostCreate, Entry: instance.StatusPendingPostCreate},
	queue.KindPreDeploy:  {Kind: queue.KindPreDeploy, Entry: instance.StatusPendingPreDeploy},
	queue.KindDeploy:     {Kind: queue.KindDeploy, Entry: instance.StatusPendingDeploy, OnStay: queue.KindPollDeploy},
	queue.KindPollDeploy: {Kind: queue.KindPollDeploy, Entry: instance.StatusPendingDeploy, Poll: true, OnStay: queue.KindPollDeploy},
	queue.KindPostDeploy: {Kind: queue.KindPostDeploy, Entry: instance.StatusPendingPostDeploy},
	queue.KindPreRemove:  {Kind: queue.KindPreRemove, Entry: instance.StatusPendingPreRemove},
	queue.KindRemove:     {Kind: queue.KindRemove, Entry: instance.StatusPendingRemove},
	queue.KindPostRemove: {Kind: queue.KindPostRemove, Entry: instance.StatusPendingPostRemove},
	queue.KindHealthPoll: {Kind: queue.KindHealthPoll, Entry: instance.StatusRunning, NoOp: true},
}

// DefinitionFor returns the stage definition for a job kind
func DefinitionFor(kind queue.Kind) (Definition, bool) {
	def, ok := definitions[kind]
	return def, ok
}
