package instance

import "time"

/* AppInstance represents one deployed (or being-deployed) application,
 * the unit the lifecycle pipeline operates on.
 * Uses value semantics as it represents data, not behavior.
 *
 * Status is mutated exclusively by the stage executor; Data is accumulated
 * by individual stage actions and never overwritten wholesale. Instances
 * are never deleted: removal is the terminal removed status, not a deletion.
 */
type AppInstance struct {
	ID            string
	StoreID       string
	AppID         string
	ProviderKey   string
	Status        Status
	NextPollAfter time.Time
	Data          map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CloneData returns a copy of the instance's stage-produced data.
// Event payloads must not alias the live map.
func (i AppInstance) CloneData() map[string]string {
	if i.Data == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(i.Data))
	for k, v := range i.Data {
		out[k] = v
	}
	return out
}
