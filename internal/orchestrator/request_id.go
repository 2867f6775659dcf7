package orchestrator

import "github.com/google/uuid"

// RequestId identifies one HandleInput or ConfirmQuery call for the
// lifetime it spends queued and in flight, so CancelQuery can target
// it specifically instead of only ever reaching whatever Core
// currently has active.
type RequestId string

func newRequestID() RequestId {
	return RequestId(uuid.NewString())
}
