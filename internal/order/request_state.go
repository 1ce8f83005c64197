package order

import (
	"encoding/json"

	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
)

// RequestKind задаёт фазу запроса на смену статуса.
type RequestKind int

const (
	RequestIdle RequestKind = iota
	RequestPending
	RequestSucceeded
	RequestFailed
)

func (k RequestKind) String() string {
	switch k {
	case RequestPending:
		return "pending"
	case RequestSucceeded:
		return "succeeded"
	case RequestFailed:
		return "failed"
	default:
		return "idle"
	}
}

// RequestState описывает последний запрос на смену статуса по заказу.
// Target заполнен для Pending и Succeeded, Reason заполнен для Failed.
type RequestState struct {
	Kind   RequestKind
	Target model.OrderStatus
	Reason string
}

func idle() RequestState { return RequestState{Kind: RequestIdle} }

func pending(target model.OrderStatus) RequestState {
	return RequestState{Kind: RequestPending, Target: target}
}

func succeeded(target model.OrderStatus) RequestState {
	return RequestState{Kind: RequestSucceeded, Target: target}
}

func failed(target model.OrderStatus, reason string) RequestState {
	return RequestState{Kind: RequestFailed, Target: target, Reason: reason}
}

// InFlight сообщает, ожидается ли ответ на запрос перехода в target.
func (s RequestState) InFlight(target model.OrderStatus) bool {
	return s.Kind == RequestPending && s.Target == target
}

func (s RequestState) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   string            `json:"kind"`
		Target model.OrderStatus `json:"target,omitempty"`
		Reason string            `json:"reason,omitempty"`
	}{
		Kind:   s.Kind.String(),
		Target: s.Target,
		Reason: s.Reason,
	})
}
