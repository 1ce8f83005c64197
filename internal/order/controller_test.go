package order

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/fieldservice-dashboard/internal/apperror"
	"github.com/mmeshcher/fieldservice-dashboard/internal/backend"
	"github.com/mmeshcher/fieldservice-dashboard/internal/journal"
	"github.com/mmeshcher/fieldservice-dashboard/internal/model"
	"github.com/mmeshcher/fieldservice-dashboard/internal/session"
)

type stubSessions struct {
	snap session.Snapshot
}

func (s *stubSessions) Snapshot() session.Snapshot { return s.snap }

func asRole(roleID int64) *stubSessions {
	return &stubSessions{snap: session.Snapshot{
		User:          &model.User{ID: 5, Role: model.Role{ID: roleID}},
		Authenticated: true,
		Ready:         true,
	}}
}

type stubAPI struct {
	mu sync.Mutex

	order    *model.Order
	getErr   error
	getGate  chan struct{}
	getCalls int

	statusResp  string
	statusErr   error
	statusGate  chan struct{}
	statusCalls int

	services   []model.Service
	created    *model.CreateOrder
	createResp *model.Order
	createErr  error
}

func (s *stubAPI) ListOrders(ctx context.Context, q backend.OrdersQuery) (*model.Page[model.Order], error) {
	return &model.Page[model.Order]{Results: []model.Order{*s.order}, TotalItems: 1}, nil
}

func (s *stubAPI) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	s.getCalls++
	o := *s.order
	gate := s.getGate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &o, nil
}

func (s *stubAPI) CreateOrder(ctx context.Context, in model.CreateOrder) (*model.Order, error) {
	s.created = &in
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResp, nil
}

func (s *stubAPI) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*backend.StatusUpdate, error) {
	s.mu.Lock()
	s.statusCalls++
	gate := s.statusGate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	resp := s.statusResp
	if resp == "" {
		resp = string(status)
	}
	return &backend.StatusUpdate{ID: id, Status: resp}, nil
}

func (s *stubAPI) ListServices(ctx context.Context) ([]model.Service, error) {
	return s.services, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *memJournal) Record(ctx context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) History(ctx context.Context, orderID int64) ([]journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]journal.Entry(nil), j.entries...), nil
}

func (j *memJournal) Close() error { return nil }

func orderWith(status model.OrderStatus) *model.Order {
	return &model.Order{ID: 10, Name: "Pump repair", Status: status}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name       string
		privileged bool
		from       model.OrderStatus
		want       []model.OrderStatus
	}{
		{name: "fulfiller todo", from: model.OrderStatusTodo, want: []model.OrderStatus{model.OrderStatusInProgress}},
		{name: "fulfiller in progress", from: model.OrderStatusInProgress, want: []model.OrderStatus{model.OrderStatusDone}},
		{name: "fulfiller done", from: model.OrderStatusDone, want: []model.OrderStatus{}},
		{name: "fulfiller cancelled", from: model.OrderStatusCancelled, want: []model.OrderStatus{}},
		{name: "privileged todo", privileged: true, from: model.OrderStatusTodo, want: []model.OrderStatus{model.OrderStatusCancelled}},
		{name: "privileged in progress", privileged: true, from: model.OrderStatusInProgress, want: []model.OrderStatus{model.OrderStatusCancelled}},
		{name: "privileged done", privileged: true, from: model.OrderStatusDone, want: []model.OrderStatus{}},
		{name: "privileged cancelled", privileged: true, from: model.OrderStatusCancelled, want: []model.OrderStatus{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.privileged, tt.from))
		})
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	all := []model.OrderStatus{
		model.OrderStatusTodo, model.OrderStatusInProgress, model.OrderStatusDone, model.OrderStatusCancelled,
	}
	for _, privileged := range []bool{true, false} {
		for _, from := range []model.OrderStatus{model.OrderStatusDone, model.OrderStatusCancelled} {
			for _, to := range all {
				assert.False(t, CanTransition(privileged, from, to), "%v: %s -> %s", privileged, from, to)
			}
		}
	}
}

func TestRequestTransition_Advance(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusTodo)}
	j := &memJournal{}
	c := NewController(api, asRole(3), j, nil)

	_, err := c.Load(context.Background(), 10)
	require.NoError(t, err)

	o, err := c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, o.Status)

	v, ok := c.View(10)
	require.True(t, ok)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusDone}, v.Actions)
	assert.Equal(t, RequestSucceeded, v.Request.Kind)

	require.Len(t, j.entries, 1)
	assert.Equal(t, journal.OutcomeSucceeded, j.entries[0].Outcome)
	assert.Equal(t, int64(5), j.entries[0].ActorID)
}

func TestRequestTransition_ServerStatusIsNormalized(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusTodo), statusResp: "IN_PROGRESS"}
	c := NewController(api, asRole(3), nil, nil)

	o, err := c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, o.Status)
	assert.Equal(t, 1, api.getCalls, "order must be loaded before the first transition")
}

func TestRequestTransition_RejectedByPolicyWithoutNetwork(t *testing.T) {
	tests := []struct {
		name   string
		roleID int64
		from   model.OrderStatus
		to     model.OrderStatus
	}{
		{name: "fulfiller cancels", roleID: 3, from: model.OrderStatusInProgress, to: model.OrderStatusCancelled},
		{name: "privileged advances", roleID: model.PrivilegedRoleID, from: model.OrderStatusTodo, to: model.OrderStatusInProgress},
		{name: "leave done", roleID: 3, from: model.OrderStatusDone, to: model.OrderStatusInProgress},
		{name: "leave cancelled", roleID: model.PrivilegedRoleID, from: model.OrderStatusCancelled, to: model.OrderStatusCancelled},
		{name: "skip a step", roleID: 3, from: model.OrderStatusTodo, to: model.OrderStatusDone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAPI{order: orderWith(tt.from)}
			j := &memJournal{}
			c := NewController(api, asRole(tt.roleID), j, nil)
			_, err := c.Load(context.Background(), 10)
			require.NoError(t, err)

			_, err = c.RequestTransition(context.Background(), 10, tt.to)

			var terr *apperror.TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, 0, api.statusCalls)

			v, _ := c.View(10)
			assert.Equal(t, tt.from, v.Order.Status)
			require.Len(t, j.entries, 1)
			assert.Equal(t, journal.OutcomeRejected, j.entries[0].Outcome)
		})
	}
}

func TestRequestTransition_PrivilegedCancels(t *testing.T) {
	for _, from := range []model.OrderStatus{model.OrderStatusTodo, model.OrderStatusInProgress} {
		api := &stubAPI{order: orderWith(from)}
		c := NewController(api, asRole(model.PrivilegedRoleID), nil, nil)

		o, err := c.RequestTransition(context.Background(), 10, model.OrderStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, o.Status)

		v, _ := c.View(10)
		assert.Empty(t, v.Actions)
	}
}

func TestRequestTransition_FailureKeepsLocalState(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "server message",
			err:     &backend.APIError{StatusCode: http.StatusConflict, Message: "Team is busy"},
			message: "Team is busy",
		},
		{
			name:    "generic",
			err:     &apperror.TransportError{Op: "PATCH", Err: errors.New("reset")},
			message: msgTransitionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAPI{order: orderWith(model.OrderStatusTodo), statusErr: tt.err}
			c := NewController(api, asRole(3), nil, nil)

			_, err := c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)

			var terr *apperror.TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.message, terr.Message)

			v, _ := c.View(10)
			assert.Equal(t, model.OrderStatusTodo, v.Order.Status)
			assert.Equal(t, RequestFailed, v.Request.Kind)
			assert.Equal(t, tt.message, v.Request.Reason)
		})
	}
}

func TestRequestTransition_UnknownStatusInResponse(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusTodo), statusResp: "archived"}
	c := NewController(api, asRole(3), nil, nil)

	_, err := c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)

	var terr *apperror.TransitionError
	require.ErrorAs(t, err, &terr)
	v, _ := c.View(10)
	assert.Equal(t, model.OrderStatusTodo, v.Order.Status)
}

func TestRequestTransition_PendingBlocksSecondRequest(t *testing.T) {
	gate := make(chan struct{})
	api := &stubAPI{order: orderWith(model.OrderStatusTodo)}
	c := NewController(api, asRole(3), nil, nil)
	_, err := c.Load(context.Background(), 10)
	require.NoError(t, err)

	api.mu.Lock()
	api.statusGate = gate
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)
		done <- err
	}()

	require.Eventually(t, func() bool {
		v, _ := c.View(10)
		return v.Request.InFlight(model.OrderStatusInProgress)
	}, time.Second, 5*time.Millisecond)

	_, err = c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)
	require.ErrorIs(t, err, ErrRequestPending)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.statusCalls)
}

func TestLoad_StaleResponseDiscarded(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusTodo)}
	c := NewController(api, asRole(3), nil, nil)
	_, err := c.Load(context.Background(), 10)
	require.NoError(t, err)

	gate := make(chan struct{})
	api.mu.Lock()
	api.getGate = gate
	api.mu.Unlock()

	loaded := make(chan *model.Order, 1)
	go func() {
		o, _ := c.Load(context.Background(), 10)
		loaded <- o
	}()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.getCalls == 2
	}, time.Second, 5*time.Millisecond)

	o, err := c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusInProgress, o.Status)

	close(gate)
	stale := <-loaded
	assert.Equal(t, model.OrderStatusInProgress, stale.Status)

	v, _ := c.View(10)
	assert.Equal(t, model.OrderStatusInProgress, v.Order.Status)
}

func TestRequiresAuthentication(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusTodo)}
	c := NewController(api, &stubSessions{}, nil, nil)

	_, err := c.Load(context.Background(), 10)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = c.RequestTransition(context.Background(), 10, model.OrderStatusInProgress)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, 0, api.getCalls)
}

func TestRequestTransition_CacheDroppedWhenUserChanges(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusTodo)}
	sessions := asRole(3)
	sessions.snap.Generation = 1
	c := NewController(api, sessions, nil, nil)

	_, err := c.Load(context.Background(), 10)
	require.NoError(t, err)

	// пока входил другой пользователь, заказ на бэкенде уже завершили
	api.mu.Lock()
	api.order = orderWith(model.OrderStatusDone)
	api.mu.Unlock()
	sessions.snap = session.Snapshot{
		User:          &model.User{ID: 6, Role: model.Role{ID: model.PrivilegedRoleID}},
		Authenticated: true,
		Ready:         true,
		Generation:    3,
	}

	_, ok := c.View(10)
	assert.False(t, ok)

	_, err = c.RequestTransition(context.Background(), 10, model.OrderStatusCancelled)

	var terr *apperror.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, string(model.OrderStatusDone), terr.From)
	assert.Equal(t, 2, api.getCalls)
	assert.Equal(t, 0, api.statusCalls)
}

func TestView_HiddenAfterLogout(t *testing.T) {
	api := &stubAPI{order: orderWith(model.OrderStatusInProgress)}
	sessions := asRole(3)
	sessions.snap.Generation = 1
	c := NewController(api, sessions, nil, nil)

	_, err := c.Load(context.Background(), 10)
	require.NoError(t, err)
	_, ok := c.View(10)
	require.True(t, ok)

	sessions.snap = session.Snapshot{Ready: true, Generation: 2}

	_, ok = c.View(10)
	assert.False(t, ok)
}
