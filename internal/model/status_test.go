package model

import "testing"

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    OrderStatus
		wantErr bool
	}{
		{in: "to-do", want: OrderStatusTodo},
		{in: "TODO", want: OrderStatusTodo},
		{in: "in-progress", want: OrderStatusInProgress},
		{in: "IN_PROGRESS", want: OrderStatusInProgress},
		{in: "In Progress", want: OrderStatusInProgress},
		{in: "Done", want: OrderStatusDone},
		{in: " cancelled ", want: OrderStatusCancelled},
		{in: "archived", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseOrderStatus(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOrderStatus(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseOrderStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrderStatusRoundTrip(t *testing.T) {
	for _, st := range orderStatuses {
		got, err := ParseOrderStatus(string(st))
		if err != nil || got != st {
			t.Fatalf("round trip %q: got %q, %v", st, got, err)
		}
	}
}

func TestUserIsPrivileged(t *testing.T) {
	var nilUser *User
	if nilUser.IsPrivileged() {
		t.Fatalf("nil user must not be privileged")
	}
	if !(&User{Role: Role{ID: PrivilegedRoleID}}).IsPrivileged() {
		t.Fatalf("role %d must be privileged", PrivilegedRoleID)
	}
	if (&User{Role: Role{ID: 1}}).IsPrivileged() {
		t.Fatalf("role 1 must not be privileged")
	}
}
