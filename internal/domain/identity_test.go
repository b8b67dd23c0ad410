package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("Admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	for _, raw := range []string{"", "admin", "REPORTER", "Owner"} {
		_, ok := ParseRole(raw)
		assert.False(t, ok, raw)
	}
}

func TestDirectory(t *testing.T) {
	dir := DefaultDirectory()

	assert.True(t, dir.Contains(RoleReporter, "Bob"))
	assert.False(t, dir.Contains(RoleAdmin, "Bob"))
	assert.Equal(t, Identity{Name: "Admin1", Role: RoleAdmin}, dir.DefaultFor(RoleAdmin))
	assert.Equal(t, Identity{Name: "Alice", Role: RoleReporter}, dir.DefaultIdentity())
	assert.Nil(t, dir.Members(Role("Owner")))
}

func TestEnumerations(t *testing.T) {
	assert.Equal(t, []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed}, TicketStatuses())
	assert.True(t, TicketStatusInProgress.Valid())
	assert.False(t, TicketStatus("resolved").Valid())
	assert.True(t, TicketPriorityHigh.Valid())
	assert.False(t, TicketPriority("urgent").Valid())
}
