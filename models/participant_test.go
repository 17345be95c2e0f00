package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	alias := "ava"
	userID := 42

	guest := &Participant{ID: 1, GuestAlias: &alias}
	assert.Equal(t, "ava", guest.DisplayName())

	user := &Participant{ID: 2, UserID: &userID}
	assert.Equal(t, "user-42", user.DisplayName())

	bare := &Participant{ID: 3}
	assert.Equal(t, "participant-3", bare.DisplayName())
}

func TestWinRate(t *testing.T) {
	s := &Standing{GamesPlayed: 4, Wins: 3}
	assert.InDelta(t, 0.75, s.WinRate(), 1e-9)

	fresh := &Standing{}
	assert.Zero(t, fresh.WinRate())
}
