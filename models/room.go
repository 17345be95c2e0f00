package models

// SpeedProfile selects the ball and paddle velocity constants for a room.
// It is fixed at room creation and shared by both players.
type SpeedProfile string

const (
	SpeedSlow   SpeedProfile = "slow"
	SpeedNormal SpeedProfile = "normal"
	SpeedFast   SpeedProfile = "fast"
)

func (p SpeedProfile) Valid() bool {
	switch p {
	case SpeedSlow, SpeedNormal, SpeedFast:
		return true
	}
	return false
}

// RoomStatus is the match lifecycle state machine:
//
//	waiting → ready → playing ⇄ paused → finished
//
// waiting→ready fires the instant the second player joins; ready→playing is
// automatic after a short start delay; finished is terminal.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomReady    RoomStatus = "ready"
	RoomPlaying  RoomStatus = "playing"
	RoomPaused   RoomStatus = "paused"
	RoomFinished RoomStatus = "finished"
)

// Side is a paddle assignment inside a room.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}
