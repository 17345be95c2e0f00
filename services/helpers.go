package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/pong-arena/models"
)

// RoomKeyForMatch names the websocket room bound to a tournament match.
// Binding resolution parses the same shape back.
func RoomKeyForMatch(tournamentID int, bracketUID string) string {
	return fmt.Sprintf("t%d-%s", tournamentID, bracketUID)
}

// parseRoomKey splits "t<id>-<uid>" into its parts. Keys of any other shape
// name standalone rooms.
func parseRoomKey(key string) (tournamentID int, bracketUID string, ok bool) {
	if !strings.HasPrefix(key, "t") {
		return 0, "", false
	}
	rest := key[1:]
	sep := strings.Index(rest, "-")
	if sep <= 0 || sep == len(rest)-1 {
		return 0, "", false
	}
	id, err := strconv.Atoi(rest[:sep])
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, rest[sep+1:], true
}

// runInTx executes fn inside a transaction with rollback on error or panic.
// Without a database handle fn runs directly; repository fakes ignore the
// executor anyway.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	if db == nil {
		return fn(nil)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func participantsToValues(slice []*models.Participant) []models.Participant {
	result := make([]models.Participant, 0, len(slice))
	for _, ptr := range slice {
		if ptr != nil {
			result = append(result, *ptr)
		}
	}
	return result
}

func matchesToValues(slice []*models.Match) []models.Match {
	result := make([]models.Match, 0, len(slice))
	for _, ptr := range slice {
		if ptr != nil {
			result = append(result, *ptr)
		}
	}
	return result
}
