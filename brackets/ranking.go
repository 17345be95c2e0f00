package brackets

import (
	"sort"

	"github.com/Dosada05/pong-arena/models"
)

// RankByElimination ranks an elimination bracket by exit point: the champion
// is rank 1, and everyone else is ranked by the round they were knocked out
// in, later rounds placing higher. Participants eliminated in the same round
// of the same section share a rank.
func RankByElimination(matches []*models.Match) map[int]int {
	type group struct {
		section int
		round   int
		losers  []int
	}
	sectionRank := map[models.BracketSection]int{
		models.SectionMain:       0,
		models.SectionLosers:     1,
		models.SectionGrandFinal: 2,
	}

	ranks := make(map[int]int)
	groups := make(map[[2]int]*group)
	for _, m := range matches {
		if m.WinnerID == nil || m.IsBye {
			continue
		}
		// The winner of the terminal match (no onward routing) is champion.
		if m.NextMatchUID == nil && m.LoserMatchUID == nil {
			ranks[*m.WinnerID] = 1
		}
		// A loser with an onward loser link survives into the losers section.
		if m.LoserMatchUID != nil {
			continue
		}
		loser, ok := m.LoserParticipant()
		if !ok {
			continue
		}
		key := [2]int{sectionRank[m.Section], m.Round}
		g, exists := groups[key]
		if !exists {
			g = &group{section: key[0], round: key[1]}
			groups[key] = g
		}
		g.losers = append(g.losers, loser)
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].section != ordered[j].section {
			return ordered[i].section > ordered[j].section
		}
		return ordered[i].round > ordered[j].round
	})

	assigned := len(ranks)
	for _, g := range ordered {
		rank := assigned + 1
		for _, pid := range g.losers {
			if _, already := ranks[pid]; already {
				continue
			}
			ranks[pid] = rank
			assigned++
		}
	}
	return ranks
}

// rrRecord accumulates one participant's round-robin results.
type rrRecord struct {
	participantID int
	played        int
	wins          int
	pointsFor     int
	pointsAgainst int
}

func (r *rrRecord) winRate() float64 {
	if r.played == 0 {
		return 0
	}
	return float64(r.wins) / float64(r.played)
}

func (r *rrRecord) diff() int {
	return r.pointsFor - r.pointsAgainst
}

// RankRoundRobin produces a strict total order over all participants:
// win rate desc, then total wins desc, then point differential desc, then
// points scored desc, with participant ID as the deterministic last resort.
func RankRoundRobin(matches []*models.Match) map[int]int {
	records := make(map[int]*rrRecord)
	rec := func(id int) *rrRecord {
		r, ok := records[id]
		if !ok {
			r = &rrRecord{participantID: id}
			records[id] = r
		}
		return r
	}

	for _, m := range matches {
		if m.Participant1ID == nil || m.Participant2ID == nil || m.WinnerID == nil {
			continue
		}
		s1, s2 := 0, 0
		if m.Score1 != nil {
			s1 = *m.Score1
		}
		if m.Score2 != nil {
			s2 = *m.Score2
		}
		r1 := rec(*m.Participant1ID)
		r2 := rec(*m.Participant2ID)
		r1.played++
		r2.played++
		r1.pointsFor += s1
		r1.pointsAgainst += s2
		r2.pointsFor += s2
		r2.pointsAgainst += s1
		if *m.WinnerID == *m.Participant1ID {
			r1.wins++
		} else {
			r2.wins++
		}
	}

	ordered := make([]*rrRecord, 0, len(records))
	for _, r := range records {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.winRate() != b.winRate() {
			return a.winRate() > b.winRate()
		}
		if a.wins != b.wins {
			return a.wins > b.wins
		}
		if a.diff() != b.diff() {
			return a.diff() > b.diff()
		}
		if a.pointsFor != b.pointsFor {
			return a.pointsFor > b.pointsFor
		}
		return a.participantID < b.participantID
	})

	ranks := make(map[int]int, len(ordered))
	for i, r := range ordered {
		ranks[r.participantID] = i + 1
	}
	return ranks
}
