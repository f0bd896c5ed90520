package party

import "time"

// Achievement describes one unlockable party achievement.
type Achievement struct {
	ID          string
	Name        string
	Description string
	RewardXP    int
}

// Catalog is the fixed set of known achievements, keyed by id.
var Catalog = map[string]Achievement{
	"party_started": {"party_started", "Party Started", "Create your first party", 100},
	"team_player":   {"team_player", "Team Player", "Have 5 members in your party", 250},
	"full_house":    {"full_house", "Full House", "Fill your party to max capacity", 500},
	"dedicated":     {"dedicated", "Dedicated", "10 hours of party playtime", 500},
	"veteran":       {"veteran", "Veteran", "50 hours of party playtime", 2000},
	"first_blood":   {"first_blood", "First Blood", "Get 10 party kills", 200},
	"slayer":        {"slayer", "Slayer", "Get 100 party kills", 1000},
	"survivor":      {"survivor", "Survivor", "Reach a 2.0 K/D ratio", 750},
	"consistent":    {"consistent", "Consistent", "Claim rewards for 7 days straight", 500},
	"devoted":       {"devoted", "Devoted", "Claim rewards for 30 days straight", 2500},
}

// EvaluateAchievements unlocks every achievement whose condition the party
// now meets and returns the ids that were newly unlocked. maxMembers is the
// configured party capacity, needed for the full_house condition.
func EvaluateAchievements(p *Party, maxMembers int) []string {
	members := p.MemberCount()
	playTime := p.PlayTime()
	kills := p.Kills()
	deaths := p.Deaths()
	streak := p.ConsecutiveDays()

	conditions := map[string]bool{
		"party_started": members >= 1,
		"team_player":   members >= 5,
		"full_house":    maxMembers > 0 && members >= maxMembers,
		"dedicated":     playTime >= 10*time.Hour,
		"veteran":       playTime >= 50*time.Hour,
		"first_blood":   kills >= 10,
		"slayer":        kills >= 100,
		"survivor":      deaths > 0 && float64(kills)/float64(deaths) >= 2.0,
		"consistent":    streak >= 7,
		"devoted":       streak >= 30,
	}

	var unlocked []string
	for id, met := range conditions {
		if met && p.UnlockAchievement(id) {
			unlocked = append(unlocked, id)
		}
	}
	return unlocked
}
