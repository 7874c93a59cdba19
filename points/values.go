// Package points keeps the append-only points ledger and the fixed table of
// point values per action.
package points

import "github.com/cppla/spiritfit/models"

// Award reasons.
const (
	ReasonPhaseComplete   = "phase_complete"
	ReasonSessionComplete = "session_complete"
	ReasonVerseRead       = "verse_read"
	ReasonPrayerLogged    = "prayer_logged"
	ReasonPrayerAnswered  = "prayer_answered"
	ReasonPostCreated     = "post_created"
	ReasonReactionGiven   = "reaction_given"
	ReasonPrayedForPost   = "prayed_for_post"
	ReasonCommentCreated  = "comment_created"
	ReasonPollVoted       = "poll_voted"
)

// Values is the number of points each action earns. Verse points are per verse.
var Values = map[string]int{
	ReasonPhaseComplete:   10,
	ReasonSessionComplete: 50,
	ReasonVerseRead:       2,
	ReasonPrayerLogged:    5,
	ReasonPrayerAnswered:  25,
	ReasonReactionGiven:   1,
	ReasonPrayedForPost:   3,
	ReasonCommentCreated:  2,
	ReasonPollVoted:       1,
}

// postValues is the creation reward per post type.
var postValues = map[string]int{
	models.PostText:          5,
	models.PostPrayerRequest: 10,
	models.PostImage:         5,
	models.PostVideo:         5,
	models.PostMusic:         5,
	models.PostLink:          3,
	models.PostPoll:          5,
	models.PostTestimony:     15,
	models.PostQuestion:      5,
	models.PostVerse:         5,
}

// ForPost returns the creation reward for a post type.
func ForPost(postType string) int {
	if v, ok := postValues[postType]; ok {
		return v
	}
	return 3
}
