package models

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &SessionRecord{}, &UserProgress{}, &ChallengeProgress{},
		&Milestone{}, &UserMilestone{}, &Prayer{}, &PointTransaction{},
		&CommunityPost{}, &PostReaction{}, &PostPrayer{}, &PollVote{}, &Comment{},
		&Follow{}, &Squad{}, &SquadMember{}, &Notification{}, &UploadedFile{},
	}
}
