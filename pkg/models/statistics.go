package models

// Statistics summarizes revision progress
type Statistics struct {
	TotalTopics    int             `json:"total_topics"`
	RevisedTopics  int             `json:"revised_topics"`
	NeverRevised   int             `json:"never_revised"`
	DueNow         int             `json:"due_now"`
	TotalRevisions int             `json:"total_revisions"`
	UserRevisions  int             `json:"user_revisions"`
	Bookmarks      int             `json:"bookmarks"`
	Categories     []CategoryCount `json:"categories"`
}

// CategoryCount is the number of topics in one category
type CategoryCount struct {
	Category string `json:"category" db:"category"`
	Topics   int    `json:"topics" db:"topics"`
	Revised  int    `json:"revised" db:"revised"`
}
