package service

// Services bundles the domain services shared by the bot and the HTTP API.
type Services struct {
	Accounts    *AccountService
	Tasks       *TaskService
	Scoring     *ScoringService
	Points      *PointsService
	Leaderboard *LeaderboardService
	Activity    *ActivityService
	Overview    *OverviewService
	Digest      *DigestService
}

func NewServices(users UserStore, tasks TaskStore, points PointsStore, activity ActivityStore, leaderboardSize int) *Services {
	pointsSvc := NewPointsService(points)
	accounts := NewAccountService(users)
	return &Services{
		Accounts:    accounts,
		Tasks:       NewTaskService(tasks),
		Scoring:     NewScoringService(users, tasks, activity, pointsSvc),
		Points:      pointsSvc,
		Leaderboard: NewLeaderboardService(users, pointsSvc, leaderboardSize),
		Activity:    NewActivityService(activity),
		Overview:    NewOverviewService(accounts, tasks, pointsSvc),
		Digest:      NewDigestService(tasks, pointsSvc),
	}
}
